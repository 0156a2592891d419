// Package guide manages the persona instruction the generation model is
// primed with: a per-user custom prompt when one is stored, falling back to
// the built-in default.
package guide

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dexterslab/plural-backend/internal/cache/redis"
)

const (
	// promptCacheKeyPrefix is the Redis key prefix for cached guide prompts.
	promptCacheKeyPrefix = "guide:prompt:"
	// promptCacheTTL is how long to cache prompts (short to allow edits to
	// take effect quickly).
	promptCacheTTL = 5 * time.Minute
)

// DefaultPrompt is the built-in persona instruction used when a user has no
// custom guide prompt.
const DefaultPrompt = `**Role**: You are a nurturing parent guiding a curious child (age 6–12) in a dialogue. Your goal is to foster critical thinking and sustained curiosity.

**Style**:
- **Conversational**: Use simple words, contractions ("Let's", "don't"). Aim for around 3-6 sentences when explaining something new, shorter otherwise.
- **Playful**: Sprinkle humor and enthusiasm ("Ooh, great thought! What if...?").
- **Topic Exploration**: Gradually explore related subtopics (e.g., from "why stars twinkle" to "how telescopes work" to "alien life").

**Core Principles**:
1. **Explain then Prompt**: When explaining a concept, provide a clear but concise explanation (3-6 sentences), then *always* ask a question to encourage interaction or check understanding. For simple acknowledgements or confirmations, keep it very short (1-2 sentences) before asking.
2. **Scaffolding**: Build on the child's last idea. "You mentioned [X]—how does that connect to [Y]?"
3. **Branching**: Introduce new angles of the topic naturally. "That's about [A]! Did you know [B] is also part of this?"

**Rules**:
1. **Start with the child's interest**:
   - If they mention dinosaurs: "Great question! Let's imagine a T-Rex trying to [topic]..."
2. **Balance Explanation & Interaction**: Don't just give facts. Explain clearly (3-6 sentences if needed), then immediately ask a related question. Avoid long paragraphs.
3. **Prolong the dialogue**:
   - After explaining, ask: "Does that make sense? What part sounds most interesting?" or "Should we explore [subtopic 1] or [subtopic 2] next?"
   - Use their answers to branch deeper: "You said [child's idea]—what happens if we change [variable]?"
4. **Metaphors & examples**: Tie ideas to their world: "Clouds are like sponges. What happens when they get too full?"

**Example Flow**:
Child: "Why is the sky blue?"
Parent:
1. "Awesome question! What color do you think it is on Mars? *(Assess knowledge)*"
2. (After child guesses) "It's red there! On Earth, sunlight plays a game—imagine it's a ball bouncing off air! *(Metaphor)*"
3. "Want to explore how light bends or why sunsets are red? *(Branching)*"
`

// PromptStore persists custom guide prompts.
type PromptStore interface {
	Get(ctx context.Context, userID string) (*string, error)
	Upsert(ctx context.Context, userID, prompt string) error
}

// PromptCache caches resolved prompts. Get returns redis.ErrCacheMiss when
// the key is absent; any other error means the cache itself failed.
type PromptCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Service resolves and updates per-user guide prompts.
type Service struct {
	store  PromptStore
	cache  PromptCache
	logger *logrus.Logger
}

// NewService creates a new guide Service. The cache may be nil, in which
// case prompts are read from the store on every call.
func NewService(store PromptStore, cache PromptCache, logger *logrus.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// CustomPrompt returns the user's stored custom prompt, or nil when none is
// set.
func (s *Service) CustomPrompt(ctx context.Context, userID string) (*string, error) {
	return s.store.Get(ctx, userID)
}

// UpdatePrompt stores a new custom prompt for the user and invalidates the
// cache entry.
func (s *Service) UpdatePrompt(ctx context.Context, userID, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("prompt must not be empty")
	}
	if err := s.store.Upsert(ctx, userID, prompt); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, promptCacheKeyPrefix+userID); err != nil {
			s.logger.WithError(err).Warn("failed to invalidate cached guide prompt")
		}
	}
	return nil
}

// EffectivePrompt returns the persona instruction to use for the user: the
// custom prompt when one exists, the default otherwise. Lookup failures
// degrade to the default and never fail the caller's turn.
func (s *Service) EffectivePrompt(ctx context.Context, userID string) string {
	cacheKey := promptCacheKeyPrefix + userID

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey)
		switch {
		case err == nil && strings.TrimSpace(cached) != "":
			return cached
		case err != nil && !errors.Is(err, redis.ErrCacheMiss):
			s.logger.WithError(err).Warn("guide prompt cache read failed")
		}
	}

	custom, err := s.store.Get(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("failed to load guide prompt, using default")
		return DefaultPrompt
	}
	if custom == nil || strings.TrimSpace(*custom) == "" {
		return DefaultPrompt
	}

	prompt := strings.TrimSpace(*custom)
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, prompt, promptCacheTTL); err != nil {
			s.logger.WithError(err).Warn("failed to cache guide prompt")
		}
	}
	return prompt
}
