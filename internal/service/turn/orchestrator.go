package turn

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dexterslab/plural-backend/internal/config"
	"github.com/dexterslab/plural-backend/internal/types"
)

const suggestionInstruction = `Based on our conversation and my last response, suggest 3 brief, relevant follow-up questions a curious child might ask next. Format the response ONLY as a JSON list of strings, like: ["Question 1?", "Question 2?", "Question 3?"]`

// maxSuggestions caps how many follow-up suggestions are kept per turn.
const maxSuggestions = 4

// Service drives one end-to-end response turn. One Service instance is
// shared by all turns; a turn holds no state outside its call stack, so
// turns for different quests may run concurrently.
type Service struct {
	store      MessageStore
	generator  Generator
	embedder   Embedder
	prompts    PromptSource
	images     ImageStore
	normalizer *Normalizer
	selector   *Selector
	logger     *logrus.Logger
}

// NewService creates a turn Service.
func NewService(
	store MessageStore,
	generator Generator,
	embedder Embedder,
	prompts PromptSource,
	images ImageStore,
	logger *logrus.Logger,
	cfg config.ContextConfig,
) *Service {
	return &Service{
		store:      store,
		generator:  generator,
		embedder:   embedder,
		prompts:    prompts,
		images:     images,
		normalizer: NewNormalizer(cfg.ImageFetchTimeout, logger),
		selector:   NewSelector(store, embedder, logger, cfg),
		logger:     logger,
	}
}

// Run executes one response turn for the quest. Steps run strictly in
// sequence: fetch history, select context, normalize the latest user
// content, assemble the dialogue, generate, derive suggestions, persist.
// Generation failure aborts the turn with nothing persisted; every other
// dependency failure degrades within its own step.
func (s *Service) Run(ctx context.Context, userID string, questID uuid.UUID) error {
	log := s.logger.WithField("quest_id", questID)
	log.Info("generating guide response")

	msgs, err := s.store.GetByQuestID(ctx, questID)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	if len(msgs) == 0 {
		log.Warn("no messages in quest, skipping turn")
		return nil
	}

	latest := latestUserMessage(msgs)
	if latest == nil {
		log.Warn("no user message in quest, skipping turn")
		return nil
	}
	latestText := latest.Content.PlainText()

	history := s.selector.Select(ctx, questID, msgs, latestText)
	log.WithField("count", len(history)).Info("selected context messages")

	latestBlocks := s.normalizer.Normalize(ctx, latest.Content)
	if len(latestBlocks) == 0 {
		log.Warn("latest user message normalized to no content, skipping turn")
		return nil
	}

	systemPrompt := s.prompts.EffectivePrompt(ctx, userID)
	dialogue, skipped := AssembleDialogue(systemPrompt, history, latestBlocks)
	if skipped > 0 {
		log.WithField("skipped", skipped).Warn("dropped history turns with non-alternating roles")
	}

	response, err := s.generator.Generate(ctx, dialogue)
	if err != nil {
		return fmt.Errorf("generate response: %w", err)
	}

	suggestions := s.followupSuggestions(ctx, history, latestText, response)

	// The response embedding is best-effort: a message without one simply
	// stays out of future similarity results.
	embedding, err := s.embedder.Embed(ctx, response)
	if err != nil {
		log.WithError(err).Warn("failed to embed response")
		embedding = nil
	}

	msg := &types.Message{
		QuestID:   questID,
		UserID:    userID,
		Role:      types.RoleModel,
		Content:   types.NewTextContent(response),
		Embedding: embedding,
		Metadata:  suggestionMetadata(suggestions),
	}
	if err := s.store.Create(ctx, msg); err != nil {
		return fmt.Errorf("persist response: %w", err)
	}

	log.Info("guide response persisted")
	return nil
}

// latestUserMessage returns the most recent user-role message, or nil.
func latestUserMessage(msgs []types.Message) *types.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == types.RoleUser {
			return &msgs[i]
		}
	}
	return nil
}

// followupSuggestions asks the model for follow-up questions the child
// might ask next. Best-effort: any failure yields an empty list.
func (s *Service) followupSuggestions(ctx context.Context, history []types.Message, latestText, response string) []string {
	var dialogue []types.DialogueTurn
	for _, msg := range history {
		text := msg.Content.PlainText()
		if text == "" {
			continue
		}
		dialogue = append(dialogue, textTurn(msg.Role, text))
	}
	if latestText != "" && (len(dialogue) == 0 || dialogue[len(dialogue)-1].Blocks[0].Text != latestText) {
		dialogue = append(dialogue, textTurn(types.RoleUser, latestText))
	}
	dialogue = append(dialogue,
		textTurn(types.RoleModel, response),
		textTurn(types.RoleUser, suggestionInstruction),
	)

	raw, err := s.generator.GenerateJSON(ctx, dialogue)
	if err != nil {
		s.logger.WithError(err).Warn("failed to generate suggestions")
		return nil
	}

	suggestions, err := parseSuggestions(raw)
	if err != nil {
		s.logger.WithError(err).WithField("raw", raw).Warn("suggestion response not a valid string list")
		return nil
	}
	return suggestions
}

// parseSuggestions parses a strict JSON array of strings, tolerating
// markdown code fences around the payload.
func parseSuggestions(raw string) ([]string, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var suggestions []string
	if err := json.Unmarshal([]byte(cleaned), &suggestions); err != nil {
		return nil, err
	}
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions, nil
}

func suggestionMetadata(suggestions []string) json.RawMessage {
	if len(suggestions) == 0 {
		return nil
	}
	metadata, err := json.Marshal(map[string][]string{"suggestions": suggestions})
	if err != nil {
		return nil
	}
	return metadata
}
