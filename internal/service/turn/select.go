package turn

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dexterslab/plural-backend/internal/config"
	"github.com/dexterslab/plural-backend/internal/types"
)

// Selector picks a bounded, deduplicated context window from a quest's
// message log, combining semantic relevance with recency.
type Selector struct {
	store    MessageStore
	embedder Embedder
	logger   *logrus.Logger
	cfg      config.ContextConfig
}

// NewSelector creates a Selector.
func NewSelector(store MessageStore, embedder Embedder, logger *logrus.Logger, cfg config.ContextConfig) *Selector {
	return &Selector{
		store:    store,
		embedder: embedder,
		logger:   logger,
		cfg:      cfg,
	}
}

// Select returns the context window for the next turn: similarity matches
// for latestText first, then the most recent messages, deduplicated by
// message identity and truncated to the configured bound (oldest dropped
// first). Embedding or similarity failures degrade to recency-only
// selection; they never fail the turn.
func (s *Selector) Select(ctx context.Context, questID uuid.UUID, msgs []types.Message, latestText string) []types.Message {
	var relevant []types.Message

	embedding, err := s.embedder.Embed(ctx, latestText)
	if err != nil {
		s.logger.WithError(err).WithField("quest_id", questID).Warn("no query embedding, skipping similarity search")
	} else {
		relevant, err = s.store.FindSimilar(ctx, questID, embedding, s.cfg.MatchThreshold, s.cfg.MatchCount)
		if err != nil {
			s.logger.WithError(err).WithField("quest_id", questID).Warn("similarity search failed, using recency only")
			relevant = nil
		}
	}

	recent := msgs
	if len(recent) > s.cfg.RecencyCount {
		recent = recent[len(recent)-s.cfg.RecencyCount:]
	}

	seen := make(map[uuid.UUID]struct{})
	var selected []types.Message
	for _, msg := range relevant {
		if _, ok := seen[msg.ID]; ok {
			continue
		}
		seen[msg.ID] = struct{}{}
		selected = append(selected, msg)
	}
	for _, msg := range recent {
		if _, ok := seen[msg.ID]; ok {
			continue
		}
		seen[msg.ID] = struct{}{}
		selected = append(selected, msg)
	}

	if len(selected) > s.cfg.MaxContextMessages {
		selected = selected[len(selected)-s.cfg.MaxContextMessages:]
	}
	return selected
}
