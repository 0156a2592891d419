// Package turn implements one complete response cycle of the guide: given a
// quest whose latest message came from the child, it selects a bounded
// context window from the quest's history, normalizes the latest message's
// content, assembles a strictly role-alternating dialogue, invokes the
// generation model, derives follow-up suggestions, and persists the
// resulting model message.
package turn

import (
	"context"

	"github.com/google/uuid"

	"github.com/dexterslab/plural-backend/internal/types"
)

// MessageStore is the persistence surface the turn pipeline needs.
type MessageStore interface {
	GetByQuestID(ctx context.Context, questID uuid.UUID) ([]types.Message, error)
	FindSimilar(ctx context.Context, questID uuid.UUID, embedding []float32, threshold float64, count int) ([]types.Message, error)
	Create(ctx context.Context, msg *types.Message) error
}

// Generator produces model output for an assembled dialogue.
type Generator interface {
	Generate(ctx context.Context, turns []types.DialogueTurn) (string, error)
	GenerateJSON(ctx context.Context, turns []types.DialogueTurn) (string, error)
}

// Embedder turns text into a fixed-length embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// PromptSource resolves the effective persona instruction for a user.
type PromptSource interface {
	EffectivePrompt(ctx context.Context, userID string) string
}

// ImageStore uploads image bytes and returns a public URL.
type ImageStore interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
}
