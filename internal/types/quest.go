package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleModel MessageRole = "model"
)

// Quest represents one ongoing dialogue between a child and the guide.
type Quest struct {
	ID            uuid.UUID `json:"id"`
	UserID        string    `json:"user_id"`
	Title         *string   `json:"title"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// Message represents a single message in a quest. Messages are immutable
// once persisted and totally ordered by CreatedAt within a quest.
type Message struct {
	ID        uuid.UUID       `json:"id"`
	QuestID   uuid.UUID       `json:"quest_id"`
	UserID    string          `json:"user_id"`
	Role      MessageRole     `json:"role"`
	Content   MessageContent  `json:"content"`
	Embedding []float32       `json:"-"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// QuestWithMessages includes a quest and its full message log.
type QuestWithMessages struct {
	Quest
	Messages []Message `json:"messages"`
}
