package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/dexterslab/plural-backend/internal/types"
)

// Defaults for the general-purpose relevance query, used when the caller
// passes zero values. The per-turn retrieval call-site configures its own
// tighter threshold and count.
const (
	DefaultMatchThreshold = 0.7
	DefaultMatchCount     = 5
)

// MessageRepository handles database operations for messages.
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func scanMessage(row pgx.Row) (*types.Message, error) {
	var (
		id        pgtype.UUID
		questID   pgtype.UUID
		userID    string
		role      string
		content   []byte
		metadata  []byte
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &questID, &userID, &role, &content, &metadata, &createdAt); err != nil {
		return nil, err
	}

	msg := &types.Message{
		ID:        pgtypeToUUID(id),
		QuestID:   pgtypeToUUID(questID),
		UserID:    userID,
		Role:      types.MessageRole(role),
		Metadata:  json.RawMessage(metadata),
		CreatedAt: pgtimestamptzToTime(createdAt),
	}
	if err := json.Unmarshal(content, &msg.Content); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	return msg, nil
}

func scanMessages(rows pgx.Rows) ([]types.Message, error) {
	var msgs []types.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Create inserts a message and bumps the parent quest's last_updated_at in
// one transaction. The input message is updated with generated values.
func (r *MessageRepository) Create(ctx context.Context, msg *types.Message) error {
	content, err := json.Marshal(msg.Content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	var metadata []byte
	if len(msg.Metadata) > 0 {
		metadata = msg.Metadata
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO messages (quest_id, user_id, role, content, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		uuidToPgtype(msg.QuestID), msg.UserID, string(msg.Role), content,
		embeddingToVector(msg.Embedding), metadata)

	var (
		id        pgtype.UUID
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &createdAt); err != nil {
		return fmt.Errorf("create message: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE quests SET last_updated_at = now() WHERE id = $1`,
		uuidToPgtype(msg.QuestID)); err != nil {
		return fmt.Errorf("touch quest: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	msg.ID = pgtypeToUUID(id)
	msg.CreatedAt = pgtimestamptzToTime(createdAt)
	return nil
}

// GetByQuestID returns all messages for a quest, ordered by creation time.
func (r *MessageRepository) GetByQuestID(ctx context.Context, questID uuid.UUID) ([]types.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, quest_id, user_id, role, content, metadata, created_at
		FROM messages
		WHERE quest_id = $1
		ORDER BY created_at ASC`,
		uuidToPgtype(questID))
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	return msgs, nil
}

// FindSimilar returns up to count messages in the quest whose embeddings
// have cosine similarity at or above threshold with the query embedding,
// most similar first. Zero-valued threshold/count use the general-purpose
// defaults.
func (r *MessageRepository) FindSimilar(ctx context.Context, questID uuid.UUID, embedding []float32, threshold float64, count int) ([]types.Message, error) {
	if threshold == 0 {
		threshold = DefaultMatchThreshold
	}
	if count == 0 {
		count = DefaultMatchCount
	}

	query := pgvector.NewVector(embedding)
	rows, err := r.pool.Query(ctx, `
		SELECT id, quest_id, user_id, role, content, metadata, created_at
		FROM messages
		WHERE quest_id = $1
		  AND embedding IS NOT NULL
		  AND 1 - (embedding <=> $2) >= $3
		ORDER BY embedding <=> $2
		LIMIT $4`,
		uuidToPgtype(questID), query, threshold, count)
	if err != nil {
		return nil, fmt.Errorf("find similar messages: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, fmt.Errorf("find similar messages: %w", err)
	}
	return msgs, nil
}
