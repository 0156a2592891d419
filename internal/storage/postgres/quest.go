package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dexterslab/plural-backend/internal/types"
)

// ErrNotFound is returned when a resource is not found.
var ErrNotFound = errors.New("not found")

// QuestRepository handles database operations for quests.
type QuestRepository struct {
	pool *pgxpool.Pool
}

// NewQuestRepository creates a new QuestRepository.
func NewQuestRepository(pool *pgxpool.Pool) *QuestRepository {
	return &QuestRepository{pool: pool}
}

func scanQuest(row pgx.Row) (*types.Quest, error) {
	var (
		id        pgtype.UUID
		userID    string
		title     pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &userID, &title, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return &types.Quest{
		ID:            pgtypeToUUID(id),
		UserID:        userID,
		Title:         pgtextToStringPtr(title),
		CreatedAt:     pgtimestamptzToTime(createdAt),
		LastUpdatedAt: pgtimestamptzToTime(updatedAt),
	}, nil
}

// Create creates a new quest for the given user.
func (r *QuestRepository) Create(ctx context.Context, userID string, title *string) (*types.Quest, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO quests (user_id, title)
		VALUES ($1, $2)
		RETURNING id, user_id, title, created_at, last_updated_at`,
		userID, stringPtrToPgtext(title))

	quest, err := scanQuest(row)
	if err != nil {
		return nil, fmt.Errorf("create quest: %w", err)
	}
	return quest, nil
}

// GetByID returns a quest if it exists and belongs to the given user.
func (r *QuestRepository) GetByID(ctx context.Context, id uuid.UUID, userID string) (*types.Quest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, title, created_at, last_updated_at
		FROM quests
		WHERE id = $1 AND user_id = $2`,
		uuidToPgtype(id), userID)

	quest, err := scanQuest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get quest: %w", err)
	}
	return quest, nil
}

// GetWithMessages returns a quest with its full message log.
func (r *QuestRepository) GetWithMessages(ctx context.Context, id uuid.UUID, userID string) (*types.QuestWithMessages, error) {
	quest, err := r.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, quest_id, user_id, role, content, metadata, created_at
		FROM messages
		WHERE quest_id = $1
		ORDER BY created_at ASC`,
		uuidToPgtype(id))
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}

	return &types.QuestWithMessages{
		Quest:    *quest,
		Messages: msgs,
	}, nil
}

// List returns all quests for a user, most recently updated first.
func (r *QuestRepository) List(ctx context.Context, userID string) ([]types.Quest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, title, created_at, last_updated_at
		FROM quests
		WHERE user_id = $1
		ORDER BY last_updated_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	defer rows.Close()

	var quests []types.Quest
	for rows.Next() {
		quest, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("list quests: %w", err)
		}
		quests = append(quests, *quest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	return quests, nil
}

// Delete removes a quest and, via cascade, all its messages.
func (r *QuestRepository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM quests
		WHERE id = $1 AND user_id = $2`,
		uuidToPgtype(id), userID)
	if err != nil {
		return fmt.Errorf("delete quest: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
