package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GuideRepository handles persistence of per-user custom guide prompts.
type GuideRepository struct {
	pool *pgxpool.Pool
}

// NewGuideRepository creates a new GuideRepository.
func NewGuideRepository(pool *pgxpool.Pool) *GuideRepository {
	return &GuideRepository{pool: pool}
}

// Get returns the user's custom guide prompt. Returns nil if no row exists.
func (r *GuideRepository) Get(ctx context.Context, userID string) (*string, error) {
	var prompt string
	err := r.pool.QueryRow(ctx, `
		SELECT prompt FROM guide_prompts WHERE user_id = $1`,
		userID).Scan(&prompt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get guide prompt: %w", err)
	}
	return &prompt, nil
}

// Upsert inserts or updates the user's custom guide prompt.
func (r *GuideRepository) Upsert(ctx context.Context, userID, prompt string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO guide_prompts (user_id, prompt, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id)
		DO UPDATE SET prompt = EXCLUDED.prompt, updated_at = now()`,
		userID, prompt)
	if err != nil {
		return fmt.Errorf("upsert guide prompt: %w", err)
	}
	return nil
}
