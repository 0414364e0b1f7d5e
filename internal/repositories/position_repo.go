package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joelikeyan/Open-world-game/internal/models"
)

type PostgresPositionRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresPositionRepository(pool *pgxpool.Pool) *PostgresPositionRepository {
	return &PostgresPositionRepository{pool: pool}
}

// Save upserts the single last-known position row for a player.
func (r *PostgresPositionRepository) Save(ctx context.Context, position *models.SavedPosition) error {
	query := `INSERT INTO player_positions (player_id, session_id, payload)
              VALUES ($1, $2, $3)
              ON CONFLICT (player_id)
              DO UPDATE SET session_id = $2, payload = $3, updated_at = NOW()
              RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query, position.PlayerID, position.SessionID, position.Payload).
		Scan(&position.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

func (r *PostgresPositionRepository) Load(ctx context.Context, playerID string) (json.RawMessage, error) {
	query := `SELECT payload FROM player_positions WHERE player_id = $1`

	var payload json.RawMessage
	err := r.pool.QueryRow(ctx, query, playerID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load position: %w", err)
	}
	return payload, nil
}
