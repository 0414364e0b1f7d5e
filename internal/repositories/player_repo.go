package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joelikeyan/Open-world-game/internal/models"
)

var ErrNotFound = errors.New("not found")

type PostgresPlayerRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresPlayerRepository(pool *pgxpool.Pool) *PostgresPlayerRepository {
	return &PostgresPlayerRepository{pool: pool}
}

// Ensure creates the player profile or refreshes its display name and
// avatar when it already exists.
func (r *PostgresPlayerRepository) Ensure(ctx context.Context, player *models.Player) error {
	query := `INSERT INTO players (id, display_name, avatar_url)
              VALUES ($1, $2, $3)
              ON CONFLICT (id)
              DO UPDATE SET display_name = $2, avatar_url = $3, updated_at = NOW()
              RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, player.ID, player.DisplayName, player.AvatarURL).
		Scan(&player.CreatedAt, &player.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to ensure player: %w", err)
	}
	return nil
}

func (r *PostgresPlayerRepository) GetByID(ctx context.Context, id string) (*models.Player, error) {
	query := `SELECT id, display_name, avatar_url, created_at, updated_at FROM players WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)

	var player models.Player
	err := row.Scan(&player.ID, &player.DisplayName, &player.AvatarURL, &player.CreatedAt, &player.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return &player, nil
}

func (r *PostgresPlayerRepository) List(ctx context.Context) ([]*models.Player, error) {
	query := `SELECT id, display_name, avatar_url, created_at, updated_at
              FROM players ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		var player models.Player
		if err := rows.Scan(&player.ID, &player.DisplayName, &player.AvatarURL, &player.CreatedAt, &player.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, &player)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read players: %w", err)
	}
	return players, nil
}
