package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joelikeyan/Open-world-game/internal/models"
)

type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

func (r *PostgresSessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `INSERT INTO sessions (player_id, metadata)
              VALUES ($1, $2)
              RETURNING id, status, created_at`

	err := r.pool.QueryRow(ctx, query, session.PlayerID, session.Metadata).
		Scan(&session.ID, &session.Status, &session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	query := `SELECT id, player_id, status, metadata, created_at, ended_at
              FROM sessions WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)

	var session models.Session
	err := row.Scan(&session.ID, &session.PlayerID, &session.Status, &session.Metadata, &session.CreatedAt, &session.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (r *PostgresSessionRepository) ListActive(ctx context.Context) ([]*models.Session, error) {
	query := `SELECT s.id, s.player_id, s.status, s.metadata, s.created_at, s.ended_at, p.display_name
              FROM sessions s
              JOIN players p ON p.id = s.player_id
              WHERE s.status = 'active'
              ORDER BY s.created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		var session models.Session
		if err := rows.Scan(&session.ID, &session.PlayerID, &session.Status, &session.Metadata, &session.CreatedAt, &session.EndedAt, &session.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	return sessions, nil
}

// End marks the session ended and returns the updated row.
func (r *PostgresSessionRepository) End(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	query := `UPDATE sessions
              SET status = 'ended', ended_at = NOW()
              WHERE id = $1
              RETURNING id, player_id, status, metadata, created_at, ended_at`

	row := r.pool.QueryRow(ctx, query, id)

	var session models.Session
	err := row.Scan(&session.ID, &session.PlayerID, &session.Status, &session.Metadata, &session.CreatedAt, &session.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}
	return &session, nil
}
