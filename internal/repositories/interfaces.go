package repositories

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/joelikeyan/Open-world-game/internal/models"
)

type PlayerRepository interface {
	Ensure(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, id string) (*models.Player, error)
	List(ctx context.Context) ([]*models.Player, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ListActive(ctx context.Context) ([]*models.Session, error)
	End(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

type PositionRepository interface {
	Save(ctx context.Context, position *models.SavedPosition) error
	Load(ctx context.Context, playerID string) (json.RawMessage, error)
}

type PresenceRepository interface {
	SetPresence(ctx context.Context, presence *models.PlayerPresence) error
	DeletePresence(ctx context.Context, playerID string) error
	ListOnline(ctx context.Context) ([]models.PlayerPresence, error)
}
