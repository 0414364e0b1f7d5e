package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

type Session struct {
	ID          uuid.UUID       `json:"id"`
	PlayerID    string          `json:"player_id"`
	Status      SessionStatus   `json:"status"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	DisplayName string          `json:"display_name,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	EndedAt     *time.Time      `json:"ended_at,omitempty"`
}
