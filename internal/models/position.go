package models

import (
	"encoding/json"
	"time"
)

// Vec3 is a position or direction in world coordinates.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// SavedPosition is the durable last-known transform for a player, one row per
// player. Payload carries position/rotation/velocity as the client sent them.
type SavedPosition struct {
	PlayerID  string          `json:"player_id"`
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PositionPayload is the shape stored inside SavedPosition.Payload.
type PositionPayload struct {
	Position *Vec3     `json:"position,omitempty"`
	Rotation *Vec3     `json:"rotation,omitempty"`
	Velocity *Vec3     `json:"velocity,omitempty"`
	SavedAt  time.Time `json:"savedAt"`
}
