package models

import "time"

// PlayerPresence mirrors a hub registry entry into Redis so other services
// can see who is online without talking to the hub.
type PlayerPresence struct {
	PlayerID  string    `json:"player_id"`
	SessionID string    `json:"session_id"`
	View      View      `json:"view"`
	Status    string    `json:"status"`
	LastSeen  time.Time `json:"last_seen"`
}

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)
