package models

import "encoding/json"

type EventType string

const (
	EventJoin            EventType = "join"
	EventLeave           EventType = "leave"
	EventPresenceUpdate  EventType = "presence:update"
	EventAnimationUpdate EventType = "animation:update"
	EventCombat          EventType = "combat:event"
)

// Event is a single broadcast entry. Once appended to the event log it is
// immutable; the same stamped value fans out to connections and answers
// replay queries. Timestamp is Unix milliseconds.
type Event struct {
	Type      EventType       `json:"type"`
	PlayerID  string          `json:"playerId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	View      View            `json:"view,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}
