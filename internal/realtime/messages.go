package realtime

import (
	"encoding/json"

	"github.com/joelikeyan/Open-world-game/internal/models"
)

// Message type strings the hub accepts beyond the broadcastable event kinds.
const (
	msgJoin   = "join"
	msgReplay = "replay"
)

// Error codes sent back to an offending connection.
const (
	errInvalidJSON        = "invalid_json"
	errUnknownType        = "unknown_type"
	errMissingIdentifiers = "missing_identifiers"
	errJoinRequired       = "join_required"
)

// clientMessage is the inbound wire envelope. Payload is kept raw so update
// bodies pass through the hub untouched.
type clientMessage struct {
	Type      string          `json:"type"`
	PlayerID  string          `json:"playerId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	View      models.View     `json:"view,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Since     int64           `json:"since,omitempty"`
}

type connectedMessage struct {
	Type string `json:"type"`
}

type joinedMessage struct {
	Type      string      `json:"type"`
	PlayerID  string      `json:"playerId"`
	SessionID string      `json:"sessionId"`
	View      models.View `json:"view"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type replayResponse struct {
	Type   string         `json:"type"`
	Events []models.Event `json:"events"`
}

func newErrorMessage(code string) errorMessage {
	return errorMessage{Type: "error", Error: code}
}
