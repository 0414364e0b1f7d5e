package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joelikeyan/Open-world-game/internal/models"
	"github.com/joelikeyan/Open-world-game/internal/repositories"
)

// Handler serves the bookkeeping REST surface around the realtime hub:
// player profiles, play sessions, saved positions and the online mirror.
type Handler struct {
	players   repositories.PlayerRepository
	sessions  repositories.SessionRepository
	positions repositories.PositionRepository
	presence  repositories.PresenceRepository
}

func NewHandler(
	players repositories.PlayerRepository,
	sessions repositories.SessionRepository,
	positions repositories.PositionRepository,
	presence repositories.PresenceRepository,
) *Handler {
	return &Handler{
		players:   players,
		sessions:  sessions,
		positions: positions,
		presence:  presence,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.health)

	r.Post("/players", h.createPlayer)
	r.Get("/players", h.listPlayers)
	r.Get("/players/{playerID}", h.getPlayer)
	r.Post("/players/{playerID}/position", h.savePosition)
	r.Get("/players/{playerID}/position", h.loadPosition)

	r.Post("/sessions", h.createSession)
	r.Get("/sessions/active", h.listActiveSessions)
	r.Get("/sessions/{sessionID}", h.getSession)
	r.Delete("/sessions/{sessionID}", h.endSession)

	r.Get("/presence", h.listPresence)

	return r
}

type playerRequest struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

type sessionRequest struct {
	PlayerID    string          `json:"playerId"`
	DisplayName string          `json:"displayName"`
	AvatarURL   string          `json:"avatarUrl"`
	Metadata    json.RawMessage `json:"metadata"`
}

type positionRequest struct {
	SessionID string       `json:"sessionId"`
	Position  *models.Vec3 `json:"position"`
	Rotation  *models.Vec3 `json:"rotation"`
	Velocity  *models.Vec3 `json:"velocity"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) createPlayer(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	player := &models.Player{ID: req.PlayerID, DisplayName: req.DisplayName, AvatarURL: req.AvatarURL}
	if err := h.players.Ensure(r.Context(), player); err != nil {
		internalError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, player)
}

func (h *Handler) listPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.players.List(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	if players == nil {
		players = []*models.Player{}
	}
	respondJSON(w, http.StatusOK, players)
}

func (h *Handler) getPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := h.players.GetByID(r.Context(), chi.URLParam(r, "playerID"))
	if errors.Is(err, repositories.ErrNotFound) {
		respondError(w, http.StatusNotFound, "player_not_found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, player)
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	// The profile is ensured first so the session's foreign key holds.
	player := &models.Player{ID: req.PlayerID, DisplayName: req.DisplayName, AvatarURL: req.AvatarURL}
	if err := h.players.Ensure(r.Context(), player); err != nil {
		internalError(w, err)
		return
	}

	session := &models.Session{PlayerID: player.ID, Metadata: req.Metadata}
	if err := h.sessions.Create(r.Context(), session); err != nil {
		internalError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

func (h *Handler) listActiveSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.ListActive(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*models.Session{}
	}
	respondJSON(w, http.StatusOK, sessions)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found")
		return
	}

	session, err := h.sessions.GetByID(r.Context(), id)
	if errors.Is(err, repositories.ErrNotFound) {
		respondError(w, http.StatusNotFound, "session_not_found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found")
		return
	}

	session, err := h.sessions.End(r.Context(), id)
	if errors.Is(err, repositories.ErrNotFound) {
		respondError(w, http.StatusNotFound, "session_not_found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *Handler) savePosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	payload, err := json.Marshal(models.PositionPayload{
		Position: req.Position,
		Rotation: req.Rotation,
		Velocity: req.Velocity,
		SavedAt:  time.Now().UTC(),
	})
	if err != nil {
		internalError(w, err)
		return
	}

	position := &models.SavedPosition{
		PlayerID:  chi.URLParam(r, "playerID"),
		SessionID: req.SessionID,
		Payload:   payload,
	}
	if err := h.positions.Save(r.Context(), position); err != nil {
		internalError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, position)
}

func (h *Handler) loadPosition(w http.ResponseWriter, r *http.Request) {
	payload, err := h.positions.Load(r.Context(), chi.URLParam(r, "playerID"))
	if errors.Is(err, repositories.ErrNotFound) {
		respondError(w, http.StatusNotFound, "position_not_found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func (h *Handler) listPresence(w http.ResponseWriter, r *http.Request) {
	online, err := h.presence.ListOnline(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, online)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code string) {
	respondJSON(w, status, map[string]string{"error": code})
}

func internalError(w http.ResponseWriter, err error) {
	log.Printf("internal error: %v", err)
	respondError(w, http.StatusInternalServerError, "internal_server_error")
}
