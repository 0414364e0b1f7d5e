package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/joelikeyan/Open-world-game/internal/models"
)

// ErrNoTransport is returned by Start when the hub has neither a listen
// address nor an attached handler to accept connections from.
var ErrNoTransport = errors.New("presence hub requires a listen address or an attached handler")

const presenceWriteTimeout = 5 * time.Second

// PresenceStore mirrors hub registry changes into an external store so other
// services can observe who is online. A nil store disables mirroring.
type PresenceStore interface {
	SetPresence(ctx context.Context, presence *models.PlayerPresence) error
	DeletePresence(ctx context.Context, playerID string) error
}

type Options struct {
	// Addr makes the hub run its own listener. Leave empty when the handler
	// is mounted on an existing server via Handler.
	Addr              string
	HeartbeatInterval time.Duration
	LogCapacity       int
	Presence          PresenceStore
}

type playerEntry struct {
	conn      *conn
	sessionID string
	view      models.View
}

// Hub is the authoritative in-memory broadcast point for one process. It
// owns the set of live connections, the presence registry and the event log.
// All registry mutation happens under mu; fan-out iterates a snapshot so a
// connection closing mid-broadcast cannot corrupt the loop.
type Hub struct {
	mu      sync.Mutex
	conns   map[*conn]struct{}
	players map[string]*playerEntry

	log      *EventLog
	presence PresenceStore
	interval time.Duration
	upgrader websocket.Upgrader

	addr     string
	attached bool
	listener net.Listener
	server   *http.Server
	done     chan struct{}
	started  bool
	stopped  bool
}

func NewHub(opts Options) *Hub {
	interval := opts.HeartbeatInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Hub{
		conns:    make(map[*conn]struct{}),
		players:  make(map[string]*playerEntry),
		log:      NewEventLog(opts.LogCapacity),
		presence: opts.Presence,
		interval: interval,
		addr:     opts.Addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler exposes the websocket upgrade endpoint for mounting on an existing
// server. Calling it satisfies the transport requirement checked by Start.
func (h *Hub) Handler() http.Handler {
	h.mu.Lock()
	h.attached = true
	h.mu.Unlock()
	return http.HandlerFunc(h.serveWS)
}

// Start begins accepting connections and launches the liveness sweep.
func (h *Hub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return nil
	}
	if h.addr == "" && !h.attached {
		return ErrNoTransport
	}

	if h.addr != "" {
		listener, err := net.Listen("tcp", h.addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", h.addr, err)
		}
		h.listener = listener
		h.server = &http.Server{Handler: http.HandlerFunc(h.serveWS)}
		go h.server.Serve(listener)
	}

	h.done = make(chan struct{})
	go h.sweepLoop()
	h.started = true
	return nil
}

// Stop cancels the liveness sweep, closes the listener and clears the
// registry. Safe to call more than once.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.started || h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	close(h.done)

	conns := h.conns
	h.conns = make(map[*conn]struct{})
	h.players = make(map[string]*playerEntry)
	server := h.server
	h.mu.Unlock()

	if server != nil {
		server.Close()
	}
	for c := range conns {
		c.closeSend()
		c.ws.Close()
	}
}

// Addr reports the listener address, useful when Addr was ":0".
func (h *Hub) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// Log exposes the event log for replay queries outside the wire protocol.
func (h *Hub) Log() *EventLog {
	return h.log
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	c := newConn(ws)

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		ws.Close()
		return
	}
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	h.sendTo(c, connectedMessage{Type: "connected"})
	h.readPump(c)
}

func (h *Hub) readPump(c *conn) {
	defer h.dropConn(c)

	c.ws.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		h.handleMessage(c, raw)
	}
}

// handleMessage is the per-connection dispatch state machine, keyed on the
// message type.
func (h *Hub) handleMessage(c *conn, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.sendTo(c, newErrorMessage(errInvalidJSON))
		return
	}

	switch msg.Type {
	case msgJoin:
		h.handleJoin(c, msg)
	case string(models.EventPresenceUpdate), string(models.EventAnimationUpdate), string(models.EventCombat):
		h.handleUpdate(c, msg)
	case msgReplay:
		h.handleReplay(c, msg)
	default:
		h.sendTo(c, newErrorMessage(errUnknownType))
	}
}

// handleJoin binds identity to the connection and registers the player.
// A join with missing identifiers is rejected but leaves the connection
// open for a retry.
func (h *Hub) handleJoin(c *conn, msg clientMessage) {
	if msg.PlayerID == "" || msg.SessionID == "" {
		h.sendTo(c, newErrorMessage(errMissingIdentifiers))
		return
	}

	view := msg.View.OrDefault()

	h.mu.Lock()
	c.playerID = msg.PlayerID
	c.sessionID = msg.SessionID
	c.view = view
	// Last join wins when the same player joins twice.
	h.players[msg.PlayerID] = &playerEntry{conn: c, sessionID: msg.SessionID, view: view}
	h.mu.Unlock()

	h.log.Append(models.Event{
		Type:      models.EventJoin,
		PlayerID:  msg.PlayerID,
		SessionID: msg.SessionID,
		View:      view,
	})
	go h.mirrorJoin(msg.PlayerID, msg.SessionID, view)

	h.sendTo(c, joinedMessage{Type: "joined", PlayerID: msg.PlayerID, SessionID: msg.SessionID, View: view})
}

// handleUpdate enriches an update with the sender's identity, logs it and
// fans it out to every open connection, sender included.
func (h *Hub) handleUpdate(c *conn, msg clientMessage) {
	if c.playerID == "" {
		h.sendTo(c, newErrorMessage(errJoinRequired))
		return
	}

	h.broadcastEvent(models.Event{
		Type:      models.EventType(msg.Type),
		PlayerID:  c.playerID,
		SessionID: c.sessionID,
		View:      c.view,
		Payload:   msg.Payload,
	})
}

// handleReplay answers the requesting connection only; replay is never
// broadcast.
func (h *Hub) handleReplay(c *conn, msg clientMessage) {
	events := h.log.Query(msg.Since)
	h.sendTo(c, replayResponse{Type: "replay:response", Events: events})
}

// broadcastEvent appends the event to the log and fans the stamped copy out
// under one critical section, so log order and delivery order agree. The
// enqueue is non-blocking: a connection that cannot keep up is closed and
// left for its read loop to reap, without stalling the others.
func (h *Hub) broadcastEvent(event models.Event) {
	h.mu.Lock()
	stamped := h.log.Append(event)
	data, err := json.Marshal(stamped)
	if err != nil {
		h.mu.Unlock()
		log.Printf("failed to marshal event %s: %v", event.Type, err)
		return
	}

	var stalled []*conn
	for c := range h.conns {
		if !c.trySend(data) {
			stalled = append(stalled, c)
		}
	}
	h.mu.Unlock()

	for _, c := range stalled {
		log.Printf("closing stalled connection during %s broadcast", event.Type)
		c.ws.Close()
	}
}

// dropConn tears a connection down: registry removal first, then channel and
// socket close, then the leave notification. Unjoined disconnects are silent.
func (h *Hub) dropConn(c *conn) {
	h.mu.Lock()
	if _, ok := h.conns[c]; !ok {
		h.mu.Unlock()
		c.closeSend()
		c.ws.Close()
		return
	}
	delete(h.conns, c)

	playerID, sessionID, view := c.playerID, c.sessionID, c.view
	joined := playerID != ""
	if joined {
		if entry, ok := h.players[playerID]; ok && entry.conn == c {
			delete(h.players, playerID)
		} else {
			// A newer connection owns the registry entry now.
			joined = false
		}
	}
	h.mu.Unlock()

	c.closeSend()
	c.ws.Close()

	if joined {
		h.broadcastEvent(models.Event{
			Type:      models.EventLeave,
			PlayerID:  playerID,
			SessionID: sessionID,
			View:      view,
		})
		go h.mirrorLeave(playerID)
	}
}

func (h *Hub) sweepLoop() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

// sweep terminates connections that missed a liveness acknowledgment since
// the previous pass, then challenges the survivors again. Surviving joined
// players get their presence mirror TTL refreshed.
func (h *Hub) sweep() {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if !c.alive.Load() {
			log.Printf("terminating connection after missed heartbeat")
			h.dropConn(c)
			continue
		}
		c.alive.Store(false)
		c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
	}

	if h.presence == nil {
		return
	}
	h.mu.Lock()
	type liveEntry struct {
		playerID, sessionID string
		view                models.View
	}
	live := make([]liveEntry, 0, len(h.players))
	for id, entry := range h.players {
		live = append(live, liveEntry{id, entry.sessionID, entry.view})
	}
	h.mu.Unlock()
	for _, entry := range live {
		go h.mirrorJoin(entry.playerID, entry.sessionID, entry.view)
	}
}

// sendTo marshals and enqueues a reply for a single connection.
func (h *Hub) sendTo(c *conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("failed to marshal reply: %v", err)
		return
	}
	c.trySend(data)
}

func (h *Hub) mirrorJoin(playerID, sessionID string, view models.View) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceWriteTimeout)
	defer cancel()
	presence := &models.PlayerPresence{
		PlayerID:  playerID,
		SessionID: sessionID,
		View:      view,
		Status:    string(models.StatusOnline),
		LastSeen:  time.Now(),
	}
	if err := h.presence.SetPresence(ctx, presence); err != nil {
		log.Printf("failed to mirror presence for %s: %v", playerID, err)
	}
}

func (h *Hub) mirrorLeave(playerID string) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceWriteTimeout)
	defer cancel()
	if err := h.presence.DeletePresence(ctx, playerID); err != nil {
		log.Printf("failed to clear presence for %s: %v", playerID, err)
	}
}
