package agent

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/joelikeyan/Open-world-game/internal/models"
)

// ConnState is the agent's connection lifecycle state.
type ConnState int32

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ProtocolError is an error envelope received from the hub.
type ProtocolError struct {
	Code string
}

func (e *ProtocolError) Error() string {
	return "server error: " + e.Code
}

type Options struct {
	URL       string
	PlayerID  string
	SessionID string
	View      models.View

	InitialBackoff      time.Duration
	MaxBackoff          time.Duration
	InterpolationWindow time.Duration
	Dialer              *websocket.Dialer
}

// Handlers are the application's notification callbacks. Every field is
// optional. Handlers run on the agent's read goroutine and must not block.
type Handlers struct {
	Connected    func()
	Disconnected func()
	Joined       func(playerID, sessionID string, view models.View)
	Presence     func(models.Event)
	Animation    func(models.Event)
	Combat       func(models.Event)
	Replay       func([]models.Event)
	Error        func(error)
	Message      func(models.Event)
}

// clientEnvelope matches the hub's inbound wire shape.
type clientEnvelope struct {
	Type      string      `json:"type"`
	PlayerID  string      `json:"playerId,omitempty"`
	SessionID string      `json:"sessionId,omitempty"`
	View      models.View `json:"view,omitempty"`
	Payload   any         `json:"payload,omitempty"`
	Since     int64       `json:"since,omitempty"`
}

// serverMessage is the superset of everything the hub sends down.
type serverMessage struct {
	Type      string          `json:"type"`
	PlayerID  string          `json:"playerId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	View      models.View     `json:"view,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Events    []models.Event  `json:"events,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func (m serverMessage) toEvent() models.Event {
	return models.Event{
		Type:      models.EventType(m.Type),
		PlayerID:  m.PlayerID,
		SessionID: m.SessionID,
		View:      m.View,
		Payload:   m.Payload,
		Timestamp: m.Timestamp,
	}
}

// Agent is the client-side half of the protocol. It hides the transport
// lifecycle from the application: sends while offline are queued, a dropped
// connection is retried forever with exponential backoff, and remote entity
// state is reconciled and served through the tracker. No method blocks the
// caller; results arrive via Handlers.
type Agent struct {
	opts     Options
	handlers Handlers
	dialer   *websocket.Dialer
	tracker  *Tracker
	backoff  *backoff.ExponentialBackOff

	mu         sync.Mutex
	state      ConnState
	ws         *websocket.Conn
	queue      [][]byte
	retryTimer *time.Timer
	attempts   int
}

func New(opts Options, handlers Handlers) *Agent {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Agent{
		opts:     opts,
		handlers: handlers,
		dialer:   dialer,
		tracker:  NewTracker(opts.PlayerID, opts.InterpolationWindow),
		backoff:  newReconnectBackoff(opts.InitialBackoff, opts.MaxBackoff),
	}
}

// Tracker exposes the remote-state records for interpolation queries.
func (a *Agent) Tracker() *Tracker {
	return a.tracker
}

// State reports the current connection lifecycle state.
func (a *Agent) State() ConnState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Attempts reports the consecutive reconnect attempts since the last open.
func (a *Agent) Attempts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attempts
}

// Queued reports how many messages are waiting for the next open.
func (a *Agent) Queued() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

// Connect starts dialing unless a connection is already connecting or open.
// Any pending retry timer is cancelled; the dial itself runs off-caller.
func (a *Agent) Connect() {
	a.mu.Lock()
	if a.state == StateConnecting || a.state == StateOpen {
		a.mu.Unlock()
		return
	}
	a.cancelRetryLocked()
	a.state = StateConnecting
	a.mu.Unlock()

	go a.dial()
}

// Disconnect closes the connection and stops any pending reconnect. The
// agent stays reusable: a later Connect starts over.
func (a *Agent) Disconnect() {
	a.mu.Lock()
	a.cancelRetryLocked()
	switch a.state {
	case StateOpen:
		a.state = StateClosing
		ws := a.ws
		a.mu.Unlock()
		ws.Close()
	case StateConnecting:
		// The in-flight dial observes the state change and discards the
		// socket it may win.
		a.state = StateClosed
		a.mu.Unlock()
	default:
		a.state = StateClosed
		a.mu.Unlock()
	}
}

func (a *Agent) dial() {
	ws, _, err := a.dialer.Dial(a.opts.URL, nil)
	if err != nil {
		a.mu.Lock()
		if a.state == StateConnecting {
			a.state = StateIdle
			a.scheduleReconnectLocked()
		}
		a.mu.Unlock()
		a.notifyError(fmt.Errorf("dial %s: %w", a.opts.URL, err))
		return
	}

	a.mu.Lock()
	if a.state != StateConnecting {
		a.mu.Unlock()
		ws.Close()
		return
	}
	a.ws = ws
	a.state = StateOpen
	a.backoff.Reset()
	a.attempts = 0

	// Announce identity first, then drain everything queued while offline,
	// in the order it was sent.
	writeErr := a.writeLocked(mustMarshal(clientEnvelope{
		Type:      "join",
		PlayerID:  a.opts.PlayerID,
		SessionID: a.opts.SessionID,
		View:      a.opts.View.OrDefault(),
	}))
	for writeErr == nil && len(a.queue) > 0 {
		next := a.queue[0]
		a.queue = a.queue[1:]
		writeErr = a.writeLocked(next)
	}
	a.mu.Unlock()

	if writeErr != nil {
		a.notifyError(fmt.Errorf("flush after open: %w", writeErr))
		ws.Close()
	}

	if a.handlers.Connected != nil {
		a.handlers.Connected()
	}
	go a.readLoop(ws)
}

func (a *Agent) readLoop(ws *websocket.Conn) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			a.handleClose(ws)
			return
		}
		a.dispatch(raw)
	}
}

func (a *Agent) handleClose(ws *websocket.Conn) {
	ws.Close()

	a.mu.Lock()
	if a.ws != ws {
		// A newer connection already took over.
		a.mu.Unlock()
		return
	}
	a.ws = nil
	if a.state == StateClosing {
		a.state = StateClosed
	} else {
		a.state = StateIdle
		a.scheduleReconnectLocked()
	}
	a.mu.Unlock()

	if a.handlers.Disconnected != nil {
		a.handlers.Disconnected()
	}
}

// scheduleReconnectLocked arms a single retry timer, replacing any pending
// one. Delays grow as min(initial * 2^attempt, max) with no retry cap.
func (a *Agent) scheduleReconnectLocked() {
	delay := a.backoff.NextBackOff()
	a.attempts++
	a.cancelRetryLocked()
	a.retryTimer = time.AfterFunc(delay, a.Connect)
}

func (a *Agent) cancelRetryLocked() {
	if a.retryTimer != nil {
		a.retryTimer.Stop()
		a.retryTimer = nil
	}
}

// Send transmits immediately when connected, otherwise queues the message
// for the next open. It never fails for being offline.
func (a *Agent) Send(msgType string, payload any) {
	data, err := json.Marshal(clientEnvelope{Type: msgType, Payload: payload})
	if err != nil {
		a.notifyError(fmt.Errorf("marshal %s: %w", msgType, err))
		return
	}

	a.mu.Lock()
	if a.state != StateOpen {
		a.queue = append(a.queue, data)
		a.mu.Unlock()
		return
	}
	err = a.writeLocked(data)
	a.mu.Unlock()

	if err != nil {
		a.notifyError(fmt.Errorf("send %s: %w", msgType, err))
	}
}

func (a *Agent) SendPresence(presence any) {
	a.Send(string(models.EventPresenceUpdate), presence)
}

func (a *Agent) SendAnimation(animation any) {
	a.Send(string(models.EventAnimationUpdate), animation)
}

func (a *Agent) SendCombat(event any) {
	a.Send(string(models.EventCombat), event)
}

// RequestReplay asks the hub for events with timestamps >= since. Zero
// requests the full retained history.
func (a *Agent) RequestReplay(since int64) {
	data, err := json.Marshal(clientEnvelope{Type: "replay", Since: since})
	if err != nil {
		a.notifyError(err)
		return
	}

	a.mu.Lock()
	if a.state != StateOpen {
		a.queue = append(a.queue, data)
		a.mu.Unlock()
		return
	}
	err = a.writeLocked(data)
	a.mu.Unlock()

	if err != nil {
		a.notifyError(fmt.Errorf("send replay: %w", err))
	}
}

func (a *Agent) writeLocked(data []byte) error {
	a.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return a.ws.WriteMessage(websocket.TextMessage, data)
}

// dispatch routes an inbound message. Presence updates (live or replayed)
// feed the tracker; everything else is surfaced as a notification without
// touching reconciliation state.
func (a *Agent) dispatch(raw []byte) {
	var msg serverMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		a.notifyError(fmt.Errorf("malformed server message: %w", err))
		return
	}

	switch msg.Type {
	case string(models.EventPresenceUpdate):
		event := msg.toEvent()
		a.tracker.Track(event)
		if a.handlers.Presence != nil {
			a.handlers.Presence(event)
		}
	case string(models.EventAnimationUpdate):
		if a.handlers.Animation != nil {
			a.handlers.Animation(msg.toEvent())
		}
	case string(models.EventCombat):
		if a.handlers.Combat != nil {
			a.handlers.Combat(msg.toEvent())
		}
	case string(models.EventLeave):
		a.tracker.Evict(msg.PlayerID)
		if a.handlers.Message != nil {
			a.handlers.Message(msg.toEvent())
		}
	case "joined":
		if a.handlers.Joined != nil {
			a.handlers.Joined(msg.PlayerID, msg.SessionID, msg.View)
		}
	case "replay:response":
		for _, event := range msg.Events {
			switch event.Type {
			case models.EventPresenceUpdate:
				a.tracker.Track(event)
			case models.EventLeave:
				a.tracker.Evict(event.PlayerID)
			}
		}
		if a.handlers.Replay != nil {
			a.handlers.Replay(msg.Events)
		}
	case "error":
		a.notifyError(&ProtocolError{Code: msg.Error})
	default:
		if a.handlers.Message != nil {
			a.handlers.Message(msg.toEvent())
		}
	}
}

func (a *Agent) notifyError(err error) {
	if a.handlers.Error != nil {
		a.handlers.Error(err)
		return
	}
	log.Printf("network agent: %v", err)
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
