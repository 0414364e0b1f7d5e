package agent

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelikeyan/Open-world-game/internal/models"
	"github.com/joelikeyan/Open-world-game/internal/realtime"
)

const testWaitTimeout = 3 * time.Second

func startTestHub(t *testing.T) string {
	t.Helper()
	hub := realtime.NewHub(realtime.Options{})
	server := httptest.NewServer(hub.Handler())
	t.Cleanup(server.Close)
	require.NoError(t, hub.Start())
	t.Cleanup(hub.Stop)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// rawClient is a plain websocket peer for observing what the agent sends.
type rawClient struct {
	t  *testing.T
	ws *websocket.Conn
}

func newRawClient(t *testing.T, url, playerID, sessionID string) *rawClient {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	c := &rawClient{t: t, ws: ws}
	require.Equal(t, "connected", c.read()["type"])

	require.NoError(t, ws.WriteJSON(map[string]any{
		"type": "join", "playerId": playerID, "sessionId": sessionID,
	}))
	require.Equal(t, "joined", c.read()["type"])
	return c
}

func (c *rawClient) read() map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.ws.SetReadDeadline(time.Now().Add(testWaitTimeout)))
	_, raw, err := c.ws.ReadMessage()
	require.NoError(c.t, err, "expected a message before the read deadline")

	var msg map[string]any
	require.NoError(c.t, json.Unmarshal(raw, &msg))
	return msg
}

func (c *rawClient) send(v any) {
	c.t.Helper()
	require.NoError(c.t, c.ws.WriteJSON(v))
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(testWaitTimeout):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestAgent_OfflineSendsQueueAndDrainInOrder(t *testing.T) {
	// ARRANGE: an observer already in the broadcast domain
	url := startTestHub(t)
	observer := newRawClient(t, url, "observer", "s1")

	joined := make(chan struct{}, 1)
	a := New(Options{URL: url, PlayerID: "hero", SessionID: "s1"}, Handlers{
		Joined: func(string, string, models.View) { joined <- struct{}{} },
	})

	// ACT: send while idle, then connect
	for seq := 1; seq <= 3; seq++ {
		a.SendPresence(map[string]any{"seq": seq})
	}
	require.Equal(t, 3, a.Queued())

	a.Connect()
	waitSignal(t, joined, "join ack")

	// ASSERT: the observer sees the queued updates in send order
	for seq := 1; seq <= 3; seq++ {
		msg := observer.read()
		require.Equal(t, "presence:update", msg["type"])
		assert.Equal(t, "hero", msg["playerId"])
		payload := msg["payload"].(map[string]any)
		assert.Equal(t, float64(seq), payload["seq"])
	}
	assert.Equal(t, 0, a.Queued())
	assert.Equal(t, StateOpen, a.State())
}

func TestAgent_ConnectIsIdempotent(t *testing.T) {
	url := startTestHub(t)
	observer := newRawClient(t, url, "observer", "s1")

	joined := make(chan struct{}, 4)
	a := New(Options{URL: url, PlayerID: "hero", SessionID: "s1"}, Handlers{
		Joined: func(string, string, models.View) { joined <- struct{}{} },
	})

	a.Connect()
	waitSignal(t, joined, "join ack")
	a.Connect()
	a.Connect()

	// Still one live connection: exactly one update arrives per send.
	a.SendPresence(map[string]any{"seq": 1})
	msg := observer.read()
	assert.Equal(t, "presence:update", msg["type"])

	require.NoError(t, observer.ws.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := observer.ws.ReadMessage()
	assert.Error(t, err, "a redundant Connect must not open a second connection")
}

func TestAgent_OwnEchoIsNotTracked(t *testing.T) {
	// ARRANGE
	url := startTestHub(t)
	joined := make(chan struct{}, 1)
	echoed := make(chan models.Event, 1)
	a := New(Options{URL: url, PlayerID: "hero", SessionID: "s1"}, Handlers{
		Joined:   func(string, string, models.View) { joined <- struct{}{} },
		Presence: func(e models.Event) { echoed <- e },
	})
	a.Connect()
	waitSignal(t, joined, "join ack")

	// ACT: the hub echoes broadcasts back to the sender
	a.SendPresence(map[string]any{"position": map[string]any{"x": 1.0}})

	// ASSERT: the handler fires but reconciliation skips the local player
	select {
	case e := <-echoed:
		assert.Equal(t, "hero", e.PlayerID)
	case <-time.After(testWaitTimeout):
		t.Fatal("timed out waiting for the echoed update")
	}
	assert.Equal(t, 0, a.Tracker().Tracked())
}

func TestAgent_TracksRemotePlayersAndEvictsOnLeave(t *testing.T) {
	// ARRANGE
	url := startTestHub(t)
	joined := make(chan struct{}, 1)
	presence := make(chan models.Event, 1)
	a := New(Options{URL: url, PlayerID: "hero", SessionID: "s1"}, Handlers{
		Joined:   func(string, string, models.View) { joined <- struct{}{} },
		Presence: func(e models.Event) { presence <- e },
	})
	a.Connect()
	waitSignal(t, joined, "join ack")

	npc := newRawClient(t, url, "npc", "s1")

	// ACT: a remote update, then the remote leaves
	npc.send(map[string]any{
		"type":    "presence:update",
		"payload": map[string]any{"position": map[string]any{"x": 1.0, "y": 2.0, "z": 3.0}},
	})

	select {
	case e := <-presence:
		require.Equal(t, "npc", e.PlayerID)
	case <-time.After(testWaitTimeout):
		t.Fatal("timed out waiting for the remote update")
	}

	require.Equal(t, 1, a.Tracker().Tracked())
	state, ok := a.Tracker().InterpolatedState("npc", time.Now())
	require.True(t, ok)
	require.NotNil(t, state.Position)
	assert.Equal(t, 1.0, state.Position.X)

	npc.ws.Close()

	// ASSERT: the observed leave evicts the record
	require.Eventually(t, func() bool {
		return a.Tracker().Tracked() == 0
	}, testWaitTimeout, 10*time.Millisecond)
}

func TestAgent_ReplayFeedsTracker(t *testing.T) {
	// ARRANGE: history accumulates before the agent connects
	url := startTestHub(t)
	npc := newRawClient(t, url, "npc", "s1")
	npc.send(map[string]any{
		"type":    "presence:update",
		"payload": map[string]any{"position": map[string]any{"x": 4.0}},
	})
	require.Equal(t, "presence:update", npc.read()["type"])

	joined := make(chan struct{}, 1)
	replayed := make(chan []models.Event, 1)
	a := New(Options{URL: url, PlayerID: "hero", SessionID: "s1"}, Handlers{
		Joined: func(string, string, models.View) { joined <- struct{}{} },
		Replay: func(events []models.Event) { replayed <- events },
	})
	a.Connect()
	waitSignal(t, joined, "join ack")

	// ACT
	a.RequestReplay(0)

	// ASSERT: the missed update arrives and populates the tracker
	select {
	case events := <-replayed:
		var updates int
		for _, e := range events {
			if e.Type == models.EventPresenceUpdate {
				updates++
			}
		}
		assert.Equal(t, 1, updates)
	case <-time.After(testWaitTimeout):
		t.Fatal("timed out waiting for the replay response")
	}

	require.Equal(t, 1, a.Tracker().Tracked())
	state, ok := a.Tracker().InterpolatedState("npc", time.Now())
	require.True(t, ok)
	assert.Equal(t, 4.0, state.Position.X)
}

func TestAgent_ProtocolErrorsSurfaceWithCode(t *testing.T) {
	url := startTestHub(t)
	errs := make(chan error, 1)
	a := New(Options{URL: url, PlayerID: "", SessionID: ""}, Handlers{
		Error: func(err error) { errs <- err },
	})

	// ACT: joining without identifiers draws a protocol error
	a.Connect()

	select {
	case err := <-errs:
		var protoErr *ProtocolError
		require.ErrorAs(t, err, &protoErr)
		assert.Equal(t, "missing_identifiers", protoErr.Code)
	case <-time.After(testWaitTimeout):
		t.Fatal("timed out waiting for the protocol error")
	}
}

func TestAgent_RetriesWithBackoffWhileUnreachable(t *testing.T) {
	// ARRANGE: nothing is listening at the target
	a := New(Options{
		URL:            "ws://127.0.0.1:1",
		PlayerID:       "hero",
		SessionID:      "s1",
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	}, Handlers{
		Error: func(error) {},
	})

	// ACT
	a.Connect()

	// ASSERT: retries keep coming
	require.Eventually(t, func() bool {
		return a.Attempts() >= 3
	}, testWaitTimeout, 5*time.Millisecond)

	a.Disconnect()
	assert.Equal(t, StateClosed, a.State())
}

func TestAgent_DisconnectStopsAndRequeues(t *testing.T) {
	// ARRANGE
	url := startTestHub(t)
	joined := make(chan struct{}, 1)
	disconnected := make(chan struct{}, 1)
	a := New(Options{URL: url, PlayerID: "hero", SessionID: "s1"}, Handlers{
		Joined:       func(string, string, models.View) { joined <- struct{}{} },
		Disconnected: func() { disconnected <- struct{}{} },
	})
	a.Connect()
	waitSignal(t, joined, "join ack")

	// ACT
	a.Disconnect()
	waitSignal(t, disconnected, "disconnect notification")

	// ASSERT: no reconnect is pending, later sends queue for the next open
	require.Eventually(t, func() bool {
		return a.State() == StateClosed
	}, testWaitTimeout, 10*time.Millisecond)

	a.SendPresence(map[string]any{"seq": 1})
	assert.Equal(t, 1, a.Queued())
	assert.Zero(t, a.Attempts())
}
