package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/joelikeyan/Open-world-game/internal/models"
)

const (
	// writeWait bounds how long a single frame write may take.
	writeWait = 10 * time.Second

	// sendBuffer is the per-connection outbound queue depth. A connection
	// that falls this far behind is treated as dead.
	sendBuffer = 256
)

// conn wraps one live transport session. Identity fields are set on a
// successful join and are only written under the hub mutex.
type conn struct {
	ws    *websocket.Conn
	send  chan []byte
	alive atomic.Bool

	playerID  string
	sessionID string
	view      models.View

	sendMu sync.Mutex
	closed bool
}

func newConn(ws *websocket.Conn) *conn {
	c := &conn{
		ws:   ws,
		send: make(chan []byte, sendBuffer),
	}
	c.alive.Store(true)
	return c
}

// trySend enqueues a frame without blocking. It reports false when the
// connection is closed or its buffer is full.
func (c *conn) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *conn) closeSend() {
	c.sendMu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.sendMu.Unlock()
}

// writePump drains the send queue onto the socket. It owns all data writes
// for the connection; control frames go through WriteControl, which gorilla
// allows concurrently.
func (c *conn) writePump() {
	defer c.ws.Close()
	for data := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.ws.WriteMessage(websocket.CloseMessage, []byte{})
}
