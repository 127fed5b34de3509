package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lalith-99/chatrelay/internal/auth"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxFrame   = 1 << 20 // 1MB
	sendBuffer = 256
)

type connState int

const (
	stateUnauthenticated connState = iota
	stateAuthenticated
	stateClosed
)

// Conn is one live client connection. id is the opaque handle stored in
// the presence table; identity and rooms are meaningful only in
// stateAuthenticated. All mutable fields are guarded by the hub's mutex;
// the pumps never touch them directly.
type Conn struct {
	id   string
	hub  *Hub
	sock *websocket.Conn
	send chan []byte

	sendMu     sync.Mutex
	sendClosed bool

	state    connState
	identity auth.Identity
	rooms    map[uuid.UUID]struct{}
}

func newConn(hub *Hub, sock *websocket.Conn) *Conn {
	return &Conn{
		id:    uuid.NewString(),
		hub:   hub,
		sock:  sock,
		send:  make(chan []byte, sendBuffer),
		state: stateUnauthenticated,
		rooms: make(map[uuid.UUID]struct{}),
	}
}

// deliver queues a frame without blocking. A full buffer means the reader
// on the other end is dead or hopeless; the frame is dropped so one slow
// connection never stalls delivery to the rest. Safe to call concurrently
// with closeSend: a delivery racing a disconnect reports failure instead
// of hitting a closed channel.
func (c *Conn) deliver(frame []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// closeSend shuts the outbound queue exactly once; the write pump drains
// what is left and sends the close frame.
func (c *Conn) closeSend() {
	c.sendMu.Lock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
	c.sendMu.Unlock()
}

// readPump serializes this connection's event stream: one frame handled at
// a time, in order. Exits on any transport error, which counts as a
// disconnect.
func (c *Conn) readPump() {
	defer func() {
		c.hub.dropConn(c)
		_ = c.sock.Close()
	}()
	c.sock.SetReadLimit(maxFrame)
	_ = c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		_ = c.sock.SetReadDeadline(time.Now().Add(pongWait))
		// Liveness doubles as a presence refresh: a connection that still
		// answers pings must not expire out of the presence table.
		c.hub.touchPresence(c)
		return nil
	})
	for {
		_, data, err := c.sock.ReadMessage()
		if err != nil {
			return
		}
		c.hub.handleFrame(c, data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.sock.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.sock.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
