package hub

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Event is the wire envelope for everything sent over a websocket.
type Event struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// Conn wraps one websocket session. Writes are serialized with a mutex
// because broadcasts and pipeline emissions race with each other.
type Conn struct {
	id       string
	username string
	display  string
	userID   int64
	ws       *websocket.Conn

	writeMu sync.Mutex
	mu      sync.RWMutex
	closed  bool
}

func NewConn(ws *websocket.Conn, username, displayName string, userID int64) *Conn {
	if displayName == "" {
		displayName = username
	}
	return &Conn{
		id:       uuid.NewString(),
		username: username,
		display:  displayName,
		userID:   userID,
		ws:       ws,
	}
}

func (c *Conn) ID() string          { return c.id }
func (c *Conn) Username() string    { return c.username }
func (c *Conn) DisplayName() string { return c.display }
func (c *Conn) UserID() int64       { return c.userID }

// Alive reports whether the session is still open. Pipeline stages check it
// before private emissions because analysis often outlives the session.
func (c *Conn) Alive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// Emit writes one event to the session.
func (c *Conn) Emit(event string, payload interface{}) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return websocket.ErrCloseSent
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(Event{Event: event, Payload: payload})
}

// ReadJSON reads one client frame into v.
func (c *Conn) ReadJSON(v interface{}) error {
	return c.ws.ReadJSON(v)
}

// Close shuts the underlying socket.
func (c *Conn) Close() error {
	c.markClosed()
	return c.ws.Close()
}

func (c *Conn) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
