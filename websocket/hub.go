package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// writeWait bounds a single socket write so a stalled client cannot hold up
// the request that triggered the notification.
const writeWait = 5 * time.Second

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type client struct {
	conn Conn
	// one writer at a time per socket
	mu sync.Mutex
}

// Hub maps each connected user to their live socket. A user holds at most one
// socket; a newer connection replaces the older one.
type Hub struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID]*client)}
}

func (h *Hub) Register(userID uuid.UUID, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[userID] = &client{conn: conn}
	log.WithField("user_id", userID).Debug("Client registered")
}

// Unregister forgets conn, unless the user has since reconnected on another
// socket.
func (h *Hub) Unregister(userID uuid.UUID, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.clients[userID]; ok && current.conn == conn {
		delete(h.clients, userID)
		log.WithField("user_id", userID).Debug("Client unregistered")
	}
}

func (h *Hub) Connected(userID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.clients[userID]
	return ok
}

// Send writes message to the user's socket and reports whether it was
// delivered. Users without a socket are skipped; a failed or timed out write
// drops the socket. The hub lock is not held during the write.
func (h *Hub) Send(userID uuid.UUID, message interface{}) bool {
	h.mu.Lock()
	cl, ok := h.clients[userID]
	h.mu.Unlock()
	if !ok {
		return false
	}

	if err := cl.write(message); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Dropping websocket client after write failure")
		cl.conn.Close()
		h.Unregister(userID, cl.conn)
		return false
	}
	return true
}

func (c *client) write(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(message)
}
