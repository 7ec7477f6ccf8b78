package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"portal-service/internal/models"
	"portal-service/internal/observability"
)

type ConnInfo struct {
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func (i ConnInfo) identity(u models.User) observability.WSIdentity {
	return observability.WSIdentity{UserID: u.ID, Username: u.Username, DeviceID: i.DeviceID, IP: i.IP}
}

// Client is one websocket connection. All outbound frames go through send;
// only the write pump touches conn for writing.
type Client struct {
	ID   string
	User models.User
	Info ConnInfo

	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// NewClient builds a client with a send queue of bufferSize frames.
func NewClient(id string, user models.User, info ConnInfo, conn *websocket.Conn, bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = defaultSendBuffer
	}
	return &Client{ID: id, User: user, Info: info, conn: conn, send: make(chan []byte, bufferSize)}
}

// enqueue reports false only when the queue is full.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
