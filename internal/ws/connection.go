package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/convo-chat/convo/internal/auth"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sendBufferSize = 256
)

// Connection is one client socket joined to exactly one room.
type Connection struct {
	ID     string
	RoomID string

	conn  *websocket.Conn
	send  chan []byte
	token string

	// identity is the payload of the most recent successful guard check.
	// Only the read loop touches it.
	identity *auth.Payload

	closeOnce   sync.Once
	done        chan struct{}
	closeCode   int
	closeReason string
}

func newConnection(conn *websocket.Conn, roomID, token string, identity *auth.Payload) *Connection {
	return &Connection{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		token:    token,
		identity: identity,
		done:     make(chan struct{}),
	}
}

// Close asks the write loop to send a close frame and shut the socket.
// Only the first call has any effect.
func (c *Connection) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
}

// writeLoop is the only writer to the socket.
func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-c.done:
			msg := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
	}
}
