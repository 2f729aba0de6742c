// Package ws is the real-time side of convo: it authenticates websocket
// clients, joins them to a room and fans their messages out to the other
// members of that room.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/convo-chat/convo/internal/auth"
	"github.com/convo-chat/convo/internal/metrics"
	"github.com/convo-chat/convo/internal/models"
	"github.com/convo-chat/convo/internal/service"
	"github.com/convo-chat/convo/internal/utils"
)

const EventRoomMessage = "room-message"

var (
	errEmptyMessage = errors.New("empty message")
	errShuttingDown = errors.New("gateway shutting down")
)

// Envelope frames every websocket message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomMessage is what the other members of a room receive.
type RoomMessage struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type RoomLookup interface {
	GetByID(ctx context.Context, id string) (*models.Room, error)
}

type MessageRecorder interface {
	Create(ctx context.Context, in service.CreateMessage) (*models.Message, error)
}

// EventHandler handles one inbound event for an authenticated connection.
type EventHandler func(c *Connection, data json.RawMessage) error

type Options struct {
	// PersistTimeout bounds how long storing a broadcast message may take.
	PersistTimeout time.Duration
	CheckOrigin    func(r *http.Request) bool
}

// AllowOrigins accepts handshakes whose Origin is in origins. "*" accepts
// any origin, and requests without an Origin header are always accepted.
func AllowOrigins(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimSpace(o)] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[origin]
	}
}

type Gateway struct {
	hub      *Hub
	guard    auth.Guard
	rooms    RoomLookup
	messages MessageRecorder
	log      logrus.FieldLogger

	upgrader       websocket.Upgrader
	handlers       map[string]EventHandler
	persistTimeout time.Duration

	// mu guards closing and every Add on persisting, so no write can be
	// registered once Shutdown has started waiting.
	mu         sync.Mutex
	closing    bool
	persisting sync.WaitGroup
}

func NewGateway(hub *Hub, guard auth.Guard, rooms RoomLookup, messages MessageRecorder, log logrus.FieldLogger, opts Options) *Gateway {
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 5 * time.Second
	}
	if opts.CheckOrigin == nil {
		opts.CheckOrigin = func(r *http.Request) bool { return true }
	}
	g := &Gateway{
		hub:      hub,
		guard:    guard,
		rooms:    rooms,
		messages: messages,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
		handlers:       make(map[string]EventHandler),
		persistTimeout: opts.PersistTimeout,
	}
	g.On(EventRoomMessage, g.handleRoomMessage)
	return g
}

// On registers the handler for an inbound event name.
func (g *Gateway) On(event string, h EventHandler) {
	g.handlers[event] = h
}

// ServeHTTP authenticates the handshake, checks the room exists and only
// then upgrades. A refused handshake never becomes a websocket.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	identity, err := g.guard(token)
	if err != nil {
		metrics.WSRejected.WithLabelValues("unauthenticated").Inc()
		utils.JSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthenticated"})
		return
	}

	roomID := r.URL.Query().Get("room_id")
	log := g.log.WithFields(logrus.Fields{"room_id": roomID, "user_id": identity.UserID})
	room, err := g.rooms.GetByID(r.Context(), roomID)
	if err != nil {
		metrics.WSRejected.WithLabelValues("error").Inc()
		log.WithError(err).Error("room lookup failed")
		utils.JSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "internal server error"})
		return
	}
	if room == nil {
		metrics.WSRejected.WithLabelValues("room_not_found").Inc()
		utils.JSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "room not found"})
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := newConnection(conn, room.ID, token, identity)
	g.hub.Join(c)
	metrics.WSConnections.Inc()
	log.WithField("conn_id", c.ID).Info("client connected")

	go c.writeLoop()
	g.readLoop(c)
}

func (g *Gateway) readLoop(c *Connection) {
	log := g.log.WithFields(logrus.Fields{"room_id": c.RoomID, "conn_id": c.ID})
	defer func() {
		g.hub.Leave(c)
		metrics.WSConnections.Dec()
		c.Close(websocket.CloseNormalClosure, "")
		log.Info("client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("read failed")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.WithError(err).Warn("invalid message format")
			continue
		}
		handle, ok := g.handlers[env.Event]
		if !ok {
			log.WithField("event", env.Event).Warn("unknown event")
			continue
		}

		identity, err := g.guard(c.token)
		if err != nil {
			metrics.WSRejected.WithLabelValues("unauthenticated").Inc()
			log.WithError(err).Info("token rejected, closing connection")
			c.Close(websocket.ClosePolicyViolation, "unauthenticated")
			return
		}
		c.identity = identity

		if err := handle(c, env.Data); err != nil {
			log.WithError(err).WithField("event", env.Event).Warn("event dropped")
		}
	}
}

func (g *Gateway) handleRoomMessage(c *Connection, data json.RawMessage) error {
	text, err := decodeMessageText(data)
	if err != nil {
		return err
	}
	if !g.beginPersist() {
		return errShuttingDown
	}
	g.Broadcast(c.RoomID, c, c.identity, text)

	g.persist(service.CreateMessage{
		RoomID:   c.RoomID,
		UserID:   c.identity.UserID,
		Username: c.identity.Username,
		Text:     text,
	})
	return nil
}

// decodeMessageText accepts either {"message": "..."} or a bare JSON string.
func decodeMessageText(data json.RawMessage) (string, error) {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		var body struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return "", err
		}
		text = body.Message
	}
	if strings.TrimSpace(text) == "" {
		return "", errEmptyMessage
	}
	return text, nil
}

// Broadcast sends a room-message from sender to every member of the room
// except from. from is nil for messages that did not arrive over a socket.
func (g *Gateway) Broadcast(roomID string, from *Connection, sender *auth.Payload, text string) int {
	b, err := json.Marshal(RoomMessage{UserID: sender.UserID, Username: sender.Username, Message: text})
	if err != nil {
		g.log.WithError(err).Error("marshal room message")
		return 0
	}
	out, err := json.Marshal(Envelope{Event: EventRoomMessage, Data: b})
	if err != nil {
		g.log.WithError(err).Error("marshal envelope")
		return 0
	}
	n := g.hub.Broadcast(roomID, from, out)
	metrics.MessagesBroadcast.Inc()
	return n
}

// Publish delivers a message that was stored through another channel to
// every member of the room.
func (g *Gateway) Publish(roomID string, sender *auth.Payload, text string) int {
	return g.Broadcast(roomID, nil, sender, text)
}

// beginPersist reserves a pending write. It reports false once Shutdown has
// begun, and the message must then be neither broadcast nor stored.
func (g *Gateway) beginPersist() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closing {
		return false
	}
	g.persisting.Add(1)
	return true
}

// persist stores a message that has already been broadcast, using the write
// reserved by beginPersist. It runs detached from the connection; a failure
// is logged and counted, never retracted.
func (g *Gateway) persist(in service.CreateMessage) {
	go func() {
		defer g.persisting.Done()
		ctx, cancel := context.WithTimeout(context.Background(), g.persistTimeout)
		defer cancel()

		start := time.Now()
		_, err := g.messages.Create(ctx, in)
		metrics.PersistLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.PersistFailures.Inc()
			g.log.WithError(err).WithFields(logrus.Fields{
				"room_id": in.RoomID,
				"user_id": in.UserID,
			}).Error("failed to persist message")
		}
	}()
}

// Shutdown closes every connection and waits for pending writes to storage.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	g.closing = true
	g.mu.Unlock()

	g.hub.CloseAll(websocket.CloseGoingAway, "server shutting down")
	done := make(chan struct{})
	go func() {
		g.persisting.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
