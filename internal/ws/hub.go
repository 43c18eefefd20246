package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"tableorder-service/internal/apperr"
	"tableorder-service/internal/metrics"
	"tableorder-service/internal/middleware"
	"tableorder-service/internal/ordering"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait = 10 * time.Second
	// sendBuffer bounds the frames queued for one client. A client that
	// falls this far behind is disconnected.
	sendBuffer = 32
)

type client struct {
	send    chan []byte
	closing chan struct{}
	once    sync.Once
	// allowed reports whether the client may join room.
	allowed func(room string) bool
}

func newClient(allowed func(string) bool) *client {
	return &client{
		send:    make(chan []byte, sendBuffer),
		closing: make(chan struct{}),
		allowed: allowed,
	}
}

// enqueue never blocks. It reports false when the client is gone or its
// buffer is full, closing the client in the latter case.
func (c *client) enqueue(message []byte) bool {
	select {
	case <-c.closing:
		return false
	default:
	}
	select {
	case c.send <- message:
		return true
	default:
		c.close()
		return false
	}
}

func (c *client) enqueueJSON(value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *client) close() {
	c.once.Do(func() { close(c.closing) })
}

// Hub fans realtime events out to the websocket clients subscribed to a room.
type Hub struct {
	logger    *zap.Logger
	jwtSecret string
	sessions  middleware.SessionValidator
	heartbeat time.Duration

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func NewHub(jwtSecret string, sessions middleware.SessionValidator, heartbeat time.Duration, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Hub{
		logger:    logger,
		jwtSecret: jwtSecret,
		sessions:  sessions,
		heartbeat: heartbeat,
		rooms:     make(map[string]map[*client]struct{}),
	}
}

func (h *Hub) subscribe(room string, c *client) {
	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unsubscribe(room string, c *client) {
	h.mu.Lock()
	h.removeLocked(room, c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(room string, c *client) {
	clients := h.rooms[room]
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	for room := range h.rooms {
		h.removeLocked(room, c)
	}
	h.mu.Unlock()
}

// RoomSize returns the number of clients currently in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Publish encodes the event and delivers it to local subscribers.
func (h *Hub) Publish(_ context.Context, room, event string, payload any) error {
	message, err := Encode(room, event, payload, time.Now())
	if err != nil {
		return err
	}
	h.Deliver(room, message)
	return nil
}

// Deliver queues an already encoded envelope for every client in room.
// Clients that cannot keep up are dropped.
func (h *Hub) Deliver(room string, message []byte) {
	h.mu.RLock()
	subs := h.rooms[room]
	clients := make([]*client, 0, len(subs))
	for c := range subs {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(message) {
			h.logger.Debug("dropping slow websocket client", zap.String("room", room))
			h.drop(c)
		}
	}
}

// RestaurantWS serves staff dashboards. The staff JWT is read from the token
// query parameter and the client joins its restaurant room.
func (h *Hub) RestaurantWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	staff, err := middleware.StaffFromToken(token, h.jwtSecret)
	if err != nil {
		_ = conn.WriteJSON(controlMessage{Type: "error", Message: "unauthorized"})
		return
	}

	room := ordering.RestaurantRoom(staff.RestaurantID)
	h.serve(r.Context(), conn, room, func(candidate string) bool { return candidate == room }, nil)
}

// TableWS serves customer devices authenticated by their session token.
func (h *Hub) TableWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	token := strings.TrimSpace(r.URL.Query().Get("session"))
	if token == "" || h.sessions == nil {
		_ = conn.WriteJSON(controlMessage{Type: "error", Message: "unauthorized"})
		return
	}
	session, err := h.sessions.VerifySession(r.Context(), token)
	if err != nil {
		_ = conn.WriteJSON(controlMessage{Type: "error", Message: "unauthorized"})
		return
	}

	room := ordering.TableRoom(session.TableID)
	h.serve(r.Context(), conn, room, func(candidate string) bool { return candidate == room }, func(ctx context.Context) bool {
		return h.sessionStillValid(ctx, token)
	})
}

// sessionStillValid rechecks a customer session on each heartbeat so logout
// and expiry end the socket. Storage errors keep the socket open.
func (h *Hub) sessionStillValid(ctx context.Context, token string) bool {
	_, err := h.sessions.VerifySession(ctx, token)
	if err == nil {
		return true
	}
	if _, ok := apperr.As(err); ok {
		return false
	}
	h.logger.Warn("websocket session recheck failed", zap.Error(err))
	return true
}

// serve owns every write to conn. Frames arrive on the client's send buffer;
// the reader goroutine only queues replies.
func (h *Hub) serve(ctx context.Context, conn *websocket.Conn, room string, allowed func(string) bool, stillValid func(context.Context) bool) {
	c := newClient(allowed)
	h.subscribe(room, c)
	metrics.WSConnections.Inc()
	defer func() {
		c.close()
		h.drop(c)
		metrics.WSConnections.Dec()
	}()

	c.enqueueJSON(controlMessage{Type: "joined", Room: room})

	_ = conn.SetReadDeadline(time.Now().Add(2 * h.heartbeat))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * h.heartbeat))
	})

	go func() {
		defer c.close()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg clientMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				c.enqueueJSON(controlMessage{Type: "error", Message: "invalid message"})
				continue
			}
			h.handleClientMessage(c, msg)
		}
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-c.closing:
			return
		case <-ctx.Done():
			return
		case message := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if stillValid != nil && !stillValid(ctx) {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteJSON(controlMessage{Type: "error", Message: "session expired"})
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Hub) handleClientMessage(c *client, msg clientMessage) {
	room := strings.TrimSpace(msg.Room)
	switch msg.Action {
	case "join":
		if !c.allowed(room) {
			c.enqueueJSON(controlMessage{Type: "error", Room: room, Message: "forbidden"})
			return
		}
		h.subscribe(room, c)
		c.enqueueJSON(controlMessage{Type: "joined", Room: room})
	case "leave":
		h.unsubscribe(room, c)
		c.enqueueJSON(controlMessage{Type: "left", Room: room})
	default:
		c.enqueueJSON(controlMessage{Type: "error", Message: "unknown action"})
	}
}
