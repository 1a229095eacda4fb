// Package api - WebSocket event stream for collection changes
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alexbotov/pagacollect/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSClient represents a WebSocket client connection
type WSClient struct {
	conn       *websocket.Conn
	send       chan []byte
	operatorID string

	mu         sync.Mutex
	references map[string]bool
}

// wants reports whether the client subscribed to events for reference.
// A client with no subscriptions receives everything.
func (c *WSClient) wants(reference string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.references) == 0 || c.references[reference]
}

func (c *WSClient) subscribe(references []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range references {
		c.references[r] = true
	}
}

func (c *WSClient) unsubscribe(references []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range references {
		delete(c.references, r)
	}
}

// Hub fans collection events out to connected WebSocket clients
type Hub struct {
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
	logger  *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*WSClient]struct{}),
		logger:  logger,
	}
}

// Publish sends event to every interested client. Slow clients drop
// messages rather than block the publisher.
func (h *Hub) Publish(event domain.Event) {
	msg, err := encodeMessage(event.Type, event)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wants(event.ReferenceNumber) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("dropping event for slow client", zap.String("operator_id", c.operatorID))
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// remove drops c and closes its send channel. Holding the write lock keeps
// Publish from sending on the closed channel.
func (h *Hub) remove(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// HandleEvents handles GET /api/v1/events
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &WSClient{
		conn:       conn,
		send:       make(chan []byte, 256),
		operatorID: claims.OperatorID,
		references: make(map[string]bool),
	}
	h.hub.add(client)

	go client.writePump()
	go h.readPump(client)
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *WSClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles subscription messages until the connection closes
func (h *Handler) readPump(c *WSClient) {
	defer func() {
		h.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	h.sendMessage(c, "connected", map[string]any{
		"operator_id": c.operatorID,
		"message":     "Subscribed to collection events",
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket error", zap.Error(err))
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.sendError(c, "INVALID_MESSAGE", "Invalid message format")
			continue
		}

		h.handleWSMessage(c, &msg)
	}
}

// handleWSMessage processes incoming WebSocket messages
func (h *Handler) handleWSMessage(c *WSClient, msg *WSMessage) {
	switch msg.Type {
	case "subscribe", "unsubscribe":
		var payload struct {
			References []string `json:"references"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || len(payload.References) == 0 {
			h.sendError(c, "INVALID_PAYLOAD", "references are required")
			return
		}
		if msg.Type == "subscribe" {
			c.subscribe(payload.References)
		} else {
			c.unsubscribe(payload.References)
		}
		h.sendMessage(c, msg.Type+"d", map[string]any{"references": payload.References})

	case "ping":
		h.sendMessage(c, "pong", map[string]any{
			"timestamp": time.Now().Unix(),
		})

	default:
		h.sendError(c, "UNKNOWN_MESSAGE", "Unknown message type: "+msg.Type)
	}
}

func encodeMessage(msgType string, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSMessage{
		Type:    msgType,
		Payload: payloadBytes,
	})
}

// sendMessage queues a message for the client; called from its readPump only
func (h *Handler) sendMessage(c *WSClient, msgType string, payload any) {
	msgBytes, err := encodeMessage(msgType, payload)
	if err != nil {
		return
	}

	select {
	case c.send <- msgBytes:
	default:
	}
}

// sendError sends an error message to the client
func (h *Handler) sendError(c *WSClient, code, message string) {
	h.sendMessage(c, "error", map[string]string{
		"code":    code,
		"message": message,
	})
}
