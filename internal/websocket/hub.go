package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/audiotutor/server/domain"
	"github.com/audiotutor/server/internal/metrics"
	"github.com/audiotutor/server/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Audio uploads are whole
	// recordings, not chunks, so the limit is generous.
	maxMessageSize = 10 * 1024 * 1024
)

const connectedGreeting = "Connected to WebSocket!"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active clients.
type Hub struct {
	// Registered clients keyed by session ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	turns *usecase.TurnService

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(turns *usecase.TurnService, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		turns:      turns,
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			metrics.ActiveSessions.Inc()
			h.logger.Info("Client connected", zap.String("sessionID", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			metrics.ActiveSessions.Dec()
			h.logger.Info("Client disconnected", zap.String("sessionID", client.id))
		}
	}
}

// SessionCount reports the number of connected clients.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type WriteData struct {
	// Type is the websocket message type.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is one websocket session. Events are processed one at a time in
// the read loop, so a session never has more than one turn in flight.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Session ID for this client
	id string

	// ctx is canceled when the connection closes, aborting any in-flight
	// backend calls.
	ctx    context.Context
	cancel context.CancelFunc

	logger *zap.Logger
}

// HandleWebSocket handles websocket requests from the peer.
func HandleWebSocket(hub *Hub, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New().String()
	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan WriteData, 256),
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With(zap.String("sessionID", id)),
	}

	client.hub.register <- client

	client.Emit(usecase.EventMessage, domain.InfoPayload{Info: connectedGreeting})

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// Emit marshals the payload into an event envelope and queues it for the
// write pump. A full send buffer drops the event rather than blocking the
// pipeline.
func (c *Client) Emit(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("Failed to marshal event payload",
			zap.String("event", event), zap.Error(err))
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		c.logger.Error("Failed to marshal event envelope",
			zap.String("event", event), zap.Error(err))
		return
	}

	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: frame}:
	default:
		c.logger.Warn("Send buffer full, dropping event", zap.String("event", event))
	}
}

// readPump pumps messages from the websocket connection into the pipeline.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		// Turns run synchronously here so a session has at most one in
		// flight; further frames queue in the connection buffer.
		switch messageType {
		case websocket.TextMessage:
			c.processEnvelope(message)
		case websocket.BinaryMessage:
			c.processAudio(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}

		c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// writePump pumps messages from the send channel to the websocket connection.
// It cancels the connection context on exit: a failed write or ping is the
// first sign the peer is gone while the read loop is still busy with a turn,
// and cancellation lets that turn stop at its next stage boundary.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.cancel()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processEnvelope handles one text frame.
func (c *Client) processEnvelope(message []byte) {
	var envelope Envelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		c.logger.Warn("Failed to parse event envelope", zap.Error(err))
		c.Emit(usecase.EventError, domain.ErrorPayload{Message: "Invalid event format"})
		return
	}

	switch envelope.Event {
	case EventUserAudio:
		payload, err := DecodeAudioPayload(envelope.Data)
		if err != nil {
			c.reportDecodeError(err)
			return
		}
		c.processAudio(payload)
	case EventTestTTS:
		var data TestTTSData
		if len(envelope.Data) > 0 {
			if err := json.Unmarshal(envelope.Data, &data); err != nil {
				c.logger.Warn("Failed to parse test_tts data", zap.Error(err))
			}
		}
		if err := c.hub.turns.HandleTestTTS(c.ctx, data.Text, c); err != nil {
			c.logger.Warn("Test TTS failed", zap.Error(err))
		}
	default:
		c.logger.Warn("Unknown event", zap.String("event", envelope.Event))
		c.Emit(usecase.EventError, domain.ErrorPayload{Message: "Unknown event: " + envelope.Event})
	}
}

// processAudio runs one audio turn through the pipeline.
func (c *Client) processAudio(payload []byte) {
	c.logger.Debug("Received audio payload", zap.Int("size", len(payload)))
	if err := c.hub.turns.HandleAudio(c.ctx, payload, c); err != nil {
		c.logger.Warn("Audio turn failed", zap.Error(err))
	}
}

func (c *Client) reportDecodeError(err error) {
	metrics.StageErrors.WithLabelValues(metrics.StageDecode).Inc()
	c.logger.Warn("Failed to decode audio payload", zap.Error(err))

	detail := err.Error()
	var te *domain.TurnError
	if errors.As(err, &te) {
		detail = te.Detail
	}
	c.Emit(usecase.EventError, domain.ErrorPayload{Message: "Invalid audio payload: " + detail})
}
