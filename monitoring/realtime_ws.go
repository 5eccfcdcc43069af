package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType identifies a feed topic.
type MessageType string

const (
	PredictionEvent MessageType = "prediction"
	ModelStatus     MessageType = "model_status"
	SystemStatus    MessageType = "system_status"
	Heartbeat       MessageType = "heartbeat"
)

// Message is the envelope every feed event travels in.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	ID        string          `json:"id"`
}

// Client is one connected WebSocket subscriber.
type Client struct {
	conn          *websocket.Conn
	send          chan []byte
	clientID      string
	mu            sync.Mutex
	subscriptions map[string]bool
}

// wants reports whether the client should receive a message type. A client
// with no explicit subscriptions receives everything.
func (c *Client) wants(messageType MessageType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subscriptions) == 0 {
		return true
	}
	return c.subscriptions[string(messageType)]
}

type outbound struct {
	messageType MessageType
	payload     []byte
}

// WebSocketHub owns the client set and fans broadcast messages out to it.
type WebSocketHub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *zap.Logger
}

func NewWebSocketHub(logger *zap.Logger) *WebSocketHub {
	ctx, cancel := context.WithCancel(context.Background())

	return &WebSocketHub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Start runs the hub loop until Stop is called.
func (h *WebSocketHub) Start() {
	defer h.logger.Info("websocket hub stopped")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", zap.String("client_id", client.clientID), zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", zap.String("client_id", client.clientID), zap.Int("total", total))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(message.messageType) {
					continue
				}
				select {
				case client.send <- message.payload:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *WebSocketHub) Stop() {
	h.cancel()
}

// HandleWebSocket upgrades the request and registers the new client.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:          conn,
		send:          make(chan []byte, 256),
		clientID:      "client_" + uuid.NewString(),
		subscriptions: make(map[string]bool),
	}

	h.register <- client

	go client.writePump(h.logger)
	go client.readPump(h)
}

// Broadcast queues a message for every interested client. Messages are
// dropped when the queue is full, slow consumers never block a request.
func (h *WebSocketHub) Broadcast(messageType MessageType, payload []byte) {
	select {
	case h.broadcast <- outbound{messageType: messageType, payload: payload}:
	default:
		h.logger.Warn("websocket broadcast queue is full, dropping message", zap.String("type", string(messageType)))
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *Client) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("websocket write error", zap.String("client_id", c.clientID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump(h *WebSocketHub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	for {
		_, messageData, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.String("client_id", c.clientID), zap.Error(err))
			}
			break
		}

		var clientMsg ClientMessage
		if err := json.Unmarshal(messageData, &clientMsg); err != nil {
			h.logger.Warn("failed to parse client message", zap.String("client_id", c.clientID), zap.Error(err))
			continue
		}

		c.handleClientMessage(h, clientMsg)
	}
}

func (c *Client) handleClientMessage(h *WebSocketHub, msg ClientMessage) {
	switch msg.Type {
	case "subscribe":
		c.mu.Lock()
		c.subscriptions[msg.Topic] = true
		c.mu.Unlock()
		h.logger.Info("client subscribed", zap.String("client_id", c.clientID), zap.String("topic", msg.Topic))
	case "unsubscribe":
		c.mu.Lock()
		delete(c.subscriptions, msg.Topic)
		c.mu.Unlock()
		h.logger.Info("client unsubscribed", zap.String("client_id", c.clientID), zap.String("topic", msg.Topic))
	case "ping":
		h.logger.Debug("ping from client", zap.String("client_id", c.clientID))
	}
}

// PredictionMonitor publishes service events to the WebSocket feed.
type PredictionMonitor struct {
	hub     *WebSocketHub
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	running bool
	stats   *MonitorStats
	logger  *zap.Logger
}

// MonitorStats summarizes feed activity.
type MonitorStats struct {
	ConnectedClients int64         `json:"connected_clients"`
	MessagesSent     int64         `json:"messages_sent"`
	StartTime        time.Time     `json:"start_time"`
	LastMessageTime  time.Time     `json:"last_message_time"`
	Uptime           time.Duration `json:"uptime"`
}

func NewPredictionMonitor(logger *zap.Logger) *PredictionMonitor {
	ctx, cancel := context.WithCancel(context.Background())

	return &PredictionMonitor{
		hub:    NewWebSocketHub(logger),
		ctx:    ctx,
		cancel: cancel,
		stats: &MonitorStats{
			StartTime: time.Now(),
		},
		logger: logger,
	}
}

func (m *PredictionMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("monitor is already running")
	}

	go m.hub.Start()

	m.running = true
	m.stats.StartTime = time.Now()

	m.logger.Info("prediction monitor started")
	return nil
}

func (m *PredictionMonitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return fmt.Errorf("monitor is not running")
	}

	m.running = false
	m.hub.Stop()
	m.cancel()

	m.logger.Info("prediction monitor stopped")
	return nil
}

// SendPrediction publishes one classification result to the feed.
func (m *PredictionMonitor) SendPrediction(event PredictionMessage) error {
	return m.send(PredictionEvent, event)
}

// SendModelStatus publishes model lifecycle events such as artifact changes.
func (m *PredictionMonitor) SendModelStatus(status ModelStatusMessage) error {
	return m.send(ModelStatus, status)
}

// SendSystemStatus publishes component state transitions.
func (m *PredictionMonitor) SendSystemStatus(status SystemStatusMessage) error {
	return m.send(SystemStatus, status)
}

func (m *PredictionMonitor) SendHeartbeat() error {
	return m.send(Heartbeat, HeartbeatMessage{Timestamp: time.Now().UTC(), Status: "alive"})
}

func (m *PredictionMonitor) send(messageType MessageType, data any) error {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if !running {
		return fmt.Errorf("monitor is not running")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", messageType, err)
	}

	envelope, err := json.Marshal(Message{
		Type:      messageType,
		Timestamp: time.Now().UTC(),
		Data:      payload,
		ID:        uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message envelope: %w", err)
	}

	m.hub.Broadcast(messageType, envelope)

	m.mu.Lock()
	m.stats.MessagesSent++
	m.stats.LastMessageTime = time.Now()
	m.mu.Unlock()
	return nil
}

// GetStats returns a snapshot of feed activity.
func (m *PredictionMonitor) GetStats() *MonitorStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := *m.stats
	if m.running {
		stats.Uptime = time.Since(m.stats.StartTime)
	}
	stats.ConnectedClients = int64(m.hub.ClientCount())
	return &stats
}

// GetWebSocketHub exposes the hub for HTTP route registration.
func (m *PredictionMonitor) GetWebSocketHub() *WebSocketHub {
	return m.hub
}

// PredictionMessage is the feed payload for one classification. Request
// measurements never leave the service on the feed.
type PredictionMessage struct {
	RequestID     string             `json:"request_id"`
	Species       string             `json:"species"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	Cached        bool               `json:"cached"`
	Timestamp     time.Time          `json:"timestamp"`
}

// ModelStatusMessage reports model lifecycle events.
type ModelStatusMessage struct {
	Event     string    `json:"event"` // loaded, artifact_changed
	Path      string    `json:"path"`
	Algorithm string    `json:"algorithm"`
	Accuracy  float64   `json:"accuracy"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SystemStatusMessage reports component state.
type SystemStatusMessage struct {
	Component string    `json:"component"`
	Status    string    `json:"status"` // running, stopped, error
	Message   string    `json:"message"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// HeartbeatMessage is the periodic liveness event.
type HeartbeatMessage struct {
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

// ClientMessage is what clients may send upstream.
type ClientMessage struct {
	Type  string `json:"type"` // subscribe, unsubscribe, ping
	Topic string `json:"topic"`
}
