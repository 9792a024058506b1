package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"grimm.is/iwaf/internal/events"
	"grimm.is/iwaf/internal/logging"
	"grimm.is/iwaf/internal/metrics"
)

// WebSocket topics. Each maps to one event hub topic.
const (
	TopicStats        = "stats"
	TopicLogs         = "logs"
	TopicNotification = "notification"
	TopicConfig       = "config"
	TopicSystem       = "system"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Enforce same-origin for browser clients.
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if strings.Contains(origin, "://localhost:") || strings.Contains(origin, "://127.0.0.1:") {
			return true
		}
		host := r.Host
		if rest, ok := strings.CutPrefix(origin, "http://"); ok {
			return rest == host
		}
		if rest, ok := strings.CutPrefix(origin, "https://"); ok {
			return rest == host
		}
		return false
	},
}

// WSMessage is a topic-based message sent to clients
type WSMessage struct {
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

// wsEvent is the payload forwarded from the event hub.
type wsEvent struct {
	Type      events.EventType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Data      any              `json:"data,omitempty"`
}

// wsClient represents a connected WebSocket client with subscriptions
type wsClient struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	topics map[string]bool
}

func (c *wsClient) subscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topics[topic]
}

func (c *wsClient) setTopics(topics []string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range topics {
		if on {
			c.topics[t] = true
		} else {
			delete(c.topics, t)
		}
	}
}

// WSManager handles websocket connections with topic-based pub/sub. It
// forwards every event published on the console's hub.
type WSManager struct {
	mutex   sync.RWMutex
	clients map[*wsClient]bool

	hub     *events.Hub
	events  <-chan events.Event
	logger  *logging.Logger
	metrics *metrics.Registry

	done      chan struct{}
	closeOnce sync.Once
}

// NewWSManager subscribes to hub and starts forwarding.
func NewWSManager(hub *events.Hub, logger *logging.Logger, reg *metrics.Registry) *WSManager {
	if logger == nil {
		logger = logging.Default()
	}
	m := &WSManager{
		clients: make(map[*wsClient]bool),
		hub:     hub,
		logger:  logger,
		metrics: reg,
		done:    make(chan struct{}),
	}
	if hub != nil {
		m.events = hub.Subscribe(256)
		go m.forward()
	}
	return m
}

func (m *WSManager) forward() {
	for {
		select {
		case <-m.done:
			return
		case e := <-m.events:
			m.Publish(e.Type.Topic(), wsEvent{Type: e.Type, Timestamp: e.Timestamp, Data: e.Data})
		}
	}
}

// Publish sends a message to all clients subscribed to the given topic
func (m *WSManager) Publish(topic string, data any) {
	msgBytes, err := json.Marshal(WSMessage{Topic: topic, Data: data})
	if err != nil {
		m.logger.Warn("failed to encode websocket message", "topic", topic, "error", err)
		return
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for client := range m.clients {
		if !client.subscribed(topic) {
			continue
		}
		select {
		case client.send <- msgBytes:
		default:
			// Client buffer full, skip
		}
	}
}

// ClientCount returns the number of connected clients.
func (m *WSManager) ClientCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

func (m *WSManager) register(c *wsClient) {
	m.mutex.Lock()
	m.clients[c] = true
	n := len(m.clients)
	m.mutex.Unlock()
	if m.metrics != nil {
		m.metrics.WSClients.Set(float64(n))
	}
}

func (m *WSManager) unregister(c *wsClient) {
	m.mutex.Lock()
	if _, ok := m.clients[c]; ok {
		delete(m.clients, c)
		close(c.send)
	}
	n := len(m.clients)
	m.mutex.Unlock()
	if m.metrics != nil {
		m.metrics.WSClients.Set(float64(n))
	}
}

// Close stops forwarding and disconnects every client.
func (m *WSManager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		if m.hub != nil {
			m.hub.Unsubscribe(m.events)
		}
		m.mutex.Lock()
		for c := range m.clients {
			delete(m.clients, c)
			close(c.send)
		}
		m.mutex.Unlock()
	})
}

// readPump handles incoming subscription messages from a client
func (c *wsClient) readPump(m *WSManager) {
	defer m.unregister(c)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg struct {
			Action string   `json:"action"`
			Topics []string `json:"topics"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		switch msg.Action {
		case "subscribe":
			c.setTopics(msg.Topics, true)
		case "unsubscribe":
			c.setTopics(msg.Topics, false)
		}
	}
}

// writePump sends messages to the client
func (c *wsClient) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// handleWS upgrades the connection and registers the client.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", "error", err)
		return
	}

	client := &wsClient{
		conn:   conn,
		topics: make(map[string]bool),
		send:   make(chan []byte, 256),
	}
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			client.topics[t] = true
		}
	}

	s.wsManager.register(client)

	go client.writePump()
	go client.readPump(s.wsManager)
}
