// Package realtime pushes conversation events to websocket subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// ErrBufferFull is returned when a connection's send buffer is full.
var ErrBufferFull = errors.New("send buffer full")

// ErrNotConnected is returned for a connection the hub no longer tracks.
var ErrNotConnected = errors.New("connection not registered")

const sendBuffer = 64

// Connection represents a single WebSocket connection.
type Connection struct {
	ID    string
	Topic string
	// Operator connections may follow every conversation.
	Operator bool
	Conn     *websocket.Conn
	Send     chan []byte
	mu       sync.Mutex
}

type topicMessage struct {
	topic string
	data  []byte
}

// Hub fans events out to the connections following a conversation.
type Hub struct {
	connections map[string]*Connection
	// topics maps a conversation id (or "*") to connection ids.
	topics map[string]map[string]bool

	unregister chan *Connection
	broadcast  chan topicMessage
	done       chan struct{}

	logger zerolog.Logger
	mu     sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		topics:      make(map[string]map[string]bool),
		unregister:  make(chan *Connection),
		broadcast:   make(chan topicMessage, 256),
		done:        make(chan struct{}),
		logger:      logger.With().Str("component", "hub").Logger(),
	}
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				h.unbind(conn)
				close(conn.Send)
			}
			h.mu.Unlock()
			h.logger.Debug().Str("conn_id", conn.ID).Msg("connection unregistered")

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg topicMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := map[string]bool{}
	for connID := range h.topics[msg.topic] {
		targets[connID] = true
	}
	if msg.topic != AllConversations {
		for connID := range h.topics[AllConversations] {
			targets[connID] = true
		}
	}

	for connID := range targets {
		conn, ok := h.connections[connID]
		if !ok {
			continue
		}
		select {
		case conn.Send <- msg.data:
		default:
			h.logger.Warn().Str("conn_id", connID).Msg("connection buffer full, closing")
			go h.Unregister(conn)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.connections {
		delete(h.connections, id)
		close(conn.Send)
	}
	h.topics = make(map[string]map[string]bool)
}

// unbind removes conn from its topic. Callers hold h.mu.
func (h *Hub) unbind(conn *Connection) {
	if conn.Topic == "" || h.topics[conn.Topic] == nil {
		return
	}
	delete(h.topics[conn.Topic], conn.ID)
	if len(h.topics[conn.Topic]) == 0 {
		delete(h.topics, conn.Topic)
	}
}

// NewConnection wraps a websocket connection.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   uuid.NewString(),
		Conn: ws,
		Send: make(chan []byte, sendBuffer),
	}
}

// Register registers a connection with the hub. After shutdown the
// connection's send channel is closed at once.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		close(conn.Send)
		return
	default:
	}
	h.connections[conn.ID] = conn
	h.logger.Debug().Str("conn_id", conn.ID).Msg("connection registered")
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Subscribe points a connection at a topic, replacing its previous one.
func (h *Hub) Subscribe(conn *Connection, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unbind(conn)
	conn.Topic = topic
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]bool)
	}
	h.topics[topic][conn.ID] = true
}

// broadcastJSON queues v for the followers of topic. It never blocks the
// caller; when the queue is full the event is dropped.
func (h *Hub) broadcastJSON(topic string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal event")
		return
	}
	select {
	case h.broadcast <- topicMessage{topic: topic, data: data}:
	default:
		h.logger.Warn().Str("topic", topic).Msg("broadcast queue full, dropping event")
	}
}

// PublishMessage announces a stored message to its conversation.
func (h *Hub) PublishMessage(msg domain.Message) {
	h.broadcastJSON(msg.ConversationID, MessageEvent{
		BaseMessage: BaseMessage{Type: TypeMessage, Ts: time.Now().UnixMilli(), ConversationID: msg.ConversationID},
		Message:     msg,
	})
}

// PublishCleared announces that a conversation was deleted.
func (h *Hub) PublishCleared(conversationID string) {
	h.broadcastJSON(conversationID, BaseMessage{
		Type: TypeConversationCleared, Ts: time.Now().UnixMilli(), ConversationID: conversationID,
	})
}

// SendJSONToConnection sends a JSON message to a specific connection.
func (h *Hub) SendJSONToConnection(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return ErrNotConnected
	}
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
