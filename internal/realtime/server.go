package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/conversation"
)

// ServerConfig holds the websocket timings.
type ServerConfig struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
}

// Server handles WebSocket connections.
type Server struct {
	cfg        ServerConfig
	hub        *Hub
	isOperator func(c echo.Context) bool
	logger     zerolog.Logger
	upgrader   websocket.Upgrader
}

// NewServer creates a new WebSocket server. isOperator tells whether the
// upgrading request carries a valid operator session.
func NewServer(cfg ServerConfig, h *Hub, isOperator func(c echo.Context) bool, logger zerolog.Logger) *Server {
	return &Server{
		cfg:        cfg,
		hub:        h,
		isOperator: isOperator,
		logger:     logger.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	operator := s.isOperator != nil && s.isOperator(c)

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to upgrade websocket")
		return err
	}

	conn := s.hub.NewConnection(ws)
	conn.Operator = operator
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

func (s *Server) readPump(conn *Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	_ = conn.Conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.Conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Debug().Err(err).Str("conn_id", conn.ID).Msg("websocket closed")
			}
			break
		}
		s.handleMessage(conn, message)
	}
}

func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Debug().Err(err).Str("conn_id", conn.ID).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleMessage(conn *Connection, data []byte) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch msg.Type {
	case TypeSubscribe:
		s.handleSubscribe(conn, msg)
	default:
		s.sendError(conn, ErrorCodeInvalidMessage, "unknown message type: "+msg.Type)
	}
}

func (s *Server) handleSubscribe(conn *Connection, msg SubscribeMessage) {
	topic := msg.ConversationID
	switch {
	case topic == AllConversations:
		if !conn.Operator {
			s.sendError(conn, ErrorCodeUnauthorized, "operator session required")
			return
		}
	case !conversation.ValidID(topic):
		s.sendError(conn, ErrorCodeInvalidMessage, "invalid conversation_id")
		return
	}

	s.hub.Subscribe(conn, topic)
	_ = s.hub.SendJSONToConnection(conn, BaseMessage{
		Type:           TypeSubscribed,
		Ts:             time.Now().UnixMilli(),
		ConversationID: topic,
	})
}

func (s *Server) sendError(conn *Connection, code, message string) {
	_ = s.hub.SendJSONToConnection(conn, ErrorMessage{
		BaseMessage: BaseMessage{Type: TypeError, Ts: time.Now().UnixMilli(), ConversationID: conn.Topic},
		Code:        code,
		Message:     message,
	})
}
