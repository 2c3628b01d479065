package realtime

import "github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"

// Message types from client to server
const (
	TypeSubscribe = "subscribe"
)

// Message types from server to client
const (
	TypeSubscribed          = "subscribed"
	TypeMessage             = "message"
	TypeConversationCleared = "conversation_cleared"
	TypeError               = "error"
)

// AllConversations is the topic operators subscribe to for every event.
const AllConversations = "*"

// Error codes
const (
	ErrorCodeInvalidMessage = "INVALID_MESSAGE"
	ErrorCodeUnauthorized   = "UNAUTHORIZED"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type           string `json:"type"`
	Ts             int64  `json:"ts"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// SubscribeMessage selects the conversation a connection follows.
type SubscribeMessage struct {
	BaseMessage
}

// MessageEvent announces a stored message.
type MessageEvent struct {
	BaseMessage
	Message domain.Message `json:"message"`
}

// ErrorMessage reports a protocol error to the client.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}
