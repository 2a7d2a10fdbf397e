package websocket

import "time"

// Message types
const (
	MessageTypeSystem = "system"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
	MessageTypeError  = "error"

	// Sent when a notification is delivered to the inbox
	MessageTypeNotification = "notification"
	// Sent on connect and after each delivery with the unread badge count
	MessageTypeNotificationCount = "notification_count"
)

// Message is the envelope for everything sent over a live inbox connection
type Message struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewMessage creates a message stamped with the current time
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// SystemPayload describes connection lifecycle events
type SystemPayload struct {
	Event   string `json:"event"`
	Message string `json:"message,omitempty"`
}

// ErrorPayload is sent when a client message is rejected
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorMessage creates an error message
func NewErrorMessage(code, message string) *Message {
	return NewMessage(MessageTypeError, ErrorPayload{Code: code, Message: message})
}

// NotificationPayload is a rendered notification
type NotificationPayload struct {
	ID        string    `json:"id"`
	Verb      string    `json:"verb"`
	Header    string    `json:"header"`
	Body      string    `json:"body,omitempty"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// CountPayload carries the unread badge count
type CountPayload struct {
	Unread int64 `json:"unread"`
}
