package event

import (
	"encoding/json"

	"github.com/skygear-market/messaging/internal/entity"
)

// Client to server.
const (
	JoinChat    = "join-chat"
	LeaveChat   = "leave-chat"
	SendMessage = "send-message"
	Typing      = "typing"
	StopTyping  = "stop-typing"
)

// Server to client.
const (
	NewMessage          = "new-message"
	MessageNotification = "message-notification"
	UserTyping          = "user-typing"
	UserStopTyping      = "user-stop-typing"
	Error               = "error"
)

// Event is the wire envelope of the realtime protocol, both directions.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Make builds an event from one of the payload types below. The payloads are
// plain structs, so the marshal cannot fail.
func Make(name string, payload any) Event {
	data, _ := json.Marshal(payload)
	return Event{Name: name, Data: data}
}

type ConversationPayload struct {
	ConversationID string `json:"conversation-id"`
}

type AttachmentPayload struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
	Name string `json:"name"`
}

type SendMessagePayload struct {
	ConversationID string              `json:"conversation-id"`
	Content        string              `json:"content"`
	Kind           string              `json:"kind,omitempty"`
	Attachments    []AttachmentPayload `json:"attachments,omitempty"`
}

type TypingPayload struct {
	UserID         string `json:"user-id"`
	ConversationID string `json:"conversation-id"`
}

type NotificationPayload struct {
	ConversationID string          `json:"conversation-id"`
	Message        *entity.Message `json:"message"`
	Sender         *entity.User    `json:"sender"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
