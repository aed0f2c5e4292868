package realtime

import (
	"encoding/json"
	"time"

	"github.com/medilinkng/clinichat/models"
)

// InboundFrame is a client frame read off the websocket.
type InboundFrame struct {
	Type           string                 `json:"type"`
	Room           string                 `json:"room,omitempty"`
	ConversationID uint                   `json:"conversation_id,omitempty"`
	Text           string                 `json:"text,omitempty"`
	Attachments    []models.AttachmentRef `json:"attachments,omitempty"`
}

// MessagePayload is the persisted message as broadcast to room members.
type MessagePayload struct {
	ID             uint                `json:"id"`
	ConversationID uint                `json:"conversation_id"`
	SenderID       *uint               `json:"sender_id"`
	SenderName     string              `json:"sender_name"`
	Text           string              `json:"text"`
	CreatedAt      time.Time           `json:"created_at"`
	Attachments    []models.Attachment `json:"attachments"`
}

// MessageEvent carries a freshly persisted message to a room.
type MessageEvent struct {
	Type    string         `json:"type"`
	Room    string         `json:"room"`
	Message MessagePayload `json:"message"`
}

// ConversationUpdatedEvent nudges every connection to refresh its sidebar
// preview for the conversation, regardless of room membership.
type ConversationUpdatedEvent struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id"`
	Room           string `json:"room"`
}

// PresenceChangedEvent announces a user going online or offline.
type PresenceChangedEvent struct {
	Type     string `json:"type"`
	UserID   uint   `json:"user_id"`
	IsOnline bool   `json:"is_online"`
}

// ErrorEvent is sent back to the offending connection only.
type ErrorEvent struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// AckFrame acknowledges a handshake or join.
type AckFrame struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
}

// NewMessageEvent builds the room broadcast for a persisted message.
func NewMessageEvent(room string, msg *models.Message) MessageEvent {
	attachments := msg.Attachments
	if attachments == nil {
		attachments = []models.Attachment{}
	}
	return MessageEvent{
		Type: "message",
		Room: room,
		Message: MessagePayload{
			ID:             msg.ID,
			ConversationID: msg.ConversationID,
			SenderID:       msg.SenderID,
			SenderName:     msg.SenderName,
			Text:           msg.Text,
			CreatedAt:      msg.CreatedAt,
			Attachments:    attachments,
		},
	}
}

// Marshal encodes an event. On encode failure it returns nil and the caller
// skips the broadcast.
func Marshal(v interface{}) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return payload
}
