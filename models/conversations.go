package models

import "time"

// Conversation is the durable identity of a chat. Room is the live-channel
// subscription key; the unique index on it is what makes get-or-create safe
// under concurrent requests for the same pair.
type Conversation struct {
	Model
	Room         string                    `gorm:"uniqueIndex;size:191;not null" json:"room"`
	Participants []ConversationParticipant `json:"participants,omitempty"`
}

// ConversationParticipant rows are insert-only; there is no leave operation.
type ConversationParticipant struct {
	Model
	ConversationID uint `gorm:"index;not null" json:"conversation_id"`
	UserID         uint `gorm:"index;not null" json:"user_id"`
	User           User `gorm:"foreignKey:UserID" json:"user"`
}

// ConversationSummary backs the sidebar listing. OtherUserID/OtherOnline are
// nil for rooms with more than one other participant.
type ConversationSummary struct {
	ID            uint       `json:"id"`
	Room          string     `json:"room"`
	Participants  string     `json:"participants"`
	LastMessageAt *time.Time `json:"last_message_at"`
	Preview       string     `json:"preview"`
	OtherUserID   *uint      `json:"other_user_id,omitempty"`
	OtherOnline   *bool      `json:"other_user_online,omitempty"`
}

// OtherParticipant is the peer lookup for a 1:1 conversation header.
type OtherParticipant struct {
	UserID       uint   `json:"user_id"`
	Fullname     string `json:"fullname"`
	IsOnline     bool   `json:"is_online"`
	LastSeenText string `json:"last_seen_text"`
}
