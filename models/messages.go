package models

// Message is an append-only log entry. CreatedAt is assigned by the
// persistence layer at insert time, never by the client, so ordering within
// a conversation has a single source. SenderID is nil for system messages.
// A message carries non-empty text or at least one attachment.
type Message struct {
	Model
	ConversationID uint         `gorm:"index;not null" json:"conversation_id"`
	SenderID       *uint        `gorm:"index" json:"sender_id"`
	Sender         *User        `gorm:"foreignKey:SenderID" json:"-"`
	SenderName     string       `gorm:"-" json:"sender_name"`
	Text           string       `gorm:"type:text" json:"text"`
	Attachments    []Attachment `gorm:"constraint:OnDelete:CASCADE" json:"attachments"`
}

// Attachment is exclusively owned by its message; the cascade removes it if
// the message row ever goes away. StoredFilename is the opaque blob-store
// reference returned by the upload endpoint.
type Attachment struct {
	Model
	MessageID        uint   `gorm:"index;not null" json:"message_id"`
	OriginalFilename string `gorm:"size:512;not null" json:"original_filename"`
	StoredFilename   string `gorm:"size:512;not null" json:"stored_filename"`
	MimeType         string `gorm:"size:255" json:"mime_type"`
	Size             int64  `json:"size"`
}

// AttachmentRef is the client-supplied reference to an already-uploaded file,
// as returned by the upload endpoint.
type AttachmentRef struct {
	OriginalFilename string `json:"original_filename"`
	StoredFilename   string `json:"stored_filename"`
	MimeType         string `json:"mime_type"`
	Size             int64  `json:"size"`
}
