package domain

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID           int64        `json:"id"`
	SenderID     uuid.UUID    `json:"sender_id"`
	RecipientID  uuid.UUID    `json:"recipient_id"`
	Sender       *UserSummary `json:"sender,omitempty"`
	Recipient    *UserSummary `json:"recipient,omitempty"`
	Kind         string       `json:"kind"`
	Body         string       `json:"body"`
	FileURL      string       `json:"file_url,omitempty"`
	FilePublicID string       `json:"file_public_id,omitempty"`
	FileName     string       `json:"file_name,omitempty"`
	IsRead       bool         `json:"is_read"`
	ReadAt       *time.Time   `json:"read_at,omitempty"`
	IsEdited     bool         `json:"is_edited"`
	EditedAt     *time.Time   `json:"edited_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

const (
	KindText  = "text"
	KindImage = "image"
	KindFile  = "file"
)

// HasAttachment reports whether the message carries a stored file.
func (m *Message) HasAttachment() bool {
	return m.FilePublicID != ""
}

// Conversation is a projection over messages grouped by the other participant.
// It is derived on demand and never stored.
type Conversation struct {
	Peer        *UserSummary `json:"user"`
	LastMessage *Message     `json:"last_message"`
	UnreadCount int          `json:"unread_count"`
}
