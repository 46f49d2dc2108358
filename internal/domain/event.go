package domain

import "github.com/google/uuid"

// Event is one unit pushed over the realtime channel. Payload must be
// JSON-serializable; delivery is best-effort with no replay.
type Event struct {
	Type    string `json:"event"`
	Payload any    `json:"data"`
}

const (
	EventNewMessage      = "newMessage"
	EventMessageEdited   = "messageEdited"
	EventMessageDeleted  = "messageDeleted"
	EventPresenceChanged = "presenceChanged"
	EventUserTyping      = "userTyping"
)

type PresencePayload struct {
	UserID uuid.UUID `json:"user_id"`
	Online bool      `json:"online"`
}

type TypingPayload struct {
	SenderID uuid.UUID `json:"sender_id"`
	IsTyping bool      `json:"is_typing"`
}

type MessageDeletedPayload struct {
	MessageID int64 `json:"message_id"`
}
