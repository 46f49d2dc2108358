package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID          int64          `json:"id"`
	EventTime   time.Time      `json:"event_time"`
	ActorUserID *uuid.UUID     `json:"actor_user_id,omitempty"`
	EventType   string         `json:"event_type"`
	Payload     map[string]any `json:"payload"`
}

const (
	EventTypeMessageSent    = "MESSAGE_SENT"
	EventTypeMessageEdited  = "MESSAGE_EDITED"
	EventTypeMessageDeleted = "MESSAGE_DELETED"
	EventTypeMessagesRead   = "MESSAGES_READ"
)
