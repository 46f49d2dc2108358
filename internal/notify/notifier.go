package notify

import "context"

// Notification carries everything a channel needs to reach a user outside
// the app. Delivery is fire-and-forget: it must never block or fail a send.
type Notification struct {
	Kind           string
	RecipientEmail string
	RecipientName  string
	SenderName     string
	Preview        string
	Link           string
}

const KindNewMessage = "new_message"

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}
