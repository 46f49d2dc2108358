package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"linkhub/pkg/logger"
)

// SMTPNotifier sends message notification emails in the background. Failures
// are logged and swallowed; message delivery never depends on email.
type SMTPNotifier struct {
	addr string
	from string
	auth smtp.Auth
	log  logger.Logger
}

func NewSMTPNotifier(host string, port int, username, password, from string, log logger.Logger) *SMTPNotifier {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPNotifier{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
		auth: auth,
		log:  log,
	}
}

func (n *SMTPNotifier) Notify(ctx context.Context, notification Notification) {
	go func() {
		body := fmt.Sprintf("To: %s\r\nSubject: New message from %s\r\n\r\nHi %s,\r\n\r\n%s sent you a message:\r\n\r\n%q\r\n\r\nReply at %s\r\n",
			notification.RecipientEmail, notification.SenderName,
			notification.RecipientName, notification.SenderName,
			notification.Preview, notification.Link)

		err := smtp.SendMail(n.addr, n.auth, n.from, []string{notification.RecipientEmail}, []byte(body))
		if err != nil {
			n.log.Warn("Notification email failed",
				"kind", notification.Kind, "recipient", notification.RecipientEmail, "error", err)
		}
	}()
}

// NopNotifier discards notifications. Used when SMTP is not configured.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, n Notification) {}
