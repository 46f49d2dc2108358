package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"linkhub/internal/domain"
	"linkhub/internal/notify"
	"linkhub/internal/repository"
	"linkhub/internal/storage"
	apperrors "linkhub/pkg/errors"
	"linkhub/pkg/logger"
)

// Broadcaster is the realtime push handle injected into services. The hub
// implements it; delivery failures never reach the caller.
type Broadcaster interface {
	EmitToUser(userID uuid.UUID, event domain.Event)
}

// FileUpload is the in-memory form of a multipart attachment.
type FileUpload struct {
	Data        []byte
	Filename    string
	ContentType string
}

type MessageService interface {
	Send(ctx context.Context, senderID, recipientID uuid.UUID, body string) (*domain.Message, error)
	SendFile(ctx context.Context, senderID, recipientID uuid.UUID, body string, file FileUpload) (*domain.Message, error)
	History(ctx context.Context, userID, peerID uuid.UUID) ([]*domain.Message, error)
	Edit(ctx context.Context, messageID int64, requesterID uuid.UUID, newBody string) (*domain.Message, error)
	Delete(ctx context.Context, messageID int64, requesterID uuid.UUID) error
	MarkRead(ctx context.Context, peerID, currentUserID uuid.UUID) error
}

type messageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditRepository
	blobs       storage.BlobStore
	notifier    notify.Notifier
	rt          Broadcaster
	clientURL   string
	log         logger.Logger
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	blobs storage.BlobStore,
	notifier notify.Notifier,
	rt Broadcaster,
	clientURL string,
	log logger.Logger,
) MessageService {
	return &messageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		blobs:       blobs,
		notifier:    notifier,
		rt:          rt,
		clientURL:   clientURL,
		log:         log,
	}
}

func (s *messageService) Send(ctx context.Context, senderID, recipientID uuid.UUID, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: text message requires a body", apperrors.ErrValidation)
	}

	recipient, err := s.userRepo.GetByID(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}

	message := &domain.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Kind:        domain.KindText,
		Body:        body,
		CreatedAt:   time.Now(),
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	if err := s.attachSummaries(ctx, message); err != nil {
		s.log.Warn("Failed to resolve message participants", "message_id", message.ID, "error", err)
	}

	s.audit(ctx, senderID, domain.EventTypeMessageSent, map[string]any{
		"message_id": message.ID, "recipient_id": recipientID, "kind": message.Kind,
	})
	s.emitToBoth(message.SenderID, message.RecipientID, domain.Event{
		Type: domain.EventNewMessage, Payload: message,
	})

	if recipient.Email != "" {
		s.notifier.Notify(ctx, notify.Notification{
			Kind:           notify.KindNewMessage,
			RecipientEmail: recipient.Email,
			RecipientName:  recipient.DisplayName,
			SenderName:     s.senderName(ctx, message),
			Preview:        body,
			Link:           s.clientURL + "/messages",
		})
	}

	return message, nil
}

func (s *messageService) SendFile(ctx context.Context, senderID, recipientID uuid.UUID, body string, file FileUpload) (*domain.Message, error) {
	kind, resourceType, err := classifyAttachment(file.ContentType)
	if err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByID(ctx, recipientID); err != nil {
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}

	folder := fmt.Sprintf("messages/%s/%s", senderID, recipientID)
	uploaded, err := s.blobs.Upload(ctx, file.Data, folder, resourceType)
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}

	message := &domain.Message{
		SenderID:     senderID,
		RecipientID:  recipientID,
		Kind:         kind,
		Body:         strings.TrimSpace(body),
		FileURL:      uploaded.URL,
		FilePublicID: uploaded.PublicID,
		FileName:     file.Filename,
		CreatedAt:    time.Now(),
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	if err := s.attachSummaries(ctx, message); err != nil {
		s.log.Warn("Failed to resolve message participants", "message_id", message.ID, "error", err)
	}

	s.audit(ctx, senderID, domain.EventTypeMessageSent, map[string]any{
		"message_id": message.ID, "recipient_id": recipientID, "kind": message.Kind,
	})
	s.emitToBoth(message.SenderID, message.RecipientID, domain.Event{
		Type: domain.EventNewMessage, Payload: message,
	})

	return message, nil
}

// History returns the full exchange with a peer, oldest first, and marks
// everything the peer sent as read. The returned slice reflects the state as
// fetched, so messages read by this very call still show unread; the next
// fetch sees them read.
func (s *messageService) History(ctx context.Context, userID, peerID uuid.UUID) ([]*domain.Message, error) {
	messages, err := s.messageRepo.GetBetween(ctx, userID, peerID)
	if err != nil {
		return nil, err
	}

	if _, err := s.messageRepo.MarkRead(ctx, peerID, userID, time.Now()); err != nil {
		s.log.Warn("Failed to mark history read", "user_id", userID, "peer_id", peerID, "error", err)
	}

	if err := s.attachSummaries(ctx, messages...); err != nil {
		s.log.Warn("Failed to resolve history participants", "error", err)
	}

	return messages, nil
}

func (s *messageService) Edit(ctx context.Context, messageID int64, requesterID uuid.UUID, newBody string) (*domain.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != requesterID {
		return nil, fmt.Errorf("%w: only the sender can edit a message", apperrors.ErrForbidden)
	}

	newBody = strings.TrimSpace(newBody)
	if message.Kind == domain.KindText && newBody == "" {
		return nil, fmt.Errorf("%w: text message requires a body", apperrors.ErrValidation)
	}

	now := time.Now()
	message.Body = newBody
	message.IsEdited = true
	message.EditedAt = &now

	if err := s.messageRepo.Update(ctx, message); err != nil {
		return nil, err
	}

	if err := s.attachSummaries(ctx, message); err != nil {
		s.log.Warn("Failed to resolve message participants", "message_id", message.ID, "error", err)
	}

	s.audit(ctx, requesterID, domain.EventTypeMessageEdited, map[string]any{"message_id": message.ID})
	s.emitToBoth(message.SenderID, message.RecipientID, domain.Event{
		Type: domain.EventMessageEdited, Payload: message,
	})

	return message, nil
}

func (s *messageService) Delete(ctx context.Context, messageID int64, requesterID uuid.UUID) error {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if message.SenderID != requesterID {
		return fmt.Errorf("%w: only the sender can delete a message", apperrors.ErrForbidden)
	}

	// Release the attachment first, but never let a storage-provider hiccup
	// orphan the conversation: the row goes away regardless.
	if message.HasAttachment() {
		resourceType := storage.ResourceRaw
		if message.Kind == domain.KindImage {
			resourceType = storage.ResourceImage
		}
		if err := s.blobs.Destroy(ctx, message.FilePublicID, resourceType); err != nil {
			s.log.Warn("Failed to release attachment",
				"message_id", message.ID, "public_id", message.FilePublicID, "error", err)
		}
	}

	if err := s.messageRepo.Delete(ctx, messageID); err != nil {
		return err
	}

	s.audit(ctx, requesterID, domain.EventTypeMessageDeleted, map[string]any{"message_id": messageID})
	s.emitToBoth(message.SenderID, message.RecipientID, domain.Event{
		Type:    domain.EventMessageDeleted,
		Payload: domain.MessageDeletedPayload{MessageID: messageID},
	})

	return nil
}

// MarkRead flips every unread message from peerID to currentUserID. Calling
// it with nothing unread succeeds and changes nothing.
func (s *messageService) MarkRead(ctx context.Context, peerID, currentUserID uuid.UUID) error {
	updated, err := s.messageRepo.MarkRead(ctx, peerID, currentUserID, time.Now())
	if err != nil {
		return err
	}

	if updated > 0 {
		s.audit(ctx, currentUserID, domain.EventTypeMessagesRead, map[string]any{
			"peer_id": peerID, "count": updated,
		})
	}

	return nil
}

// emitToBoth pushes the same event to the recipient's and the sender's rooms;
// self-delivery keeps the sender's other open tabs in sync.
func (s *messageService) emitToBoth(senderID, recipientID uuid.UUID, event domain.Event) {
	s.rt.EmitToUser(recipientID, event)
	if senderID != recipientID {
		s.rt.EmitToUser(senderID, event)
	}
}

func (s *messageService) audit(ctx context.Context, actorID uuid.UUID, eventType string, payload map[string]any) {
	entry := &domain.AuditLog{
		EventTime:   time.Now(),
		ActorUserID: &actorID,
		EventType:   eventType,
		Payload:     payload,
	}
	if err := s.auditRepo.CreateLog(ctx, entry); err != nil {
		s.log.Warn("Audit write failed", "event_type", eventType, "error", err)
	}
}

// senderName resolves the display name for a notification. The email goes
// out even when summary resolution hiccuped on the send path, retrying with
// a direct lookup and falling back to a generic name.
func (s *messageService) senderName(ctx context.Context, message *domain.Message) string {
	if message.Sender != nil {
		return message.Sender.DisplayName
	}
	if user, err := s.userRepo.GetByID(ctx, message.SenderID); err == nil {
		return user.DisplayName
	}
	return "Someone"
}

// attachSummaries resolves sender/recipient display fields for a batch of
// messages with a single user lookup.
func (s *messageService) attachSummaries(ctx context.Context, messages ...*domain.Message) error {
	return attachSummaries(ctx, s.userRepo, messages)
}

func attachSummaries(ctx context.Context, users repository.UserRepository, messages []*domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	seen := map[uuid.UUID]bool{}
	ids := []uuid.UUID{}
	for _, m := range messages {
		for _, id := range []uuid.UUID{m.SenderID, m.RecipientID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	summaries, err := users.GetSummaries(ctx, ids)
	if err != nil {
		return err
	}

	for _, m := range messages {
		m.Sender = summaries[m.SenderID]
		m.Recipient = summaries[m.RecipientID]
	}
	return nil
}

func classifyAttachment(contentType string) (kind, resourceType string, err error) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return domain.KindImage, storage.ResourceImage, nil
	case contentType == "application/pdf",
		contentType == "application/msword",
		contentType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return domain.KindFile, storage.ResourceRaw, nil
	default:
		return "", "", fmt.Errorf("%w: unsupported file type %q", apperrors.ErrValidation, contentType)
	}
}
