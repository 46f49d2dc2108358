package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linkhub/internal/domain"
	apperrors "linkhub/pkg/errors"
	"linkhub/pkg/logger"
)

type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, messageID int64) (*domain.Message, error)
	GetBetween(ctx context.Context, userID, peerID uuid.UUID) ([]*domain.Message, error)
	GetAllForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Message, error)
	Update(ctx context.Context, message *domain.Message) error
	Delete(ctx context.Context, messageID int64) error
	MarkRead(ctx context.Context, senderID, recipientID uuid.UUID, readAt time.Time) (int64, error)
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

const messageColumns = `id, sender_id, recipient_id, kind, body, file_url, file_public_id, file_name,
	is_read, read_at, is_edited, edited_at, created_at`

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (sender_id, recipient_id, kind, body, file_url, file_public_id, file_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		message.SenderID, message.RecipientID, message.Kind, message.Body,
		message.FileURL, message.FilePublicID, message.FileName, message.CreatedAt,
	).Scan(&message.ID, &message.CreatedAt)

	if err != nil {
		r.log.Error("Failed to create message", "error", err)
		return fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, messageID int64) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	message, err := scanMessage(r.db.QueryRow(ctx, query, messageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get message", "message_id", messageID, "error", err)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	return message, nil
}

// GetBetween returns the full history between two users, oldest first.
func (r *messageRepository) GetBetween(ctx context.Context, userID, peerID uuid.UUID) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, userID, peerID)
	if err != nil {
		r.log.Error("Failed to get messages", "error", err)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// GetAllForUser returns every message the user sent or received, newest first.
// The conversation aggregator relies on this ordering.
func (r *messageRepository) GetAllForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE sender_id = $1 OR recipient_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.log.Error("Failed to get user messages", "error", err)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (r *messageRepository) Update(ctx context.Context, message *domain.Message) error {
	query := `
		UPDATE messages
		SET body = $2, is_edited = $3, edited_at = $4
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, message.ID, message.Body, message.IsEdited, message.EditedAt)
	if err != nil {
		r.log.Error("Failed to update message", "message_id", message.ID, "error", err)
		return fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *messageRepository) Delete(ctx context.Context, messageID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageID)
	if err != nil {
		r.log.Error("Failed to delete message", "message_id", messageID, "error", err)
		return fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// MarkRead flips every unread message from senderID to recipientID and returns
// how many rows changed. Zero rows is not an error.
func (r *messageRepository) MarkRead(ctx context.Context, senderID, recipientID uuid.UUID, readAt time.Time) (int64, error) {
	query := `
		UPDATE messages
		SET is_read = TRUE, read_at = $3
		WHERE sender_id = $1 AND recipient_id = $2 AND is_read = FALSE
	`

	tag, err := r.db.Exec(ctx, query, senderID, recipientID, readAt)
	if err != nil {
		r.log.Error("Failed to mark messages read", "error", err)
		return 0, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	message := &domain.Message{}
	var readAt, editedAt *time.Time
	err := row.Scan(
		&message.ID, &message.SenderID, &message.RecipientID, &message.Kind, &message.Body,
		&message.FileURL, &message.FilePublicID, &message.FileName,
		&message.IsRead, &readAt, &message.IsEdited, &editedAt, &message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	message.ReadAt = readAt
	message.EditedAt = editedAt
	return message, nil
}

func scanMessages(rows pgx.Rows) ([]*domain.Message, error) {
	messages := []*domain.Message{}
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	return messages, nil
}
