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

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.UserSummary, error)
	SetPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error
}

type userRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewUserRepository(db *pgxpool.Pool, log logger.Logger) UserRepository {
	return &userRepository{db: db, log: log}
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, email, username, display_name, avatar_url, is_active, is_online, last_seen, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	user := &domain.User{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Username, &user.DisplayName, &user.AvatarURL,
		&user.IsActive, &user.IsOnline, &user.LastSeen, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get user", "user_id", id, "error", err)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	return user, nil
}

// GetSummaries resolves display fields for a batch of user IDs in one query.
// IDs that do not resolve are simply absent from the result map.
func (r *userRepository) GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.UserSummary, error) {
	summaries := make(map[uuid.UUID]*domain.UserSummary, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	query := `
		SELECT id, username, display_name, avatar_url, is_online, last_seen
		FROM users
		WHERE id = ANY($1)
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.log.Error("Failed to get user summaries", "error", err)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		summary := &domain.UserSummary{}
		err := rows.Scan(&summary.ID, &summary.Username, &summary.DisplayName,
			&summary.AvatarURL, &summary.IsOnline, &summary.LastSeen)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
		}
		summaries[summary.ID] = summary
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	return summaries, nil
}

// SetPresence records the durable side of a presence transition. Callers treat
// failures as non-fatal; the in-memory registry stays authoritative.
func (r *userRepository) SetPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error {
	query := `UPDATE users SET is_online = $2, last_seen = $3 WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, online, lastSeen)
	if err != nil {
		r.log.Error("Failed to persist presence", "user_id", id, "error", err)
		return fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	return nil
}
