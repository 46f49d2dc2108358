package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"linkhub/internal/domain"
	"linkhub/internal/notify"
	"linkhub/internal/storage"
	apperrors "linkhub/pkg/errors"
	"linkhub/pkg/logger"
)

type fakeMessageRepo struct {
	mu       sync.Mutex
	nextID   int64
	messages map[int64]*domain.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: map[int64]*domain.Message{}}
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	message.ID = r.nextID
	stored := *message
	r.messages[message.ID] = &stored
	return nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, messageID int64) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.messages[messageID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeMessageRepo) GetBetween(ctx context.Context, userID, peerID uuid.UUID) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []*domain.Message{}
	for _, m := range r.messages {
		if (m.SenderID == userID && m.RecipientID == peerID) || (m.SenderID == peerID && m.RecipientID == userID) {
			copied := *m
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *fakeMessageRepo) GetAllForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []*domain.Message{}
	for _, m := range r.messages {
		if m.SenderID == userID || m.RecipientID == userID {
			copied := *m
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *fakeMessageRepo) Update(ctx context.Context, message *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[message.ID]; !ok {
		return apperrors.ErrNotFound
	}
	stored := *message
	r.messages[message.ID] = &stored
	return nil
}

func (r *fakeMessageRepo) Delete(ctx context.Context, messageID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[messageID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.messages, messageID)
	return nil
}

func (r *fakeMessageRepo) MarkRead(ctx context.Context, senderID, recipientID uuid.UUID, readAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var updated int64
	for _, m := range r.messages {
		if m.SenderID == senderID && m.RecipientID == recipientID && !m.IsRead {
			m.IsRead = true
			at := readAt
			m.ReadAt = &at
			updated++
		}
	}
	return updated, nil
}

// seed inserts a message directly, bypassing Create's ID assignment only for
// timestamps the tests control.
func (r *fakeMessageRepo) seed(sender, recipient uuid.UUID, body string, createdAt time.Time, read bool) *domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m := &domain.Message{
		ID:          r.nextID,
		SenderID:    sender,
		RecipientID: recipient,
		Kind:        domain.KindText,
		Body:        body,
		IsRead:      read,
		CreatedAt:   createdAt,
	}
	r.messages[m.ID] = m
	return m
}

type fakeUserRepo struct {
	users        map[uuid.UUID]*domain.User
	summariesErr error
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[uuid.UUID]*domain.User{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.UserSummary, error) {
	if r.summariesErr != nil {
		return nil, r.summariesErr
	}
	summaries := map[uuid.UUID]*domain.UserSummary{}
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			summaries[id] = user.Summary()
		}
	}
	return summaries, nil
}

func (r *fakeUserRepo) SetPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error {
	return nil
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []*domain.AuditLog
}

func (r *fakeAuditRepo) CreateLog(ctx context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	return nil
}

type fakeBlobStore struct {
	uploads    []string
	destroyed  []string
	destroyErr error
}

func (s *fakeBlobStore) Upload(ctx context.Context, data []byte, folder, resourceType string) (*storage.UploadResult, error) {
	publicID := folder + "/" + uuid.New().String()
	s.uploads = append(s.uploads, publicID)
	return &storage.UploadResult{URL: "http://blobs.local/" + publicID, PublicID: publicID}, nil
}

func (s *fakeBlobStore) Destroy(ctx context.Context, publicID, resourceType string) error {
	s.destroyed = append(s.destroyed, publicID)
	return s.destroyErr
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (n *fakeNotifier) Notify(ctx context.Context, notification notify.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
}

type emitted struct {
	userID uuid.UUID
	event  domain.Event
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []emitted
}

func (b *fakeBroadcaster) EmitToUser(userID uuid.UUID, event domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, emitted{userID: userID, event: event})
}

func (b *fakeBroadcaster) byType(eventType string) []emitted {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := []emitted{}
	for _, e := range b.events {
		if e.event.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

type messageFixture struct {
	svc      MessageService
	msgs     *fakeMessageRepo
	users    *fakeUserRepo
	audit    *fakeAuditRepo
	blobs    *fakeBlobStore
	notifier *fakeNotifier
	rt       *fakeBroadcaster
	alice    *domain.User
	bob      *domain.User
}

func newMessageFixture() *messageFixture {
	alice := &domain.User{ID: uuid.New(), Email: "alice@example.com", Username: "alice", DisplayName: "Alice", IsActive: true}
	bob := &domain.User{ID: uuid.New(), Email: "bob@example.com", Username: "bob", DisplayName: "Bob", IsActive: true}

	f := &messageFixture{
		msgs:     newFakeMessageRepo(),
		users:    newFakeUserRepo(alice, bob),
		audit:    &fakeAuditRepo{},
		blobs:    &fakeBlobStore{},
		notifier: &fakeNotifier{},
		rt:       &fakeBroadcaster{},
		alice:    alice,
		bob:      bob,
	}
	f.svc = NewMessageService(f.msgs, f.users, f.audit, f.blobs, f.notifier, f.rt,
		"http://localhost:5173", logger.New("error"))
	return f
}
