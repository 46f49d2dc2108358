package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"linkhub/pkg/logger"
)

// PresenceStore is the durable side of presence transitions. The user
// repository satisfies it.
type PresenceStore interface {
	SetPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error
}

// PresenceRegistry counts active realtime connections per user. A user is
// online while their count is above zero, so multiple tabs are tolerated:
// the online transition fires only on 0->1 and the offline transition only
// on N->0.
type PresenceRegistry struct {
	mu    sync.Mutex
	conns map[uuid.UUID]int

	store PresenceStore
	log   logger.Logger
}

func NewPresenceRegistry(store PresenceStore, log logger.Logger) *PresenceRegistry {
	return &PresenceRegistry{
		conns: make(map[uuid.UUID]int),
		store: store,
		log:   log,
	}
}

// MarkOnline registers one connection and reports whether the user just came
// online. The durable write is best-effort; the in-memory count stays
// authoritative for the running process.
func (p *PresenceRegistry) MarkOnline(userID uuid.UUID) bool {
	p.mu.Lock()
	p.conns[userID]++
	first := p.conns[userID] == 1
	p.mu.Unlock()

	if first {
		p.persist(userID, true)
	}
	return first
}

// MarkOffline removes one connection and reports whether the user just went
// offline. Calling it for a user with no registered connections is a no-op.
func (p *PresenceRegistry) MarkOffline(userID uuid.UUID) bool {
	p.mu.Lock()
	count, ok := p.conns[userID]
	if !ok {
		p.mu.Unlock()
		return false
	}
	count--
	if count <= 0 {
		delete(p.conns, userID)
	} else {
		p.conns[userID] = count
	}
	last := count <= 0
	p.mu.Unlock()

	if last {
		p.persist(userID, false)
	}
	return last
}

func (p *PresenceRegistry) IsOnline(userID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conns[userID] > 0
}

// OnlineUsers returns the IDs of every user with at least one connection.
func (p *PresenceRegistry) OnlineUsers() []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(p.conns))
	for id := range p.conns {
		ids = append(ids, id)
	}
	return ids
}

func (p *PresenceRegistry) persist(userID uuid.UUID, online bool) {
	if p.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.store.SetPresence(ctx, userID, online, time.Now()); err != nil {
			p.log.Warn("Presence persist failed, registry state unaffected",
				"user_id", userID, "online", online, "error", err)
		}
	}()
}
