// Package msgview maintains the consumer-side view of one conversation: a
// single ordered message list merged from REST history fetches, realtime
// push events, and local optimistic sends that the server has not yet
// confirmed. It is UI-free and safe for concurrent use.
package msgview

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"linkhub/internal/domain"
)

// Item is one rendered entry. Pending entries carry a temporary ID and no
// server ID; a failed send stays visible with Failed set until the caller
// removes or retries it.
type Item struct {
	Message *domain.Message
	TempID  uuid.UUID
	Pending bool
	Failed  bool
}

type pendingOp struct {
	tempID  uuid.UUID
	message *domain.Message
	failed  bool
}

// View is the per-user message view model. Only one conversation is active
// at a time; switching bumps an epoch so responses from in-flight fetches
// for the previous peer cannot overwrite the new conversation's state.
type View struct {
	mu sync.Mutex

	selfID     uuid.UUID
	activePeer uuid.UUID
	epoch      uint64

	snapshot []*domain.Message
	pending  []*pendingOp
}

func New(selfID uuid.UUID) *View {
	return &View{selfID: selfID}
}

// SetActive switches the view to a conversation with peerID, clearing all
// local state, and returns the epoch a subsequent fetch must present.
func (v *View) SetActive(peerID uuid.UUID) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.activePeer = peerID
	v.epoch++
	v.snapshot = nil
	v.pending = nil
	return v.epoch
}

func (v *View) Epoch() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.epoch
}

// AppendPending records an optimistic text send and returns its temporary
// identifier. The entry shows up immediately in Messages.
func (v *View) AppendPending(body string) uuid.UUID {
	v.mu.Lock()
	defer v.mu.Unlock()

	tempID := uuid.New()
	v.pending = append(v.pending, &pendingOp{
		tempID: tempID,
		message: &domain.Message{
			SenderID:    v.selfID,
			RecipientID: v.activePeer,
			Kind:        domain.KindText,
			Body:        body,
			CreatedAt:   time.Now(),
		},
	})
	return tempID
}

// ConfirmPending replaces the optimistic entry with the server's message.
func (v *View) ConfirmPending(tempID uuid.UUID, confirmed *domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.removePendingLocked(tempID)
	if v.belongsLocked(confirmed) {
		v.mergeLocked(confirmed)
	}
}

// FailPending marks the optimistic entry as failed. The entry is kept so the
// user can see the send did not go through; it is never silently dropped.
func (v *View) FailPending(tempID uuid.UUID) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, op := range v.pending {
		if op.tempID == tempID {
			op.failed = true
			return
		}
	}
}

// DropPending removes an optimistic entry, typically after the user
// acknowledged a failure or retried the send.
func (v *View) DropPending(tempID uuid.UUID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.removePendingLocked(tempID)
}

// ApplyServerFetch installs REST history for the active conversation. The
// call is ignored unless peerID and epoch still match, so a stale response
// for a previously open conversation cannot clobber current state. Pending
// entries that the snapshot already confirms are dropped.
func (v *View) ApplyServerFetch(peerID uuid.UUID, epoch uint64, messages []*domain.Message) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if peerID != v.activePeer || epoch != v.epoch {
		return false
	}

	v.snapshot = make([]*domain.Message, len(messages))
	copy(v.snapshot, messages)
	v.sortLocked()

	for _, m := range v.snapshot {
		v.dropSupersededLocked(m)
	}
	return true
}

// ApplyNew merges a pushed newMessage event. Events for other conversations
// are ignored; out-of-order arrival is handled by re-sorting after merge.
func (v *View) ApplyNew(message *domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.belongsLocked(message) {
		return
	}
	v.mergeLocked(message)
	v.dropSupersededLocked(message)
}

// ApplyEdited merges a pushed messageEdited event (replace-or-insert).
func (v *View) ApplyEdited(message *domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.belongsLocked(message) {
		return
	}
	v.mergeLocked(message)
}

// ApplyDeleted removes the message with the given server ID, if present.
func (v *View) ApplyDeleted(messageID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i, m := range v.snapshot {
		if m.ID == messageID {
			v.snapshot = append(v.snapshot[:i], v.snapshot[i+1:]...)
			return
		}
	}
}

// Messages renders the merged, ordered list: the server snapshot followed by
// surviving optimistic entries, all sorted by creation time.
func (v *View) Messages() []Item {
	v.mu.Lock()
	defer v.mu.Unlock()

	items := make([]Item, 0, len(v.snapshot)+len(v.pending))
	for _, m := range v.snapshot {
		items = append(items, Item{Message: m})
	}
	for _, op := range v.pending {
		items = append(items, Item{
			Message: op.message,
			TempID:  op.tempID,
			Pending: true,
			Failed:  op.failed,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Message, items[j].Message
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return items
}

func (v *View) belongsLocked(message *domain.Message) bool {
	if message == nil {
		return false
	}
	return (message.SenderID == v.selfID && message.RecipientID == v.activePeer) ||
		(message.SenderID == v.activePeer && message.RecipientID == v.selfID)
}

// mergeLocked does replace-or-insert by server ID and restores order.
func (v *View) mergeLocked(message *domain.Message) {
	for i, m := range v.snapshot {
		if m.ID == message.ID {
			v.snapshot[i] = message
			v.sortLocked()
			return
		}
	}
	v.snapshot = append(v.snapshot, message)
	v.sortLocked()
}

// twinSkew absorbs client/server clock drift when matching a confirmed
// message against the optimistic entry it settles.
const twinSkew = time.Minute

// dropSupersededLocked removes the first pending entry that a confirmed
// message from the same sender with the same body supersedes. Only messages
// created at or after the pending entry (minus clock skew) count: an older
// message with the same body is history repeating itself, not this send, and
// consuming the pending entry for it would make a later failure invisible.
func (v *View) dropSupersededLocked(confirmed *domain.Message) {
	if confirmed.SenderID != v.selfID {
		return
	}
	for i, op := range v.pending {
		if op.failed {
			continue
		}
		if confirmed.CreatedAt.Before(op.message.CreatedAt.Add(-twinSkew)) {
			continue
		}
		if op.message.Body == confirmed.Body && op.message.Kind == confirmed.Kind {
			v.pending = append(v.pending[:i], v.pending[i+1:]...)
			return
		}
	}
}

func (v *View) removePendingLocked(tempID uuid.UUID) {
	for i, op := range v.pending {
		if op.tempID == tempID {
			v.pending = append(v.pending[:i], v.pending[i+1:]...)
			return
		}
	}
}

func (v *View) sortLocked() {
	sort.SliceStable(v.snapshot, func(i, j int) bool {
		if !v.snapshot[i].CreatedAt.Equal(v.snapshot[j].CreatedAt) {
			return v.snapshot[i].CreatedAt.Before(v.snapshot[j].CreatedAt)
		}
		return v.snapshot[i].ID < v.snapshot[j].ID
	})
}
