package msgview

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"linkhub/internal/domain"
)

var (
	self = uuid.New()
	peer = uuid.New()
)

func serverMessage(id int64, from, to uuid.UUID, body string, at time.Time) *domain.Message {
	return &domain.Message{
		ID:          id,
		SenderID:    from,
		RecipientID: to,
		Kind:        domain.KindText,
		Body:        body,
		CreatedAt:   at,
	}
}

func bodies(items []Item) []string {
	result := make([]string, len(items))
	for i, item := range items {
		result[i] = item.Message.Body
	}
	return result
}

func TestOptimisticSendVisibleImmediately(t *testing.T) {
	view := New(self)
	view.SetActive(peer)

	view.AppendPending("hello")

	items := view.Messages()
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if !items[0].Pending || items[0].Failed {
		t.Errorf("item state = %+v, want pending", items[0])
	}
	if items[0].Message.SenderID != self {
		t.Error("provisional message must be attributed to the local user")
	}
}

// A failed send stays on screen marked failed; it is never silently lost.
func TestFailedSendStaysVisible(t *testing.T) {
	view := New(self)
	view.SetActive(peer)

	tempID := view.AppendPending("did this go through?")
	view.FailPending(tempID)

	items := view.Messages()
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if !items[0].Failed {
		t.Error("failed send must be marked, not removed")
	}

	view.DropPending(tempID)
	if len(view.Messages()) != 0 {
		t.Error("explicit drop should remove the failed entry")
	}
}

func TestConfirmPendingSwapsInServerMessage(t *testing.T) {
	view := New(self)
	view.SetActive(peer)

	tempID := view.AppendPending("hi")
	confirmed := serverMessage(7, self, peer, "hi", time.Now())
	view.ConfirmPending(tempID, confirmed)

	items := view.Messages()
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].Pending || items[0].Message.ID != 7 {
		t.Errorf("item = %+v, want confirmed server message", items[0])
	}
}

func TestPushedTwinSupersedesPending(t *testing.T) {
	view := New(self)
	view.SetActive(peer)

	view.AppendPending("hi")
	view.ApplyNew(serverMessage(3, self, peer, "hi", time.Now()))

	items := view.Messages()
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1 (pending superseded by push)", len(items))
	}
	if items[0].Pending {
		t.Error("pending entry should be replaced by its server twin")
	}
}

// Re-sending a body that already exists in history must not settle the new
// pending entry against the old message: a refresh in between would otherwise
// consume it, and a later send failure would have nothing left to mark.
func TestRepeatedBodyInHistoryDoesNotSettlePending(t *testing.T) {
	view := New(self)
	epoch := view.SetActive(peer)

	history := []*domain.Message{
		serverMessage(1, self, peer, "ok", time.Now().Add(-24*time.Hour)),
	}
	view.ApplyServerFetch(peer, epoch, history)

	tempID := view.AppendPending("ok")
	view.ApplyServerFetch(peer, epoch, history)

	view.FailPending(tempID)

	items := view.Messages()
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 (history + failed resend)", len(items))
	}
	var failed int
	for _, item := range items {
		if item.Failed {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("got %d failed items, want exactly the resend marked failed", failed)
	}
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	view := New(self)
	oldPeer := uuid.New()
	oldEpoch := view.SetActive(oldPeer)

	view.SetActive(peer)
	view.ApplyNew(serverMessage(10, peer, self, "current", time.Now()))

	// The fetch for the previously active conversation finally lands.
	applied := view.ApplyServerFetch(oldPeer, oldEpoch, []*domain.Message{
		serverMessage(1, oldPeer, self, "stale", time.Now().Add(-time.Hour)),
	})
	if applied {
		t.Error("fetch for a stale conversation must be discarded")
	}

	items := view.Messages()
	if len(items) != 1 || items[0].Message.Body != "current" {
		t.Errorf("view = %v, want only the current conversation's message", bodies(items))
	}
}

func TestOutOfOrderPushKeepsListSorted(t *testing.T) {
	view := New(self)
	epoch := view.SetActive(peer)

	base := time.Now().Add(-time.Hour)
	view.ApplyServerFetch(peer, epoch, []*domain.Message{
		serverMessage(1, peer, self, "first", base),
		serverMessage(3, peer, self, "third", base.Add(2*time.Minute)),
	})

	// The middle message arrives late over the push channel.
	view.ApplyNew(serverMessage(2, peer, self, "second", base.Add(time.Minute)))

	got := bodies(view.Messages())
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestEditedPushReplacesById(t *testing.T) {
	view := New(self)
	epoch := view.SetActive(peer)

	at := time.Now()
	view.ApplyServerFetch(peer, epoch, []*domain.Message{
		serverMessage(5, peer, self, "tpyo", at),
	})

	edited := serverMessage(5, peer, self, "typo", at)
	edited.IsEdited = true
	view.ApplyEdited(edited)

	items := view.Messages()
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1 (replace, not insert)", len(items))
	}
	if items[0].Message.Body != "typo" || !items[0].Message.IsEdited {
		t.Errorf("item = %+v, want edited body", items[0].Message)
	}
}

func TestDeletedPushRemovesMessage(t *testing.T) {
	view := New(self)
	epoch := view.SetActive(peer)

	view.ApplyServerFetch(peer, epoch, []*domain.Message{
		serverMessage(1, peer, self, "keep", time.Now().Add(-time.Minute)),
		serverMessage(2, peer, self, "remove", time.Now()),
	})
	view.ApplyDeleted(2)

	got := bodies(view.Messages())
	if len(got) != 1 || got[0] != "keep" {
		t.Errorf("view = %v, want [keep]", got)
	}
}

func TestEventsForOtherConversationsIgnored(t *testing.T) {
	view := New(self)
	view.SetActive(peer)

	other := uuid.New()
	view.ApplyNew(serverMessage(1, other, self, "other thread", time.Now()))

	if len(view.Messages()) != 0 {
		t.Error("events for an inactive conversation must not leak into the view")
	}
}

func TestSwitchingConversationClearsState(t *testing.T) {
	view := New(self)
	epoch := view.SetActive(peer)
	view.ApplyServerFetch(peer, epoch, []*domain.Message{
		serverMessage(1, peer, self, "old", time.Now()),
	})
	view.AppendPending("draft")

	view.SetActive(uuid.New())
	if len(view.Messages()) != 0 {
		t.Error("switching conversations must clear the rendered list")
	}
}
