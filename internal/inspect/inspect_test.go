package inspect_test

import (
	"context"
	"testing"
	"time"

	"github.com/gaugehq/bskyagent/internal/inspect"
	"github.com/gaugehq/bskyagent/internal/model"
	"github.com/gaugehq/bskyagent/internal/queue"
	"github.com/gaugehq/bskyagent/internal/store"
	"github.com/gaugehq/bskyagent/tests/testutil"
)

type fixture struct {
	store   *store.SQLiteStore
	queue   *queue.Queue
	service *inspect.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := testutil.NewTestStore(t)
	q := testutil.NewTestQueue(t)
	return &fixture{store: s, queue: q, service: inspect.New(s, q)}
}

// seed records a notification in both collections, then walks it to the
// given status the way the pipeline would.
func (fx *fixture) seed(t *testing.T, id, author string, status model.Status, seen time.Time) {
	t.Helper()
	ctx := context.Background()

	rec := model.NotificationRecord{
		ID:           id,
		AuthorHandle: author,
		Kind:         model.KindMention,
		ReceivedAt:   seen,
		EnqueuedAt:   seen,
		AttemptCount: 1,
	}
	if err := fx.queue.Enqueue(rec); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	err := fx.store.Record(ctx, model.TrackingEntry{
		NotificationID: id,
		AuthorHandle:   author,
		Kind:           model.KindMention,
		Status:         model.StatusPending,
		FirstSeenAt:    seen,
		UpdatedAt:      seen,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if status == model.StatusPending {
		return
	}
	if err := fx.store.UpdateStatus(ctx, id, status); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	switch status {
	case model.StatusProcessed:
		if err := fx.queue.Remove(id); err != nil {
			t.Fatalf("Remove: %v", err)
		}
	case model.StatusErrored:
		if err := fx.queue.MoveToSink(rec, queue.LocationErrored, "agent rejected request"); err != nil {
			t.Fatalf("MoveToSink: %v", err)
		}
	case model.StatusSkipped:
		if err := fx.queue.MoveToSink(rec, queue.LocationSkipped, "no reply needed"); err != nil {
			t.Fatalf("MoveToSink: %v", err)
		}
	}
}

func TestStats(t *testing.T) {
	fx := newFixture(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	fx.seed(t, "n1", "alice", model.StatusPending, base)
	fx.seed(t, "n2", "bob", model.StatusProcessed, base.Add(time.Minute))
	fx.seed(t, "n3", "carol", model.StatusErrored, base.Add(2*time.Minute))
	fx.seed(t, "n4", "alice", model.StatusSkipped, base.Add(3*time.Minute))

	stats, err := fx.service.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Pending != 1 || stats.Processed != 1 || stats.Errored != 1 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want 1 of each", stats)
	}
	if stats.Total != 4 {
		t.Errorf("total = %d, want 4", stats.Total)
	}

	pending, err := fx.service.PendingCount(context.Background())
	if err != nil {
		t.Fatalf("PendingCount: %v", err)
	}
	if pending != 1 {
		t.Errorf("pending count = %d, want 1", pending)
	}
}

func TestListJoinsQueueDetail(t *testing.T) {
	fx := newFixture(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	fx.seed(t, "n1", "alice", model.StatusErrored, base)
	fx.seed(t, "n2", "bob", model.StatusProcessed, base.Add(time.Minute))

	rows, err := fx.service.List(context.Background(), inspect.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	// The errored row carries detail from its sink copy.
	if rows[0].ID != "n1" || rows[0].LastError != "agent rejected request" || rows[0].AttemptCount != 1 {
		t.Errorf("errored row = %+v", rows[0])
	}
	// The processed row has left the collections; only tracking remains.
	if rows[1].ID != "n2" || rows[1].LastError != "" || rows[1].AttemptCount != 0 {
		t.Errorf("processed row = %+v", rows[1])
	}
}

func TestListFilters(t *testing.T) {
	fx := newFixture(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	fx.seed(t, "n1", "alice", model.StatusPending, base)
	fx.seed(t, "n2", "bob", model.StatusPending, base.Add(time.Minute))
	fx.seed(t, "n3", "alice", model.StatusSkipped, base.Add(2*time.Minute))

	ctx := context.Background()
	alice := "alice"
	rows, err := fx.service.List(ctx, inspect.Filter{AuthorHandle: &alice})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("author filter returned %d rows, want 2", len(rows))
	}

	skipped := model.StatusSkipped
	rows, err = fx.service.List(ctx, inspect.Filter{Status: &skipped})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "n3" {
		t.Errorf("status filter rows = %+v", rows)
	}

	bogus := model.Status("bogus")
	if _, err := fx.service.List(ctx, inspect.Filter{Status: &bogus}); err == nil {
		t.Error("expected invalid status filter to be rejected")
	}
}

func TestTopAuthors(t *testing.T) {
	fx := newFixture(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	fx.seed(t, "n1", "alice", model.StatusPending, base)
	fx.seed(t, "n2", "alice", model.StatusProcessed, base.Add(time.Minute))
	fx.seed(t, "n3", "bob", model.StatusPending, base.Add(2*time.Minute))

	top, err := fx.service.TopAuthors(context.Background(), 5)
	if err != nil {
		t.Fatalf("TopAuthors: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("got %d authors, want 2", len(top))
	}
	if top[0].AuthorHandle != "alice" || top[0].Count != 2 {
		t.Errorf("top author = %s (%d), want alice (2)", top[0].AuthorHandle, top[0].Count)
	}
}

func TestDeleteByAuthor(t *testing.T) {
	fx := newFixture(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// bob has one pending and one processed notification; both tracking
	// entries vanish, and so does the pending queue item.
	fx.seed(t, "n1", "bob", model.StatusPending, base)
	fx.seed(t, "n2", "bob", model.StatusProcessed, base.Add(time.Minute))
	fx.seed(t, "n3", "alice", model.StatusPending, base.Add(2*time.Minute))

	res, err := fx.service.DeleteByAuthor(context.Background(), "bob")
	if err != nil {
		t.Fatalf("DeleteByAuthor: %v", err)
	}
	if res.QueueItems != 1 {
		t.Errorf("queue items removed = %d, want 1", res.QueueItems)
	}
	if res.TrackingEntries != 2 {
		t.Errorf("tracking entries removed = %d, want 2", res.TrackingEntries)
	}

	// bob's id is no longer seen, so a future re-delivery re-ingests it.
	seen, err := fx.store.HasSeen(context.Background(), "n2")
	if err != nil {
		t.Fatalf("HasSeen: %v", err)
	}
	if seen {
		t.Error("purged id should no longer gate ingestion")
	}

	rows, err := fx.service.List(context.Background(), inspect.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].AuthorHandle != "alice" {
		t.Errorf("unexpected survivors: %+v", rows)
	}
}
