package testutil

import (
	"testing"

	"github.com/gaugehq/bskyagent/internal/queue"
	"github.com/gaugehq/bskyagent/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewTestQueue creates a queue rooted in a temporary directory.
func NewTestQueue(t *testing.T) *queue.Queue {
	t.Helper()

	q, err := queue.Open(t.TempDir())
	if err != nil {
		t.Fatalf("creating test queue: %v", err)
	}

	return q
}
