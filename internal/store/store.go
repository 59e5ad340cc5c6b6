package store

import (
	"context"
	"errors"

	"github.com/gaugehq/bskyagent/internal/model"
)

// ErrNotFound is returned when an operation targets a notification id
// with no tracking entry.
var ErrNotFound = errors.New("store: tracking entry not found")

// EntryFilter controls filtering and pagination for tracking queries.
type EntryFilter struct {
	AuthorHandle *string
	Status       *model.Status
	Limit        int
	Offset       int
}

// AuthorCount is a per-author interaction tally, used to rank the most
// active authors.
type AuthorCount struct {
	AuthorHandle string `db:"author_handle"`
	Count        int    `db:"n"`
}

// Store is the tracking store: one entry per notification ever seen.
// HasSeen is the deduplication gate consulted before every enqueue;
// an id present with any status is never re-ingested from the feed.
type Store interface {
	HasSeen(ctx context.Context, id string) (bool, error)
	Record(ctx context.Context, entry model.TrackingEntry) error
	UpdateStatus(ctx context.Context, id string, status model.Status) error
	GetEntry(ctx context.Context, id string) (*model.TrackingEntry, error)
	Query(ctx context.Context, filter EntryFilter) ([]model.TrackingEntry, error)
	DeleteByAuthor(ctx context.Context, handle string) (int, error)
	CountByStatus(ctx context.Context) (map[model.Status]int, error)
	AuthorCounts(ctx context.Context, limit int) ([]AuthorCount, error)
	Close() error
}
