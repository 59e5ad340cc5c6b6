// Package inspect provides the read-only aggregation surface over the
// pending queue, outcome sinks, and tracking store, plus the
// operator-only per-author purge.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gaugehq/bskyagent/internal/model"
	"github.com/gaugehq/bskyagent/internal/queue"
	"github.com/gaugehq/bskyagent/internal/store"
)

// Service aggregates the durable collections. All reads reflect the
// last durably committed state, never an in-flight one.
type Service struct {
	store store.Store
	queue *queue.Queue
}

// New creates an inspection service over the given store and queue.
func New(s store.Store, q *queue.Queue) *Service {
	return &Service{store: s, queue: q}
}

// Stats holds aggregate counts by status.
type Stats struct {
	Pending   int
	Processed int
	Errored   int
	Skipped   int
	Total     int
}

// Stats returns tracking entry counts by status.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		Pending:   counts[model.StatusPending],
		Processed: counts[model.StatusProcessed],
		Errored:   counts[model.StatusErrored],
		Skipped:   counts[model.StatusSkipped],
	}
	st.Total = st.Pending + st.Processed + st.Errored + st.Skipped
	return st, nil
}

// PendingCount returns how many notifications await processing.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.queue.Count(queue.LocationPending)
}

// Row is one notification in a listing, joining its tracking entry with
// the queue item where one still exists (processed notifications have
// left the collections).
type Row struct {
	ID           string
	AuthorHandle string
	Kind         model.Kind
	Status       model.Status
	FirstSeenAt  time.Time
	UpdatedAt    time.Time
	AttemptCount int
	LastError    string
}

// Filter narrows List results by author handle and/or status.
type Filter struct {
	AuthorHandle *string
	Status       *model.Status
	Limit        int
}

// List returns notifications matching the filter, oldest first.
func (s *Service) List(ctx context.Context, f Filter) ([]Row, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, fmt.Errorf("invalid status filter %q", *f.Status)
	}

	entries, err := s.store.Query(ctx, store.EntryFilter{
		AuthorHandle: f.AuthorHandle,
		Status:       f.Status,
		Limit:        f.Limit,
	})
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		row := Row{
			ID:           e.NotificationID,
			AuthorHandle: e.AuthorHandle,
			Kind:         e.Kind,
			Status:       e.Status,
			FirstSeenAt:  e.FirstSeenAt,
			UpdatedAt:    e.UpdatedAt,
		}

		if loc, ok := locationForStatus(e.Status); ok {
			rec, err := s.queue.Get(loc, e.NotificationID)
			switch {
			case err == nil:
				row.AttemptCount = rec.AttemptCount
				row.LastError = rec.LastError
			case errors.Is(err, queue.ErrNotFound):
				// Tracking and collections disagree mid-transition;
				// the listing still reflects the committed entry.
			default:
				return nil, err
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// TopAuthors returns per-author interaction counts, most active first.
func (s *Service) TopAuthors(ctx context.Context, limit int) ([]store.AuthorCount, error) {
	return s.store.AuthorCounts(ctx, limit)
}

// DeleteResult reports what a per-author purge removed.
type DeleteResult struct {
	QueueItems      int
	TrackingEntries int
}

// DeleteByAuthor removes every queue item and tracking entry for the
// given author handle. This is the only operation permitted to violate
// normal lifecycle ordering; it is operator-triggered, never part of
// the automatic pipeline.
func (s *Service) DeleteByAuthor(ctx context.Context, handle string) (*DeleteResult, error) {
	items, err := s.queue.RemoveByAuthor(handle)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.DeleteByAuthor(ctx, handle)
	if err != nil {
		return nil, err
	}

	return &DeleteResult{QueueItems: items, TrackingEntries: entries}, nil
}

// locationForStatus maps a non-terminal-free status onto the collection
// that physically holds the item.
func locationForStatus(status model.Status) (queue.Location, bool) {
	switch status {
	case model.StatusPending:
		return queue.LocationPending, true
	case model.StatusErrored:
		return queue.LocationErrored, true
	case model.StatusSkipped:
		return queue.LocationSkipped, true
	default:
		return "", false
	}
}
