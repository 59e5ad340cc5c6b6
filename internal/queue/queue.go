// Package queue implements the durable pending queue and outcome sinks.
// Each notification is one JSON file under pending/, errored/, or
// skipped/, named by an encoding of its id, so items can be added,
// read, and removed individually without rewriting the collection.
package queue

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gaugehq/bskyagent/internal/model"
)

// Location identifies which durable collection holds an item.
type Location string

const (
	LocationPending Location = "pending"
	LocationErrored Location = "errored"
	LocationSkipped Location = "skipped"
)

// Locations lists all collections in scan order.
var Locations = []Location{LocationPending, LocationErrored, LocationSkipped}

var (
	// ErrEmpty is returned by DequeueNext when no pending item is
	// eligible for processing.
	ErrEmpty = errors.New("queue: no pending notifications")

	// ErrNotFound is returned when an id has no item in the targeted
	// collection.
	ErrNotFound = errors.New("queue: notification not found")
)

// Item pairs a notification record with the collection that holds it.
type Item struct {
	Location Location
	Record   model.NotificationRecord
}

// ListFilter narrows List results.
type ListFilter struct {
	Location     *Location
	AuthorHandle *string
}

// Queue is a directory-backed queue rooted at a data directory. It is
// not safe for concurrent use by multiple goroutines; the coordinator's
// single-flight lock serializes access.
type Queue struct {
	root string
}

// Open prepares the queue directories under root and returns the queue.
func Open(root string) (*Queue, error) {
	for _, loc := range Locations {
		dir := filepath.Join(root, string(loc))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating queue directory %s: %w", dir, err)
		}
	}
	return &Queue{root: root}, nil
}

// fileNameFor maps a notification id (an opaque string that may contain
// path separators, e.g. an AT-URI) onto a safe, deterministic file name.
func fileNameFor(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id)) + ".json"
}

func (q *Queue) path(loc Location, id string) string {
	return filepath.Join(q.root, string(loc), fileNameFor(id))
}

// writeItem persists a record into loc via temp-file-plus-rename so a
// crash never leaves a partially written unit.
func (q *Queue) writeItem(loc Location, rec model.NotificationRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling notification %s: %w", rec.ID, err)
	}

	dir := filepath.Join(q.root, string(loc))
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing notification %s: %w", rec.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing notification %s: %w", rec.ID, err)
	}

	if err := os.Rename(tmp.Name(), q.path(loc, rec.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("committing notification %s: %w", rec.ID, err)
	}

	return nil
}

// readItem loads one record file.
func readItem(path string) (model.NotificationRecord, error) {
	var rec model.NotificationRecord

	data, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decoding queue item %s: %w", filepath.Base(path), err)
	}

	return rec, nil
}

// scan reads every item in loc, skipping uncommitted temp files.
func (q *Queue) scan(loc Location) ([]model.NotificationRecord, error) {
	dir := filepath.Join(q.root, string(loc))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading queue directory %s: %w", dir, err)
	}

	var recs []model.NotificationRecord
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		rec, err := readItem(filepath.Join(dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		recs = append(recs, rec)
	}

	return recs, nil
}

// Enqueue persists a record into the pending collection. Enqueueing an
// id that is already pending overwrites the existing unit, which makes
// ingestion idempotent across the crash window between queue write and
// tracking commit.
func (q *Queue) Enqueue(rec model.NotificationRecord) error {
	if rec.ID == "" {
		return errors.New("queue: cannot enqueue record without id")
	}
	if rec.EnqueuedAt.IsZero() {
		rec.EnqueuedAt = rec.ReceivedAt
	}
	return q.writeItem(LocationPending, rec)
}

// DequeueNext returns the pending record next in line at the given
// instant: FIFO by enqueued time, ties broken by id, skipping items
// whose retry gate (NotBefore) has not passed. The item stays in the
// pending collection until a terminal transition removes it.
func (q *Queue) DequeueNext(now time.Time) (*model.NotificationRecord, error) {
	recs, err := q.scan(LocationPending)
	if err != nil {
		return nil, err
	}

	eligible := recs[:0]
	for _, r := range recs {
		if r.NotBefore.IsZero() || !r.NotBefore.After(now) {
			eligible = append(eligible, r)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrEmpty
	}

	sort.Slice(eligible, func(i, j int) bool {
		if !eligible[i].EnqueuedAt.Equal(eligible[j].EnqueuedAt) {
			return eligible[i].EnqueuedAt.Before(eligible[j].EnqueuedAt)
		}
		return eligible[i].ID < eligible[j].ID
	})

	rec := eligible[0]
	return &rec, nil
}

// Update rewrites a pending record in place (attempt count, retry gate).
func (q *Queue) Update(rec model.NotificationRecord) error {
	if _, err := os.Stat(q.path(LocationPending, rec.ID)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("updating %s: %w", rec.ID, ErrNotFound)
		}
		return fmt.Errorf("updating %s: %w", rec.ID, err)
	}
	return q.writeItem(LocationPending, rec)
}

// Get retrieves a single record from the given collection.
func (q *Queue) Get(loc Location, id string) (*model.NotificationRecord, error) {
	rec, err := readItem(q.path(loc, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("getting %s from %s: %w", id, loc, ErrNotFound)
		}
		return nil, err
	}
	return &rec, nil
}

// Remove deletes a record from the pending collection.
func (q *Queue) Remove(id string) error {
	err := os.Remove(q.path(LocationPending, id))
	if os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("removing %s: %w", id, err)
	}
	return nil
}

// MoveToSink transitions a record out of the pending collection into an
// outcome sink, stamping the reason as its last error (errored) or skip
// reason. The sink copy is committed before the pending unit is removed,
// so a crash in between leaves a duplicate for the startup reconcile to
// resolve, never a lost item.
func (q *Queue) MoveToSink(rec model.NotificationRecord, sink Location, reason string) error {
	if sink != LocationErrored && sink != LocationSkipped {
		return fmt.Errorf("moving %s: invalid sink %q", rec.ID, sink)
	}
	if reason != "" {
		rec.LastError = reason
	}

	if err := q.writeItem(sink, rec); err != nil {
		return err
	}

	err := os.Remove(q.path(LocationPending, rec.ID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s from pending after move: %w", rec.ID, err)
	}

	return nil
}

// List returns items across the collections, narrowed by the filter,
// ordered by received time then id within each collection.
func (q *Queue) List(f ListFilter) ([]Item, error) {
	locs := Locations
	if f.Location != nil {
		locs = []Location{*f.Location}
	}

	var items []Item
	for _, loc := range locs {
		recs, err := q.scan(loc)
		if err != nil {
			return nil, err
		}
		sort.Slice(recs, func(i, j int) bool {
			if !recs[i].ReceivedAt.Equal(recs[j].ReceivedAt) {
				return recs[i].ReceivedAt.Before(recs[j].ReceivedAt)
			}
			return recs[i].ID < recs[j].ID
		})
		for _, r := range recs {
			if f.AuthorHandle != nil && r.AuthorHandle != *f.AuthorHandle {
				continue
			}
			items = append(items, Item{Location: loc, Record: r})
		}
	}

	return items, nil
}

// Count returns how many items the given collection holds.
func (q *Queue) Count(loc Location) (int, error) {
	recs, err := q.scan(loc)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// RemoveByAuthor deletes every item by the given author from all
// collections and returns how many were removed. Operator-triggered.
func (q *Queue) RemoveByAuthor(handle string) (int, error) {
	removed := 0
	for _, loc := range Locations {
		recs, err := q.scan(loc)
		if err != nil {
			return removed, err
		}
		for _, r := range recs {
			if r.AuthorHandle != handle {
				continue
			}
			if err := os.Remove(q.path(loc, r.ID)); err != nil && !os.IsNotExist(err) {
				return removed, fmt.Errorf("removing %s from %s: %w", r.ID, loc, err)
			}
			removed++
		}
	}
	return removed, nil
}
