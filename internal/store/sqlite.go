package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/gaugehq/bskyagent/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// HasSeen reports whether a tracking entry exists for the given id,
// regardless of its status.
func (s *SQLiteStore) HasSeen(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM tracking WHERE notification_id = ?", id,
	)
	if err != nil {
		return false, fmt.Errorf("checking tracking entry %s: %w", id, err)
	}
	return n > 0, nil
}

// Record inserts the tracking entry for a notification seen for the
// first time. Inserting an id that already has an entry is an error;
// callers must consult HasSeen first.
func (s *SQLiteStore) Record(ctx context.Context, e model.TrackingEntry) error {
	if e.FirstSeenAt.IsZero() {
		e.FirstSeenAt = time.Now()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.FirstSeenAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracking (notification_id, author_handle, kind, status, first_seen_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.NotificationID, e.AuthorHandle, string(e.Kind), string(e.Status),
		e.FirstSeenAt.UTC(), e.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording notification %s: %w", e.NotificationID, err)
	}

	return nil
}

// UpdateStatus transitions the tracking entry for id to the given status.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q for notification %s", status, id)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE tracking SET status = ?, updated_at = ? WHERE notification_id = ?",
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating status of %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating status of %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("updating status of %s: %w", id, ErrNotFound)
	}

	return nil
}

// GetEntry retrieves the tracking entry for a single notification id.
func (s *SQLiteStore) GetEntry(ctx context.Context, id string) (*model.TrackingEntry, error) {
	var e model.TrackingEntry
	err := s.db.GetContext(ctx, &e,
		"SELECT * FROM tracking WHERE notification_id = ?", id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting tracking entry %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting tracking entry %s: %w", id, err)
	}
	return &e, nil
}

// Query retrieves tracking entries matching the provided filter,
// ordered by first seen time, ties broken by id.
func (s *SQLiteStore) Query(ctx context.Context, f EntryFilter) ([]model.TrackingEntry, error) {
	var conditions []string
	var args []interface{}

	if f.AuthorHandle != nil {
		conditions = append(conditions, "author_handle = ?")
		args = append(args, *f.AuthorHandle)
	}
	if f.Status != nil {
		if !f.Status.Valid() {
			return nil, fmt.Errorf("invalid status filter %q", *f.Status)
		}
		conditions = append(conditions, "status = ?")
		args = append(args, string(*f.Status))
	}

	query := "SELECT * FROM tracking"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY first_seen_at, notification_id"

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", f.Offset)
	}

	var entries []model.TrackingEntry
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("querying tracking entries: %w", err)
	}

	return entries, nil
}

// DeleteByAuthor purges all tracking entries for the given author handle
// and returns how many were removed. Operator-triggered only; this is
// the one path that deletes tracking entries.
func (s *SQLiteStore) DeleteByAuthor(ctx context.Context, handle string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM tracking WHERE author_handle = ?", handle,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting tracking entries for %s: %w", handle, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting tracking entries for %s: %w", handle, err)
	}

	return int(n), nil
}

// CountByStatus returns the number of tracking entries per status.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT status, COUNT(*) AS n FROM tracking GROUP BY status",
	)
	if err != nil {
		return nil, fmt.Errorf("counting tracking entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[model.Status(status)] = n
	}

	return counts, rows.Err()
}

// AuthorCounts returns per-author interaction tallies, most active first.
func (s *SQLiteStore) AuthorCounts(ctx context.Context, limit int) ([]AuthorCount, error) {
	query := `
		SELECT author_handle, COUNT(*) AS n
		FROM tracking
		GROUP BY author_handle
		ORDER BY n DESC, author_handle`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var counts []AuthorCount
	if err := s.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("counting interactions by author: %w", err)
	}

	return counts, nil
}
