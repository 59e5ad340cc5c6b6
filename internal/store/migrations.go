package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tracking (
	notification_id TEXT PRIMARY KEY,
	author_handle   TEXT NOT NULL,
	kind            TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'pending'
		CHECK(status IN ('pending', 'processed', 'errored', 'skipped')),
	first_seen_at   DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tracking_author ON tracking(author_handle);
CREATE INDEX IF NOT EXISTS idx_tracking_status ON tracking(status);
CREATE INDEX IF NOT EXISTS idx_tracking_updated_at ON tracking(updated_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
