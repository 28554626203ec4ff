package database

// migrationsSQL contains all database migrations.
// Migrations are applied in order by version number.
var migrationsSQL = map[int]string{
	1: migrationV1Events,
	2: migrationV2ExternalIndex,
}

// migrationV1Events creates the events table.
//
// Dates are stored as YYYY-MM-DD text so that range queries over a month
// are plain string comparisons. Timestamps are RFC 3339 text written by
// the application.
const migrationV1Events = `
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL CHECK (length(title) BETWEEN 1 AND 100),
    description TEXT CHECK (description IS NULL OR length(description) <= 1000),
    date TEXT NOT NULL,
    start_time TEXT,
    duration_minutes INTEGER CHECK (duration_minutes IS NULL OR duration_minutes >= 0),
    external_id TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_date ON events(date);
`

// migrationV2ExternalIndex makes external IDs unique so that imports can
// upsert by them. NULLs are distinct, so manual events are unaffected.
const migrationV2ExternalIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_events_external_id ON events(external_id);
`
