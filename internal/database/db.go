package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps sql.DB with trace history methods
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("database open failed: %w", err)
	}

	// Enable WAL mode for better concurrent access
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA synchronous=NORMAL")
	db.Exec("PRAGMA foreign_keys=ON")

	return &DB{db}, nil
}

// InitSchema creates all necessary tables
func (db *DB) InitSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS traces (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        target TEXT NOT NULL,
        started_at DATETIME NOT NULL,
        finished_at DATETIME NOT NULL,
        status TEXT NOT NULL,
        message TEXT,
        hop_count INTEGER NOT NULL,
        avg_latency_ms REAL,
        path_distance_km REAL
    );

    CREATE INDEX IF NOT EXISTS idx_traces_started ON traces(started_at);
    CREATE INDEX IF NOT EXISTS idx_traces_target ON traces(target, started_at);

    CREATE TABLE IF NOT EXISTS hops (
        trace_id INTEGER NOT NULL REFERENCES traces(id) ON DELETE CASCADE,
        seq INTEGER NOT NULL, -- arrival order within the run
        hop_number INTEGER NOT NULL,
        ip TEXT NOT NULL,
        hostname TEXT,
        rtt_ms TEXT, -- JSON array of samples
        latitude REAL,
        longitude REAL,
        city TEXT,
        country TEXT,
        organization TEXT,
        asn INTEGER,
        reputation_score REAL,
        error TEXT,
        PRIMARY KEY (trace_id, seq)
    );
    `

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}

	return nil
}
