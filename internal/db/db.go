package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/murmur/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// RecordingsDir is where finished recordings land unless a path is given.
const RecordingsDir = "recordings"

// Init initializes the SQLite database at baseDir/murmur.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.murmur.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Best-effort, may not work on all platforms
	_ = os.Chmod(baseDir, 0700)

	recDir := filepath.Join(baseDir, RecordingsDir)
	if err := os.MkdirAll(recDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create recordings directory: %w", err)
	}
	_ = os.Chmod(recDir, 0700)

	// Pragmas in the DSN apply to every pooled connection
	dbPath := filepath.Join(baseDir, "murmur.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS meetings (
		  id               TEXT PRIMARY KEY,
		  title            TEXT NOT NULL,
		  meeting_date     TEXT,
		  duration_minutes REAL NOT NULL DEFAULT 0,
		  status           TEXT NOT NULL,
		  audio_url        TEXT,
		  created_at       INTEGER NOT NULL,
		  updated_at       INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_meetings_created
		ON meetings(created_at DESC);

		CREATE TABLE IF NOT EXISTS speakers (
		  meeting_id TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
		  id         TEXT NOT NULL,
		  position   INTEGER NOT NULL,
		  name       TEXT NOT NULL,
		  color      TEXT,
		  PRIMARY KEY (meeting_id, id)
		);

		CREATE TABLE IF NOT EXISTS segments (
		  meeting_id TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
		  position   INTEGER NOT NULL,
		  id         TEXT NOT NULL,
		  speaker_id TEXT NOT NULL,
		  text       TEXT NOT NULL,
		  start_time REAL NOT NULL,
		  end_time   REAL NOT NULL,
		  PRIMARY KEY (meeting_id, position)
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_segments_meeting_id
		ON segments(meeting_id, id);

		CREATE TABLE IF NOT EXISTS vectors (
		  id                TEXT PRIMARY KEY,
		  meeting_id        TEXT NOT NULL,
		  segment_index     INTEGER NOT NULL,
		  speaker           TEXT NOT NULL,
		  text              TEXT NOT NULL,
		  timestamp_seconds REAL NOT NULL,
		  dims              INTEGER NOT NULL,
		  embedding         BLOB NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_vectors_meeting
		ON vectors(meeting_id, segment_index);

		CREATE TABLE IF NOT EXISTS chat_messages (
		  id         TEXT PRIMARY KEY,
		  meeting_id TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
		  sender     TEXT NOT NULL CHECK (sender IN ('user', 'ai')),
		  text       TEXT NOT NULL,
		  created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_chat_meeting_created
		ON chat_messages(meeting_id, created_at, id);

		CREATE TABLE IF NOT EXISTS summaries (
		  meeting_id   TEXT PRIMARY KEY REFERENCES meetings(id) ON DELETE CASCADE,
		  summary_json TEXT NOT NULL,
		  action_json  TEXT NOT NULL,
		  created_at   INTEGER NOT NULL,
		  updated_at   INTEGER NOT NULL
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
