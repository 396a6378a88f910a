// Package store persists the journal document locally.
//
// The store is a small key/value layer over embedded SQLite (WAL mode for
// concurrent access across tpal processes). It holds exactly two things:
//
//   - the journal document, serialized as one JSON value
//   - the last-synced timestamp, recorded by the sync engine
//
// The stored document NEVER contains the sync timestamp. The timestamp
// lives under its own key, so the document read back from disk is always
// byte-comparable to what the CLI wrote, and the envelope marker used on
// the wire never leaks into local storage.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/tpal-app/tpal/internal/journal"
)

const (
	keyJournal      = "journal"
	keyLastSyncedAt = "last_synced_at"
)

// Store is the local journal database. Safe for concurrent use.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the journal database at path.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	st, err := store.Open(filepath.Join(home, ".tpal", "journal.db"))
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	st := &Store{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	if err := st.initSchema(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func (st *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`
	if _, err := st.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (st *Store) Path() string {
	return st.path
}

// Close closes the database, checkpointing the WAL first so all changes
// land in the main database file.
func (st *Store) Close() error {
	if st.conn == nil {
		return nil
	}
	_, _ = st.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	if err := st.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	st.conn = nil
	return nil
}

// LoadState reads the journal document. A fresh database yields
// journal.DefaultState().
func (st *Store) LoadState() (*journal.State, error) {
	raw, err := st.get(keyJournal)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return journal.DefaultState(), nil
	}

	var state journal.State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("failed to decode journal document: %w", err)
	}
	state.Normalize()
	return &state, nil
}

// SaveState writes the journal document.
func (st *Store) SaveState(state *journal.State) error {
	state.Normalize()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode journal document: %w", err)
	}
	return st.put(keyJournal, string(data))
}

// LastSyncedAt returns the timestamp recorded at the last successful push
// or remote apply. The zero time means the journal has never synced.
func (st *Store) LastSyncedAt() (time.Time, error) {
	raw, err := st.get(keyLastSyncedAt)
	if err != nil {
		return time.Time{}, err
	}
	if raw == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse last-synced timestamp: %w", err)
	}
	return ts, nil
}

// SetLastSyncedAt records the last sync timestamp.
func (st *Store) SetLastSyncedAt(ts time.Time) error {
	return st.put(keyLastSyncedAt, ts.UTC().Format(time.RFC3339Nano))
}

// Replace overwrites the journal document and the last-synced timestamp in
// a single transaction. Used when a remote state wins reconciliation, so a
// crash can't leave the document and its timestamp disagreeing.
func (st *Store) Replace(state *journal.State, syncedAt time.Time) error {
	state.Normalize()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode journal document: %w", err)
	}

	tx, err := st.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	upsert := `
	INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := tx.Exec(upsert, keyJournal, string(data), now); err != nil {
		return fmt.Errorf("failed to replace journal document: %w", err)
	}
	if _, err := tx.Exec(upsert, keyLastSyncedAt, syncedAt.UTC().Format(time.RFC3339Nano), now); err != nil {
		return fmt.Errorf("failed to record sync timestamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replace: %w", err)
	}
	return nil
}

func (st *Store) get(key string) (string, error) {
	var value string
	err := st.conn.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (st *Store) put(key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := st.conn.Exec(`
	INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
