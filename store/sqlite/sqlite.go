/*
Package sqlite provides the production keyed snapshot store.

PURPOSE:
  Implements store.Repository and backup.ListStore over SQLite. The store
  is deliberately a two-key key/value table - one key for the live dataset,
  one for the retained backup list - mirroring the bounded, quota-limited
  storage the engine was designed against. Collections are JSON-serialized
  whole; there is no per-record schema because the engine only ever reads
  and replaces full snapshots.

ATOMICITY:
  ReplaceAll serializes the incoming snapshot completely before touching
  the database, then commits a single UPSERT inside a transaction. A
  serialization or write failure leaves the previous value fully in place.

ERROR MAPPING:
  Every rejected read or write surfaces as a domain.StorageError, which the
  caller treats as recoverable (quota exceeded, store unavailable) - never
  as a partial commit.

WAL MODE:
  SQLite is opened with WAL so readers don't block the single writer.

USAGE:
  st, err := sqlite.New("./data/billing.db")
  if err != nil { ... }
  defer st.Close()

SEE ALSO:
  - store/store.go: interface contracts
  - store/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crewtrack/billing-engine/backup"
	"github.com/crewtrack/billing-engine/domain"
)

const (
	keyLiveData   = "live_data"
	keyBackupList = "backup_list"
)

type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) the store at dbPath. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, &domain.StorageError{Op: "open database", Err: err}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, &domain.StorageError{Op: "migrate database", Err: err}
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REPOSITORY (store.Repository interface)
// =============================================================================

// Get returns the live snapshot, or the empty default when none has been
// written yet.
func (s *Store) Get(ctx context.Context) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, found, err := s.read(ctx, keyLiveData)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if !found {
		return domain.Empty(), nil
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.Snapshot{}, &domain.StorageError{Op: "decode live data", Err: err}
	}
	return snap, nil
}

// ReplaceAll atomically swaps the live dataset. The snapshot is serialized
// fully before any write; on error the stored value is untouched.
func (s *Store) ReplaceAll(ctx context.Context, snap domain.Snapshot) error {
	staged, err := json.Marshal(snap)
	if err != nil {
		return &domain.StorageError{Op: "encode live data", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, keyLiveData, staged)
}

// =============================================================================
// BACKUP LIST (backup.ListStore interface)
// =============================================================================

func (s *Store) ListBackups(ctx context.Context) ([]backup.Backup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, found, err := s.read(ctx, keyBackupList)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var list []backup.Backup
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &domain.StorageError{Op: "decode backup list", Err: err}
	}
	return list, nil
}

func (s *Store) SaveBackups(ctx context.Context, list []backup.Backup) error {
	staged, err := json.Marshal(list)
	if err != nil {
		return &domain.StorageError{Op: "encode backup list", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, keyBackupList, staged)
}

// =============================================================================
// KEYED READ/WRITE
// =============================================================================

func (s *Store) read(ctx context.Context, key string) (raw []byte, found bool, err error) {
	var value string
	err = s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &domain.StorageError{Op: fmt.Sprintf("read %s", key), Err: err}
	}
	return []byte(value), true, nil
}

func (s *Store) write(ctx context.Context, key string, value []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: fmt.Sprintf("write %s", key), Err: err}
	}
	defer tx.Rollback()

	query := `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, query, key, string(value), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return &domain.StorageError{Op: fmt.Sprintf("write %s", key), Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: fmt.Sprintf("commit %s", key), Err: err}
	}
	return nil
}
