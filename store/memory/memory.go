// Package memory provides in-memory store implementations (for testing/dev).
package memory

import (
	"context"
	"sync"

	"github.com/crewtrack/billing-engine/backup"
	"github.com/crewtrack/billing-engine/domain"
)

// =============================================================================
// MEMORY STORE - implements store.Repository and backup.ListStore
// =============================================================================

type Store struct {
	mu      sync.RWMutex
	live    domain.Snapshot
	backups []backup.Backup
}

func New() *Store {
	return &Store{live: domain.Empty()}
}

// NewWithSnapshot seeds the store with live data.
func NewWithSnapshot(snap domain.Snapshot) *Store {
	return &Store{live: snap.Clone()}
}

// Get returns a deep copy so a caller can never observe a snapshot
// mid-replacement.
func (s *Store) Get(_ context.Context) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live.Clone(), nil
}

// ReplaceAll stages the incoming snapshot as a full copy before taking the
// write lock, so readers see either the fully-old or fully-new dataset.
func (s *Store) ReplaceAll(_ context.Context, snap domain.Snapshot) error {
	staged := snap.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = staged
	return nil
}

func (s *Store) ListBackups(_ context.Context) ([]backup.Backup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]backup.Backup, len(s.backups))
	copy(out, s.backups)
	return out, nil
}

func (s *Store) SaveBackups(_ context.Context, list []backup.Backup) error {
	staged := make([]backup.Backup, len(list))
	copy(staged, list)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.backups = staged
	return nil
}
