/*
Package store defines the persistence boundary of the billing engine.

PURPOSE:
  The engine computes from an in-memory snapshot of the full dataset; the
  only persistence it needs is "read the whole snapshot" and "replace the
  whole snapshot". Repository is that boundary. Derivation and aggregation
  depend on nothing else, so any backend can sit behind it: the in-memory
  store for tests, SQLite in production.

ATOMICITY CONTRACT:
  ReplaceAll is all-or-nothing. If it returns an error the previous
  snapshot is still fully in place, and a concurrent Get returns either
  the fully-old or fully-new snapshot - never a mix. Implementations stage
  the incoming snapshot completely before committing it.

IMPLEMENTATIONS:
  - store/memory: in-memory, for tests and development
  - store/sqlite: keyed SQLite store, for production

SEE ALSO:
  - backup: the only caller of ReplaceAll (restore and reset)
*/
package store

import (
	"context"

	"github.com/crewtrack/billing-engine/domain"
)

// Repository holds the live dataset.
type Repository interface {
	// Get returns the full live snapshot. Callers own the returned value;
	// mutating it never affects the stored data.
	Get(ctx context.Context) (domain.Snapshot, error)

	// ReplaceAll atomically swaps the live dataset for the given snapshot.
	// On error the previous snapshot is untouched. Write rejections are
	// reported as a domain.StorageError - recoverable, surfaced to the
	// user, never fatal.
	ReplaceAll(ctx context.Context, snap domain.Snapshot) error
}
