/*
restore.go - The guarded destructive restore session

PURPOSE:
  Restoring a backup is the single destructive operation in the system, so
  it runs behind a sequential, non-skippable confirmation gate held in an
  explicit state machine, independent of any rendering:

    BeginRestore(id)      locate full payload by id (fail if evicted)
    Acknowledge(0..2)     three checkboxes, each unlocked by the previous
    ConfirmToken(token)   the operator types the literal "RESTORE"
    Commit()              stage the snapshot fully, then atomically swap

  Any single unmet condition keeps the commit locked. Aborting at any point
  is a normal exit with zero side effects - nothing has been written until
  Commit, and a failed Commit leaves the live dataset exactly as it was
  (ReplaceAll is stage-then-swap, never mutate-in-place).
*/
package backup

import (
	"context"
	"fmt"
	"sync"

	"github.com/crewtrack/billing-engine/domain"
)

// AckSteps is the number of checkbox acknowledgments before the typed token.
const AckSteps = 3

// ConfirmToken is the literal the operator must type, case-sensitive.
const ConfirmToken = "RESTORE"

// =============================================================================
// STATES
// =============================================================================

type RestoreState string

const (
	// StateLocated: the backup payload was found; no gates passed yet.
	StateLocated RestoreState = "located"
	// StateConfirming: some acknowledgments given, gate not complete.
	StateConfirming RestoreState = "confirming"
	// StateArmed: all acknowledgments plus the typed token; Commit unlocked.
	StateArmed RestoreState = "armed"
	// StateRestoring: swap in progress.
	StateRestoring RestoreState = "restoring"

	StateCompleted RestoreState = "completed"
	StateFailed    RestoreState = "failed"
	StateAborted   RestoreState = "aborted"
)

func (s RestoreState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateAborted
}

// =============================================================================
// RESTORE SESSION
// =============================================================================

// RestoreSession walks one restore through its confirmation gates. Sessions
// are single-use: once terminal, every method refuses.
type RestoreSession struct {
	mu      sync.Mutex
	manager *Manager
	backup  Backup
	state   RestoreState
	acks    int
	armed   bool
}

// BeginRestore locates the backup's full payload in the retained list and
// opens a session. A stale or evicted id fails with a not-found error.
func (m *Manager) BeginRestore(ctx context.Context, backupID string) (*RestoreSession, error) {
	b, err := m.Get(ctx, backupID)
	if err != nil {
		return nil, err
	}
	m.log.Info().Str("backup_id", b.ID).Msg("restore session opened")
	return &RestoreSession{manager: m, backup: b, state: StateLocated}, nil
}

func (s *RestoreSession) State() RestoreState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *RestoreSession) BackupID() string { return s.backup.ID }

// Acknowledge confirms gate `step` (0-based). Steps are strictly sequential:
// step n is accepted only when steps 0..n-1 are already acknowledged.
func (s *RestoreSession) Acknowledge(step int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.liveLocked(); err != nil {
		return err
	}
	if step < 0 || step >= AckSteps {
		return &domain.ValidationError{Field: "step", Reason: fmt.Sprintf("step %d out of range [0,%d)", step, AckSteps)}
	}
	if step != s.acks {
		return &domain.ValidationError{Field: "step", Reason: fmt.Sprintf("step %d requires step %d first", step, s.acks)}
	}
	s.acks++
	s.state = StateConfirming
	return nil
}

// ConfirmToken arms the session when every acknowledgment is given and the
// typed token matches exactly. A wrong token is reported and does not arm;
// the session stays open for another attempt.
func (s *RestoreSession) ConfirmToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.liveLocked(); err != nil {
		return err
	}
	if s.acks < AckSteps {
		return &domain.ValidationError{Field: "token", Reason: fmt.Sprintf("%d of %d acknowledgments given", s.acks, AckSteps)}
	}
	if token != ConfirmToken {
		return &domain.ValidationError{Field: "token", Reason: "confirmation token does not match"}
	}
	s.armed = true
	s.state = StateArmed
	return nil
}

// Commit performs the atomic swap-in. Only an armed session may commit. The
// snapshot is staged as a full copy before the repository swap, so a failure
// leaves the live dataset in its pre-restore state and the session failed.
func (s *RestoreSession) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.liveLocked(); err != nil {
		return err
	}
	if !s.armed {
		return &domain.ValidationError{Field: "commit", Reason: "confirmation gate not complete"}
	}

	s.state = StateRestoring
	staged := s.backup.Data.Clone()
	if err := s.manager.repo.ReplaceAll(ctx, staged); err != nil {
		s.state = StateFailed
		s.manager.log.Error().
			Str("backup_id", s.backup.ID).
			Err(err).
			Msg("restore failed; live dataset unchanged")
		return err
	}

	s.state = StateCompleted
	s.manager.log.Warn().
		Str("backup_id", s.backup.ID).
		Str("name", s.backup.Name).
		Msg("restore committed")
	return nil
}

// Abort cancels the session at any gate. Normal exit path: nothing has been
// written, so there is nothing to undo.
func (s *RestoreSession) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return &domain.ValidationError{Field: "session", Reason: fmt.Sprintf("session already %s", s.state)}
	}
	s.state = StateAborted
	s.manager.log.Info().Str("backup_id", s.backup.ID).Msg("restore aborted by operator")
	return nil
}

// liveLocked guards every transition against terminal sessions. An aborted
// session reports the cancellation sentinel so callers can treat it as a
// clean no-op.
func (s *RestoreSession) liveLocked() error {
	switch {
	case s.state == StateAborted:
		return domain.ErrAborted
	case s.state.Terminal():
		return &domain.ValidationError{Field: "session", Reason: fmt.Sprintf("session already %s", s.state)}
	default:
		return nil
	}
}
