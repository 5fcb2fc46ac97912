package backup_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewtrack/billing-engine/backup"
	"github.com/crewtrack/billing-engine/domain"
	"github.com/crewtrack/billing-engine/store"
	"github.com/crewtrack/billing-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// restoreFixture: a manager whose live data has drifted since the backup was
// taken, so a successful restore is observable.
func restoreFixture(t *testing.T) (*backup.Manager, *memory.Store, backup.Backup) {
	t.Helper()
	mgr, st := newTestManager(t)
	ctx := context.Background()

	b, err := mgr.Create(ctx, "golden", "")
	require.NoError(t, err)

	drifted := liveSnapshot()
	drifted.Jobs = append(drifted.Jobs, domain.Job{ID: "job-2", JobNumber: "J-200", Name: "Site Beta", IsBillable: true})
	require.NoError(t, st.ReplaceAll(ctx, drifted))

	return mgr, st, b
}

func passGates(t *testing.T, s *backup.RestoreSession) {
	t.Helper()
	for step := 0; step < backup.AckSteps; step++ {
		require.NoError(t, s.Acknowledge(step))
	}
	require.NoError(t, s.ConfirmToken(backup.ConfirmToken))
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestRestore_FullProtocol_SwapsLiveData(t *testing.T) {
	// GIVEN: Live data that drifted after the backup
	// WHEN: All three acknowledgments, the exact token, then commit
	// THEN: The live dataset is the backup payload again

	mgr, st, b := restoreFixture(t)
	ctx := context.Background()

	s, err := mgr.BeginRestore(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, backup.StateLocated, s.State())

	passGates(t, s)
	assert.Equal(t, backup.StateArmed, s.State())

	require.NoError(t, s.Commit(ctx))
	assert.Equal(t, backup.StateCompleted, s.State())

	snap, err := st.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Jobs, 1, "drifted job gone, backup state live")
}

func TestBeginRestore_UnknownBackup(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.BeginRestore(context.Background(), "bk-ghost")
	assert.True(t, domain.IsNotFound(err))
}

// =============================================================================
// GATE ENFORCEMENT
// =============================================================================

func TestRestore_AcknowledgmentsAreStrictlySequential(t *testing.T) {
	mgr, _, b := restoreFixture(t)
	s, err := mgr.BeginRestore(context.Background(), b.ID)
	require.NoError(t, err)

	assert.Error(t, s.Acknowledge(1), "step 1 before step 0")
	assert.Error(t, s.Acknowledge(3), "out of range")
	require.NoError(t, s.Acknowledge(0))
	assert.Error(t, s.Acknowledge(0), "step 0 twice")
	require.NoError(t, s.Acknowledge(1))
	assert.Equal(t, backup.StateConfirming, s.State())
}

func TestRestore_TokenRequiresAllAcknowledgments(t *testing.T) {
	mgr, _, b := restoreFixture(t)
	s, err := mgr.BeginRestore(context.Background(), b.ID)
	require.NoError(t, err)

	require.NoError(t, s.Acknowledge(0))
	err = s.ConfirmToken(backup.ConfirmToken)
	assert.ErrorIs(t, err, domain.ErrValidation, "token before all acks")
}

func TestRestore_WrongTokenDoesNotArmButSessionSurvives(t *testing.T) {
	// GIVEN: All acknowledgments given
	// WHEN: The operator types the wrong word, then commits anyway
	// THEN: Commit refuses; the exact token on a second attempt still works

	mgr, st, b := restoreFixture(t)
	ctx := context.Background()
	s, err := mgr.BeginRestore(ctx, b.ID)
	require.NoError(t, err)

	for step := 0; step < backup.AckSteps; step++ {
		require.NoError(t, s.Acknowledge(step))
	}

	assert.Error(t, s.ConfirmToken("restore"), "case matters")
	assert.Error(t, s.Commit(ctx), "not armed")

	snap, err := st.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Jobs, 2, "live data untouched")

	require.NoError(t, s.ConfirmToken(backup.ConfirmToken))
	require.NoError(t, s.Commit(ctx))
}

func TestRestore_CommitWithoutAnyGates(t *testing.T) {
	mgr, st, b := restoreFixture(t)
	ctx := context.Background()
	s, err := mgr.BeginRestore(ctx, b.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Commit(ctx), domain.ErrValidation)

	snap, err := st.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Jobs, 2)
}

// =============================================================================
// ABORT
// =============================================================================

func TestRestore_AbortAtAnyGate_LeavesLiveDataAlone(t *testing.T) {
	mgr, st, b := restoreFixture(t)
	ctx := context.Background()

	s, err := mgr.BeginRestore(ctx, b.ID)
	require.NoError(t, err)
	require.NoError(t, s.Acknowledge(0))
	require.NoError(t, s.Acknowledge(1))

	require.NoError(t, s.Abort())
	assert.Equal(t, backup.StateAborted, s.State())

	// Every later move reports the clean-cancellation sentinel.
	assert.ErrorIs(t, s.Acknowledge(2), domain.ErrAborted)
	assert.ErrorIs(t, s.ConfirmToken(backup.ConfirmToken), domain.ErrAborted)
	assert.ErrorIs(t, s.Commit(ctx), domain.ErrAborted)

	snap, err := st.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Jobs, 2, "abort writes nothing")

	assert.Error(t, s.Abort(), "terminal sessions cannot abort again")
}

// =============================================================================
// FAILURE ATOMICITY
// =============================================================================

// faultRepo fails every write while reads pass through.
type faultRepo struct {
	store.Repository
}

func (f *faultRepo) ReplaceAll(context.Context, domain.Snapshot) error {
	return &domain.StorageError{Op: "replace_all", Err: context.DeadlineExceeded}
}

func TestRestore_FailedSwap_LeavesLiveDataAndFailsSession(t *testing.T) {
	// GIVEN: A repository whose swap always fails
	// WHEN: A fully armed session commits
	// THEN: The error surfaces, the session is failed for good, and the
	//       live store never saw a partial write

	st := memory.NewWithSnapshot(liveSnapshot())
	mgr := backup.NewManager(&faultRepo{Repository: st}, st, zerolog.Nop())
	ctx := context.Background()

	b, err := mgr.Create(ctx, "doomed", "")
	require.NoError(t, err)

	s, err := mgr.BeginRestore(ctx, b.ID)
	require.NoError(t, err)
	passGates(t, s)

	err = s.Commit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Equal(t, backup.StateFailed, s.State())

	snap, err := st.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Employees, 1, "live data unchanged")

	assert.Error(t, s.Commit(ctx), "failed sessions are single-use")
}
