package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewtrack/billing-engine/backup"
	"github.com/crewtrack/billing-engine/domain"
	"github.com/crewtrack/billing-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestGet_EmptyDatabase_ReturnsEmptySnapshot(t *testing.T) {
	st := newTestStore(t)

	snap, err := st.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, snap.TotalRecords())
	assert.NotNil(t, snap.Employees, "collections come back as empty slices, not nil")
}

func TestReplaceAll_RoundTripsEveryCollection(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	dspRate := decimal.RequireFromString("300")
	in := domain.Snapshot{
		Employees: []domain.Employee{
			{ID: "emp-1", Name: "Ana", Title: "Operator",
				BillableWage: decimal.RequireFromString("50.25"),
				CostWage:     decimal.RequireFromString("30.10"),
				Category:     domain.CategoryDSP},
		},
		Jobs: []domain.Job{
			{ID: "job-1", JobNumber: "J-100", Name: "Site Alpha", IsActive: true, IsBillable: true,
				InvoicedDates: []domain.Date{"2025-03-03", "2025-03-04"}},
		},
		TimeEntries: []domain.TimeEntry{
			{ID: "te-1", EmployeeID: "emp-1", JobID: "job-1", HourTypeID: "ht-reg",
				ProvinceID: "prov-ab", Date: "2025-03-03",
				Hours:        decimal.RequireFromString("8"),
				CostWageUsed: decimal.RequireFromString("30.10"), BillableWageUsed: decimal.RequireFromString("50.25")},
		},
		RentalItems: []domain.RentalItem{
			{ID: "item-1", Name: "Excavator", DailyRate: decimal.RequireFromString("500"), Unit: domain.UnitDay, IsActive: true},
		},
		RentalEntries: []domain.RentalEntry{
			{ID: "re-1", RentalItemID: "item-1", JobID: "job-1",
				StartDate: "2025-03-01", EndDate: "2025-03-05", Quantity: 2,
				BillingUnit: domain.UnitDay, RateUsed: decimal.RequireFromString("500"), DSPRate: &dspRate},
		},
		HourTypes: []domain.HourType{
			{ID: "ht-reg", Name: "Regular", Multiplier: decimal.RequireFromString("1")},
		},
		Provinces: []domain.Province{
			{ID: "prov-ab", Name: "Alberta", Code: "AB"},
		},
	}

	require.NoError(t, st.ReplaceAll(ctx, in))

	out, err := st.Get(ctx)
	require.NoError(t, err)

	assert.Equal(t, in.Counts(), out.Counts())
	assert.Equal(t, in.Jobs[0].InvoicedDates, out.Jobs[0].InvoicedDates)
	assert.True(t, out.Employees[0].BillableWage.Equal(decimal.RequireFromString("50.25")))
	require.NotNil(t, out.RentalEntries[0].DSPRate)
	assert.True(t, out.RentalEntries[0].DSPRate.Equal(dspRate))
}

func TestReplaceAll_OverwritesWholesale(t *testing.T) {
	// A replace is total: records absent from the new snapshot are gone.

	st := newTestStore(t)
	ctx := context.Background()

	first := domain.Snapshot{Jobs: []domain.Job{
		{ID: "job-1", Name: "Alpha", IsBillable: true},
		{ID: "job-2", Name: "Beta", IsBillable: true},
	}}
	require.NoError(t, st.ReplaceAll(ctx, first))

	second := domain.Snapshot{Jobs: []domain.Job{
		{ID: "job-3", Name: "Gamma", IsBillable: true},
	}}
	require.NoError(t, st.ReplaceAll(ctx, second))

	out, err := st.Get(ctx)
	require.NoError(t, err)
	require.Len(t, out.Jobs, 1)
	assert.Equal(t, domain.JobID("job-3"), out.Jobs[0].ID)
}

func TestBackupList_RoundTrips(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	list, err := st.ListBackups(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	saved := []backup.Backup{
		{ID: "bk-1", Name: "first", Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			DataSize: 2, RecordCounts: domain.RecordCounts{Jobs: 1},
			Data: domain.Snapshot{Jobs: []domain.Job{{ID: "job-1", IsBillable: true}}}},
		{ID: "bk-2", Name: "second", Timestamp: time.Date(2025, 6, 1, 12, 1, 0, 0, time.UTC)},
	}
	require.NoError(t, st.SaveBackups(ctx, saved))

	got, err := st.ListBackups(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "bk-1", got[0].ID)
	assert.Len(t, got[0].Data.Jobs, 1, "payload survives")
	assert.True(t, got[1].Timestamp.Equal(saved[1].Timestamp))
}

func TestErrors_CarryStorageSentinel(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Close())

	_, err := st.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)

	var sErr *domain.StorageError
	assert.ErrorAs(t, err, &sErr)
}
