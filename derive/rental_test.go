package derive_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewtrack/billing-engine/derive"
	"github.com/crewtrack/billing-engine/domain"
)

// =============================================================================
// DURATION TESTS
// =============================================================================

func TestDuration_DayUnit_InclusiveBothEnds(t *testing.T) {
	cases := []struct {
		name       string
		start, end domain.Date
		want       int64
	}{
		{"same day is one day", "2024-01-01", "2024-01-01", 1},
		{"jan 1 to jan 5 is five days", "2024-01-01", "2024-01-05", 5},
		{"consecutive days are two", "2024-01-01", "2024-01-02", 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := derive.Duration(tc.start, tc.end, domain.UnitDay)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDuration_OtherUnits(t *testing.T) {
	cases := []struct {
		name       string
		start, end domain.Date
		unit       domain.BillingUnit
		want       int64
	}{
		{"exactly one week", "2024-01-01", "2024-01-08", domain.UnitWeek, 1},
		{"eight days round up to two weeks", "2024-01-01", "2024-01-09", domain.UnitWeek, 2},
		{"thirty days is one month", "2024-01-01", "2024-01-31", domain.UnitMonth, 1},
		{"thirty-one days round up to two months", "2024-01-01", "2024-02-01", domain.UnitMonth, 2},
		{"one calendar day is 24 hours", "2024-01-01", "2024-01-02", domain.UnitHour, 24},
		{"same day is zero hours", "2024-01-01", "2024-01-01", domain.UnitHour, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := derive.Duration(tc.start, tc.end, tc.unit)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDuration_Errors(t *testing.T) {
	_, err := derive.Duration("2024-01-05", "2024-01-01", domain.UnitDay)
	assert.Error(t, err, "end before start")

	_, err = derive.Duration("not-a-date", "2024-01-01", domain.UnitDay)
	assert.Error(t, err, "garbage start date")

	_, err = derive.Duration("2024-01-01", "2024-01-02", "fortnight")
	assert.Error(t, err, "unknown unit")
}

// =============================================================================
// RENTAL ENRICHMENT TESTS
// =============================================================================

func rentalSnapshot() *domain.Snapshot {
	snap := testSnapshot()
	snap.RentalItems = []domain.RentalItem{
		{ID: "item-exc", Name: "Excavator", Category: "Heavy", DailyRate: dec("500"), Unit: domain.UnitDay, IsActive: true},
	}
	return snap
}

func rental(id string, qty int64, start, end domain.Date) domain.RentalEntry {
	return domain.RentalEntry{
		ID:           domain.RentalEntryID(id),
		RentalItemID: "item-exc",
		JobID:        "job-1",
		StartDate:    start,
		EndDate:      end,
		Quantity:     qty,
		BillingUnit:  domain.UnitDay,
		RateUsed:     dec("500"),
	}
}

func TestEnrichRental_PricesDurationTimesQuantity(t *testing.T) {
	// GIVEN: Two excavators at $500/day from Jan 1 to Jan 5 (5 billable days)
	// WHEN: The rental is enriched
	// THEN: Total bills 5 x 2 x $500 = $5000; no DSP rate means cost-free
	//       profit equal to the total

	snap := rentalSnapshot()
	got, err := derive.EnrichRental(rental("re-1", 2, "2024-01-01", "2024-01-05"), domain.NewTables(snap))

	require.NoError(t, err)
	assert.EqualValues(t, 5, got.Duration)
	assert.True(t, got.TotalCost.Equal(dec("5000")), "totalCost: %s", got.TotalCost)
	assert.True(t, got.DSPCost.IsZero())
	assert.True(t, got.Profit.Equal(dec("5000")))
	assert.True(t, got.GST.IsZero(), "no operator, no GST")
}

func TestEnrichRental_DSPOperator_CostAndGST(t *testing.T) {
	// GIVEN: A dsp operator attached and a $300/day payout rate recorded
	// WHEN: The rental is enriched
	// THEN: The cost side prices at the DSP rate and the billable side owes
	//       5% GST

	snap := rentalSnapshot()
	re := rental("re-1", 1, "2024-01-01", "2024-01-05")
	re.EmployeeID = "emp-dsp"
	dspRate := dec("300")
	re.DSPRate = &dspRate

	got, err := derive.EnrichRental(re, domain.NewTables(snap))

	require.NoError(t, err)
	assert.True(t, got.TotalCost.Equal(dec("2500")), "totalCost: %s", got.TotalCost)
	assert.True(t, got.DSPCost.Equal(dec("1500")), "dspCost: %s", got.DSPCost)
	assert.True(t, got.GSTLiable)
	assert.True(t, got.GST.Equal(dec("125")), "gst: %s", got.GST)
	assert.True(t, got.Profit.Equal(dec("1000")), "profit: %s", got.Profit)
}

func TestEnrichRental_NonBillableJob_CostOnly(t *testing.T) {
	snap := rentalSnapshot()
	re := rental("re-1", 1, "2024-01-01", "2024-01-05")
	re.JobID = "job-internal"
	dspRate := dec("300")
	re.DSPRate = &dspRate

	got, err := derive.EnrichRental(re, domain.NewTables(snap))

	require.NoError(t, err)
	assert.False(t, got.Billable)
	assert.True(t, got.TotalCost.IsZero())
	assert.True(t, got.GST.IsZero())
	assert.True(t, got.DSPCost.Equal(dec("1500")), "cost side survives")
	assert.True(t, got.Profit.Equal(dec("-1500")))
}

func TestEnrichRental_RejectsUnpriceable(t *testing.T) {
	snap := rentalSnapshot()
	tables := domain.NewTables(snap)

	_, err := derive.EnrichRental(rental("re-1", 0, "2024-01-01", "2024-01-05"), tables)
	assert.Error(t, err, "zero quantity")

	_, err = derive.EnrichRental(rental("re-2", 1, "2024-01-05", "2024-01-01"), tables)
	assert.Error(t, err, "end before start")
}

func TestEnrichRental_UnresolvedRefsFlagged(t *testing.T) {
	snap := rentalSnapshot()
	re := rental("re-1", 1, "2024-01-01", "2024-01-01")
	re.RentalItemID = "item-ghost"
	re.EmployeeID = "emp-ghost"

	got, err := derive.EnrichRental(re, domain.NewTables(snap))

	require.NoError(t, err)
	assert.Nil(t, got.Item)
	assert.ElementsMatch(t, []string{"rentalItem", "employee"}, got.Missing)
	assert.True(t, got.TotalCost.Equal(dec("500")), "pricing uses the rate snapshot on the entry")
}

// =============================================================================
// RATE SNAPSHOT REGRESSION
// =============================================================================

func TestEnrichRental_RateSnapshot_IgnoresCurrentItemRate(t *testing.T) {
	// GIVEN: The item's daily rate has been raised to $900 since booking
	// WHEN: An entry recorded at $500 is enriched
	// THEN: The $500 snapshot on the entry prices the rental

	snap := rentalSnapshot()
	snap.RentalItems[0].DailyRate = decimal.RequireFromString("900")

	got, err := derive.EnrichRental(rental("re-1", 1, "2024-01-01", "2024-01-01"), domain.NewTables(snap))

	require.NoError(t, err)
	assert.True(t, got.TotalCost.Equal(dec("500")), "totalCost: %s", got.TotalCost)
}
