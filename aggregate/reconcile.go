package aggregate

import (
	"github.com/shopspring/decimal"

	"github.com/crewtrack/billing-engine/derive"
	"github.com/crewtrack/billing-engine/domain"
)

// =============================================================================
// RECONCILIATION - every partition must sum back to the grand totals
// =============================================================================

// Tolerance is the permitted absolute difference between a grouping's summed
// total and the flat total. Anything beyond it is a derivation defect to
// surface, never to correct.
var Tolerance = decimal.New(1, -6) // 1e-6

// Discrepancy records one field of one dimension that failed to reconcile.
type Discrepancy struct {
	Dimension Dimension
	Field     string
	GroupSum  decimal.Decimal
	FlatTotal decimal.Decimal
	Delta     decimal.Decimal
}

// Err converts the discrepancy to the engine's integrity error type.
func (d Discrepancy) Err() *domain.IntegrityError {
	return &domain.IntegrityError{
		Dimension: string(d.Dimension),
		Field:     d.Field,
		Expected:  d.FlatTotal,
		Actual:    d.GroupSum,
	}
}

// Result is the outcome of a reconciliation pass.
type Result struct {
	OK         bool
	Mismatches []Discrepancy
}

// FirstErr returns nil when reconciliation passed, otherwise the first
// mismatch as an IntegrityError.
func (r Result) FirstErr() error {
	if r.OK {
		return nil
	}
	return r.Mismatches[0].Err()
}

// Reconcile cross-checks every dimension in summaries against the flat sums
// over entries. Each dimension partitions the entry set, so for each of the
// reconciled fields the group sums must equal the grand total to within
// Tolerance.
func Reconcile(entries []derive.EnrichedTimeEntry, summaries map[Dimension][]Group) Result {
	flat := ComputeTotals(entries)
	result := Result{OK: true}

	for dim, groups := range summaries {
		var sum Totals
		for i := range groups {
			g := &groups[i]
			sum.Hours = sum.Hours.Add(g.Hours)
			sum.EffectiveHours = sum.EffectiveHours.Add(g.EffectiveHours)
			sum.LaborCost = sum.LaborCost.Add(g.LaborCost)
			sum.BillableAmount = sum.BillableAmount.Add(g.BillableAmount)
			sum.LOAAmount = sum.LOAAmount.Add(g.LOAAmount)
			sum.GST = sum.GST.Add(g.GST)
			sum.Profit = sum.Profit.Add(g.Profit)
			sum.NonBillableCost = sum.NonBillableCost.Add(g.NonBillableCost)
			sum.EntryCount += g.EntryCount
		}

		result.check(dim, "hours", sum.Hours, flat.Hours)
		result.check(dim, "effectiveHours", sum.EffectiveHours, flat.EffectiveHours)
		result.check(dim, "laborCost", sum.LaborCost, flat.LaborCost)
		result.check(dim, "billableAmount", sum.BillableAmount, flat.BillableAmount)
		result.check(dim, "loaAmount", sum.LOAAmount, flat.LOAAmount)
		result.check(dim, "gst", sum.GST, flat.GST)
		result.check(dim, "profit", sum.Profit, flat.Profit)
		result.check(dim, "nonBillableCost", sum.NonBillableCost, flat.NonBillableCost)
		if sum.EntryCount != flat.EntryCount {
			result.OK = false
			result.Mismatches = append(result.Mismatches, Discrepancy{
				Dimension: dim,
				Field:     "entryCount",
				GroupSum:  decimal.NewFromInt(int64(sum.EntryCount)),
				FlatTotal: decimal.NewFromInt(int64(flat.EntryCount)),
				Delta:     decimal.NewFromInt(int64(sum.EntryCount - flat.EntryCount)),
			})
		}
	}
	return result
}

func (r *Result) check(dim Dimension, field string, groupSum, flatTotal decimal.Decimal) {
	delta := groupSum.Sub(flatTotal)
	if delta.Abs().GreaterThan(Tolerance) {
		r.OK = false
		r.Mismatches = append(r.Mismatches, Discrepancy{
			Dimension: dim,
			Field:     field,
			GroupSum:  groupSum,
			FlatTotal: flatTotal,
			Delta:     delta,
		})
	}
}
