/*
Package aggregate groups enriched entries along reporting dimensions.

PURPOSE:
  Turns the flat list of enriched time entries into per-group totals plus
  grand totals. Reports, exports, and the reconciliation cross-check all
  consume these summaries.

DIMENSIONS:
  employee            one group per employee id
  title_job           title x job number
  date_employee       work date x employee name
  category_province   worker category x province name
  month               calendar month (YYYY-MM) of the entry date
  invoice_status      invoiced vs uninvoiced

BILLABLE SPLIT:
  Cost accumulates for every entry, but only billable-job entries contribute
  revenue, GST, and profit. Non-billable cost is additionally broken out per
  group so reports can show the cost-only bucket.

ORDERING:
  Group iteration order is not stable - callers that need determinism sort
  explicitly. SortCategoryProvince (category then province, lexicographic)
  is the reproducible ordering the tax report uses; SortByCostDesc and
  SortByKey cover the rest.

SEE ALSO:
  - reconcile.go: verifies every grouping sums back to the grand totals
*/
package aggregate

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/crewtrack/billing-engine/derive"
)

// =============================================================================
// DIMENSIONS
// =============================================================================

type Dimension string

const (
	DimEmployee         Dimension = "employee"
	DimTitleJob         Dimension = "title_job"
	DimDateEmployee     Dimension = "date_employee"
	DimCategoryProvince Dimension = "category_province"
	DimMonth            Dimension = "month"
	DimInvoiceStatus    Dimension = "invoice_status"
)

// AllDimensions lists every supported grouping, in report order.
func AllDimensions() []Dimension {
	return []Dimension{
		DimEmployee, DimTitleJob, DimDateEmployee,
		DimCategoryProvince, DimMonth, DimInvoiceStatus,
	}
}

// keyParts extracts the grouping key components for one entry. Unresolved
// references yield empty parts; mapping those to a display fallback is the
// presentation layer's concern.
func keyParts(dim Dimension, e *derive.EnrichedTimeEntry) []string {
	switch dim {
	case DimEmployee:
		return []string{string(e.Entry.EmployeeID)}
	case DimTitleJob:
		jobNumber := ""
		if e.Job != nil {
			jobNumber = e.Job.JobNumber
		}
		return []string{e.Title, jobNumber}
	case DimDateEmployee:
		name := ""
		if e.Employee != nil {
			name = e.Employee.Name
		}
		return []string{string(e.Entry.Date), name}
	case DimCategoryProvince:
		category := ""
		if e.Employee != nil {
			category = string(e.Employee.Category)
		}
		province := ""
		if e.Province != nil {
			province = e.Province.Name
		}
		return []string{category, province}
	case DimMonth:
		return []string{e.Entry.Date.Month()}
	case DimInvoiceStatus:
		if e.Invoiced {
			return []string{"invoiced"}
		}
		return []string{"uninvoiced"}
	default:
		return []string{""}
	}
}

// =============================================================================
// GROUPS AND TOTALS
// =============================================================================

// HourTypeTotals is the per-hour-type breakdown nested inside each group.
type HourTypeTotals struct {
	Hours          decimal.Decimal
	EffectiveHours decimal.Decimal
	Cost           decimal.Decimal
}

// Group is the accumulated summary for one key within one dimension.
type Group struct {
	Dimension Dimension
	Key       string   // parts joined with "|"
	Parts     []string // raw key components, in dimension order

	Hours          decimal.Decimal
	EffectiveHours decimal.Decimal
	LaborCost      decimal.Decimal // cost of every entry, billable or not
	BillableAmount decimal.Decimal
	LOAAmount      decimal.Decimal
	GST            decimal.Decimal
	Profit         decimal.Decimal

	// NonBillableCost is the cost-only bucket: labor cost from entries on
	// non-billable jobs, which contribute nothing above.
	NonBillableCost decimal.Decimal

	EntryCount int

	// ByHourType keys on hour type name. Keys are unique within the group;
	// insertion order is irrelevant.
	ByHourType map[string]*HourTypeTotals
}

// Totals are the grand totals over a flat entry list - the reference values
// every grouping must reconcile against.
type Totals struct {
	Hours           decimal.Decimal
	EffectiveHours  decimal.Decimal
	LaborCost       decimal.Decimal
	BillableAmount  decimal.Decimal
	LOAAmount       decimal.Decimal
	GST             decimal.Decimal
	Profit          decimal.Decimal
	NonBillableCost decimal.Decimal
	EntryCount      int
}

// Revenue is billable hourly amount plus LOA stipends.
func (t Totals) Revenue() decimal.Decimal { return t.BillableAmount.Add(t.LOAAmount) }

func (g *Group) add(e *derive.EnrichedTimeEntry) {
	g.Hours = g.Hours.Add(e.Entry.Hours)
	g.EffectiveHours = g.EffectiveHours.Add(e.EffectiveHours)
	g.LaborCost = g.LaborCost.Add(e.LaborCost)
	g.BillableAmount = g.BillableAmount.Add(e.BillableAmount)
	g.LOAAmount = g.LOAAmount.Add(e.LOAAmount)
	g.GST = g.GST.Add(e.GST)
	g.Profit = g.Profit.Add(e.Profit)
	if !e.Billable {
		g.NonBillableCost = g.NonBillableCost.Add(e.LaborCost)
	}
	g.EntryCount++

	name := ""
	if e.HourType != nil {
		name = e.HourType.Name
	}
	ht := g.ByHourType[name]
	if ht == nil {
		ht = &HourTypeTotals{}
		g.ByHourType[name] = ht
	}
	ht.Hours = ht.Hours.Add(e.Entry.Hours)
	ht.EffectiveHours = ht.EffectiveHours.Add(e.EffectiveHours)
	ht.Cost = ht.Cost.Add(e.LaborCost)
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Aggregate groups entries along each requested dimension independently and
// returns the groups per dimension. Pure and re-entrant.
func Aggregate(entries []derive.EnrichedTimeEntry, dims []Dimension) map[Dimension][]Group {
	out := make(map[Dimension][]Group, len(dims))
	for _, dim := range dims {
		byKey := make(map[string]*Group)
		var order []string
		for i := range entries {
			e := &entries[i]
			parts := keyParts(dim, e)
			key := strings.Join(parts, "|")
			g := byKey[key]
			if g == nil {
				g = &Group{
					Dimension:  dim,
					Key:        key,
					Parts:      parts,
					ByHourType: make(map[string]*HourTypeTotals),
				}
				byKey[key] = g
				order = append(order, key)
			}
			g.add(e)
		}
		groups := make([]Group, 0, len(order))
		for _, key := range order {
			groups = append(groups, *byKey[key])
		}
		out[dim] = groups
	}
	return out
}

// ComputeTotals sums the flat entry list.
func ComputeTotals(entries []derive.EnrichedTimeEntry) Totals {
	var t Totals
	for i := range entries {
		e := &entries[i]
		t.Hours = t.Hours.Add(e.Entry.Hours)
		t.EffectiveHours = t.EffectiveHours.Add(e.EffectiveHours)
		t.LaborCost = t.LaborCost.Add(e.LaborCost)
		t.BillableAmount = t.BillableAmount.Add(e.BillableAmount)
		t.LOAAmount = t.LOAAmount.Add(e.LOAAmount)
		t.GST = t.GST.Add(e.GST)
		t.Profit = t.Profit.Add(e.Profit)
		if !e.Billable {
			t.NonBillableCost = t.NonBillableCost.Add(e.LaborCost)
		}
		t.EntryCount++
	}
	return t
}

// =============================================================================
// RENTAL TOTALS
// =============================================================================

// RentalTotals summarizes the rental side for reports. Rentals are not part
// of the labor groupings; they roll up separately.
type RentalTotals struct {
	Revenue decimal.Decimal
	DSPCost decimal.Decimal
	GST     decimal.Decimal
	Profit  decimal.Decimal
	Count   int
}

func ComputeRentalTotals(rentals []derive.EnrichedRental) RentalTotals {
	var t RentalTotals
	for i := range rentals {
		r := &rentals[i]
		t.Revenue = t.Revenue.Add(r.TotalCost)
		t.DSPCost = t.DSPCost.Add(r.DSPCost)
		t.GST = t.GST.Add(r.GST)
		t.Profit = t.Profit.Add(r.Profit)
		t.Count++
	}
	return t
}

// =============================================================================
// DETERMINISTIC ORDERINGS
// =============================================================================

// SortCategoryProvince orders category x province groups by category first,
// then province, both lexicographic. This is the reproducible ordering the
// tax breakdown report requires.
func SortCategoryProvince(groups []Group) {
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i].Parts, groups[j].Parts
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return a[1] < b[1]
	})
}

// SortByCostDesc orders groups by total labor cost, highest first. Ties
// break on key so the ordering stays reproducible.
func SortByCostDesc(groups []Group) {
	sort.Slice(groups, func(i, j int) bool {
		cmp := groups[i].LaborCost.Cmp(groups[j].LaborCost)
		if cmp != 0 {
			return cmp > 0
		}
		return groups[i].Key < groups[j].Key
	})
}

// SortByKey orders groups lexicographically by key (e.g. months in calendar
// order).
func SortByKey(groups []Group) {
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
}
