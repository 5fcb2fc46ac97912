/*
Package derive enriches raw entries one at a time into fully-derived records.

PURPOSE:
  Everything downstream (aggregation, reports, exports) consumes enriched
  records, never raw ones. Derivation is pure: given one raw entry plus the
  snapshot's lookup tables, produce every derived figure with no side
  effects, so it is safe to recompute on every data change.

THE FORMULAS (time entries):
  effectiveHours = hours x hourType.multiplier
  laborCost      = effectiveHours x (costWageUsed + nightShiftPremium)
  billableAmount = effectiveHours x (billableWageUsed + nightShiftPremium)
  loaAmount      = loaCount x $200
  gst            = billableAmount x 5%   (GST-liable workers only)
  profit         = billableAmount + loaAmount - laborCost

  Wages come from the snapshot stored ON the entry, never from the current
  employee record. A wage change must not retroactively alter history.

RESOLUTION POLICY:
  A dangling foreign key never aborts derivation. The reference stays nil,
  the ref name is recorded in Missing, and numeric derivation proceeds with
  neutral defaults (multiplier 1, premium 0). How to DISPLAY an unresolved
  reference ("Unknown" etc.) is the presentation layer's decision.

CLAMPING:
  Negative hours or wages are rejected upstream, but if one slips through,
  derivation clamps the result to zero and flags the record rather than
  propagating negative cost or NaN.

SEE ALSO:
  - rental.go: the rental-entry half of the derivation layer
  - aggregate: grouped summaries over enriched records
*/
package derive

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/crewtrack/billing-engine/domain"
)

// =============================================================================
// CONSTANTS
// =============================================================================

var (
	// GSTRate is the fixed 5% goods-and-services tax applied to billable
	// amounts earned by GST-liable workers. Single jurisdiction; not
	// configurable.
	GSTRate = decimal.RequireFromString("0.05")

	// LOAUnitRate is the fixed live-out-allowance stipend per unit, billed
	// on top of hourly amounts.
	LOAUnitRate = decimal.NewFromInt(200)
)

// =============================================================================
// ENRICHED TIME ENTRY
// =============================================================================

// EnrichedTimeEntry is one raw time entry plus every derived field. Resolved
// references are carried as pointers; nil means the foreign key did not
// resolve and the ref's name appears in Missing.
type EnrichedTimeEntry struct {
	Entry domain.TimeEntry

	Employee *domain.Employee
	Job      *domain.Job
	HourType *domain.HourType
	Province *domain.Province

	// Missing lists the refs that did not resolve ("employee", "job",
	// "hourType", "province"). Empty for a clean record.
	Missing []string

	// Clamped is set when a negative input was clamped to zero.
	Clamped bool

	// Title is the entry's override when present, else the employee's.
	Title string

	EffectiveHours decimal.Decimal
	LaborCost      decimal.Decimal
	BillableAmount decimal.Decimal
	LOAAmount      decimal.Decimal
	GST            decimal.Decimal
	Profit         decimal.Decimal

	// Billable mirrors the job's flag (true when the job is unresolved -
	// jobs default to billable). Non-billable entries carry cost only:
	// BillableAmount, LOAAmount, and GST are all zero.
	Billable bool

	// Invoiced is true iff the job's invoiced-date set contains the entry's
	// date.
	Invoiced bool

	GSTLiable bool
}

// Revenue is what the entry bills to the client: hourly amount plus LOA.
func (e *EnrichedTimeEntry) Revenue() decimal.Decimal {
	return e.BillableAmount.Add(e.LOAAmount)
}

// Resolved reports whether every foreign key on the entry resolved.
func (e *EnrichedTimeEntry) Resolved() bool { return len(e.Missing) == 0 }

// =============================================================================
// DERIVATION
// =============================================================================

// GSTLiable implements the tax eligibility rule: a worker owes GST iff their
// category is dsp, or they have a manager and no category at all. Explicit
// "employee" and explicit "contractor" categories owe none.
func GSTLiable(emp *domain.Employee) bool {
	if emp == nil {
		return false
	}
	if emp.Category == domain.CategoryDSP {
		return true
	}
	return emp.ManagerID != "" && emp.Category == domain.CategoryUnset
}

// EnrichTimeEntry derives every figure for a single time entry. It never
// fails: unresolved references and clamped inputs are flagged on the result.
func EnrichTimeEntry(entry domain.TimeEntry, tables *domain.Tables) EnrichedTimeEntry {
	out := EnrichedTimeEntry{Entry: entry, Billable: true}

	out.Employee = tables.Employees[entry.EmployeeID]
	out.Job = tables.Jobs[entry.JobID]
	out.HourType = tables.HourTypes[entry.HourTypeID]
	out.Province = tables.Provinces[entry.ProvinceID]

	if out.Employee == nil {
		out.Missing = append(out.Missing, "employee")
	}
	if out.Job == nil {
		out.Missing = append(out.Missing, "job")
	} else {
		out.Billable = out.Job.IsBillable
	}
	if out.HourType == nil {
		out.Missing = append(out.Missing, "hourType")
	}
	if out.Province == nil {
		out.Missing = append(out.Missing, "province")
	}

	out.Title = entry.Title
	if out.Title == "" && out.Employee != nil {
		out.Title = out.Employee.Title
	}

	hours := entry.Hours
	if hours.IsNegative() {
		hours = decimal.Zero
		out.Clamped = true
	}

	multiplier := decimal.NewFromInt(1)
	premium := decimal.Zero
	if out.HourType != nil {
		multiplier = out.HourType.Multiplier
		premium = out.HourType.NightShiftPremium
	}
	if multiplier.IsNegative() {
		multiplier = decimal.Zero
		out.Clamped = true
	}

	out.EffectiveHours = hours.Mul(multiplier)
	out.LaborCost = clampNonNegative(out.EffectiveHours.Mul(entry.CostWageUsed.Add(premium)), &out.Clamped)

	if out.Billable {
		out.BillableAmount = clampNonNegative(out.EffectiveHours.Mul(entry.BillableWageUsed.Add(premium)), &out.Clamped)

		loa := entry.LOACount
		if loa.IsNegative() {
			loa = decimal.Zero
			out.Clamped = true
		}
		out.LOAAmount = loa.Mul(LOAUnitRate)

		out.GSTLiable = GSTLiable(out.Employee)
		if out.GSTLiable {
			out.GST = out.BillableAmount.Mul(GSTRate)
		} else {
			out.GST = decimal.Zero
		}
	} else {
		out.BillableAmount = decimal.Zero
		out.LOAAmount = decimal.Zero
		out.GST = decimal.Zero
	}

	out.Profit = out.BillableAmount.Add(out.LOAAmount).Sub(out.LaborCost)
	out.Invoiced = tables.IsInvoiced(entry.JobID, entry.Date)

	return out
}

func clampNonNegative(d decimal.Decimal, clamped *bool) decimal.Decimal {
	if d.IsNegative() {
		*clamped = true
		return decimal.Zero
	}
	return d
}

// =============================================================================
// BATCH ENRICHMENT
// =============================================================================

// SkippedRecord identifies one entry the derivation layer refused, and why.
// Skipped entries never abort the rest of the batch.
type SkippedRecord struct {
	ID     string
	Reason string
}

// Dataset is the fully-enriched view of one snapshot.
type Dataset struct {
	Entries []EnrichedTimeEntry
	Rentals []EnrichedRental
	Skipped []SkippedRecord
}

// Enrich derives the whole snapshot. Malformed entries are skipped and
// collected; everything else is enriched.
func Enrich(snap *domain.Snapshot) *Dataset {
	tables := domain.NewTables(snap)
	ds := &Dataset{
		Entries: make([]EnrichedTimeEntry, 0, len(snap.TimeEntries)),
		Rentals: make([]EnrichedRental, 0, len(snap.RentalEntries)),
	}

	for _, entry := range snap.TimeEntries {
		if !entry.Date.IsValid() {
			ds.skip(string(entry.ID), fmt.Sprintf("invalid date %q", entry.Date))
			continue
		}
		ds.Entries = append(ds.Entries, EnrichTimeEntry(entry, tables))
	}

	for _, rental := range snap.RentalEntries {
		enriched, err := EnrichRental(rental, tables)
		if err != nil {
			ds.skip(string(rental.ID), err.Error())
			continue
		}
		ds.Rentals = append(ds.Rentals, enriched)
	}

	return ds
}

func (ds *Dataset) skip(id, reason string) {
	ds.Skipped = append(ds.Skipped, SkippedRecord{ID: id, Reason: reason})
}

// SkippedIDs returns just the offending entry ids, for caller inspection.
func (ds *Dataset) SkippedIDs() []string {
	ids := make([]string, len(ds.Skipped))
	for i, s := range ds.Skipped {
		ids[i] = s.ID
	}
	return ids
}
