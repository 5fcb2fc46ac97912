/*
Package export assembles derived data into report documents (CSV, PDF).

PURPOSE:
  Reports are the read-only outer surface: derive + aggregate produce the
  numbers, this package decides the document layout. Building a report also
  runs the reconciliation pass, so an exported document is cross-checked
  before anyone sees it.

KEY CONCEPTS:
  - Report: one assembled, reconciled view of a snapshot - every grouping
    the document formats need, pre-sorted deterministically.
  - Options: title, date range, and a pinned generation time for
    reproducible output.
  - "Unknown": unresolved references are blank in aggregation keys; the
    display fallback lives here, not in the math layers.

SEE ALSO:
  - csv.go: sectioned CSV rendering
  - pdf.go: printable summary rendering
*/
package export

import (
	"time"

	"github.com/crewtrack/billing-engine/aggregate"
	"github.com/crewtrack/billing-engine/derive"
	"github.com/crewtrack/billing-engine/domain"
)

// Options configures one report build. Zero dates leave that bound open;
// a zero GeneratedAt is replaced with the current time.
type Options struct {
	Title       string
	From        domain.Date
	To          domain.Date
	GeneratedAt time.Time
}

// DefaultTitle is used when the caller does not name the report.
const DefaultTitle = "Billing Summary"

// Report is one fully assembled document model. Every slice is sorted the
// way its section prints, so writers only format.
type Report struct {
	Title       string
	From        domain.Date
	To          domain.Date
	GeneratedAt time.Time

	Totals       aggregate.Totals
	RentalTotals aggregate.RentalTotals

	ByEmployee       []aggregate.Group // labor cost, highest first
	CategoryProvince []aggregate.Group // category then province
	Monthly          []aggregate.Group // calendar order
	InvoiceStatus    []aggregate.Group

	Entries []derive.EnrichedTimeEntry
	Rentals []derive.EnrichedRental
	Skipped []derive.SkippedRecord

	// Reconciliation is the integrity cross-check over every grouping.
	// Build returns its first error, but the full result ships with the
	// report so callers can render all mismatches.
	Reconciliation aggregate.Result
}

// Build derives, filters, aggregates, and reconciles one snapshot into a
// report. A reconciliation mismatch returns both the report and the error:
// the numbers are still renderable, the caller decides whether to ship them.
func Build(snap *domain.Snapshot, opts Options) (*Report, error) {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}

	ds := derive.Enrich(snap)
	entries := filterEntries(ds.Entries, opts.From, opts.To)
	rentals := filterRentals(ds.Rentals, opts.From, opts.To)

	summaries := aggregate.Aggregate(entries, aggregate.AllDimensions())

	r := &Report{
		Title:       opts.Title,
		From:        opts.From,
		To:          opts.To,
		GeneratedAt: opts.GeneratedAt,

		Totals:       aggregate.ComputeTotals(entries),
		RentalTotals: aggregate.ComputeRentalTotals(rentals),

		ByEmployee:       summaries[aggregate.DimEmployee],
		CategoryProvince: summaries[aggregate.DimCategoryProvince],
		Monthly:          summaries[aggregate.DimMonth],
		InvoiceStatus:    summaries[aggregate.DimInvoiceStatus],

		Entries: entries,
		Rentals: rentals,
		Skipped: ds.Skipped,
	}

	aggregate.SortByCostDesc(r.ByEmployee)
	aggregate.SortCategoryProvince(r.CategoryProvince)
	aggregate.SortByKey(r.Monthly)
	aggregate.SortByKey(r.InvoiceStatus)

	r.Reconciliation = aggregate.Reconcile(entries, summaries)
	return r, r.Reconciliation.FirstErr()
}

// RangeLabel renders the report's date bounds for headers.
func (r *Report) RangeLabel() string {
	switch {
	case r.From.IsZero() && r.To.IsZero():
		return "All dates"
	case r.From.IsZero():
		return "Through " + string(r.To)
	case r.To.IsZero():
		return "From " + string(r.From)
	default:
		return string(r.From) + " to " + string(r.To)
	}
}

func filterEntries(entries []derive.EnrichedTimeEntry, from, to domain.Date) []derive.EnrichedTimeEntry {
	if from.IsZero() && to.IsZero() {
		return entries
	}
	out := make([]derive.EnrichedTimeEntry, 0, len(entries))
	for i := range entries {
		if entries[i].Entry.Date.InRange(from, to) {
			out = append(out, entries[i])
		}
	}
	return out
}

// Rentals filter on their start date; a rental belongs to the period it
// began in even when it runs past the end bound.
func filterRentals(rentals []derive.EnrichedRental, from, to domain.Date) []derive.EnrichedRental {
	if from.IsZero() && to.IsZero() {
		return rentals
	}
	out := make([]derive.EnrichedRental, 0, len(rentals))
	for i := range rentals {
		if rentals[i].Entry.StartDate.InRange(from, to) {
			out = append(out, rentals[i])
		}
	}
	return out
}
