package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/crewtrack/billing-engine/derive"
)

// Unknown is the display fallback for an unresolved reference. Aggregation
// keys stay blank; only rendered documents substitute this.
const Unknown = "Unknown"

// WriteCSV renders the report as a sectioned CSV document: a header block,
// then labeled tables separated by blank lines. Spreadsheet apps open it as
// one sheet with visually distinct sections.
func WriteCSV(w io.Writer, r *Report) error {
	cw := &sectionWriter{w: w, csv: csv.NewWriter(w)}

	cw.row(r.Title)
	cw.row("Period", r.RangeLabel())
	cw.row("Generated", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	cw.blank()

	cw.row("EXECUTIVE SUMMARY")
	cw.row("Metric", "Value")
	cw.row("Total Hours", r.Totals.Hours.String())
	cw.row("Effective Hours", r.Totals.EffectiveHours.String())
	cw.row("Labor Cost", money(r.Totals.LaborCost))
	cw.row("Billable Amount", money(r.Totals.BillableAmount))
	cw.row("LOA", money(r.Totals.LOAAmount))
	cw.row("GST Collected", money(r.Totals.GST))
	cw.row("Revenue", money(r.Totals.Revenue()))
	cw.row("Profit", money(r.Totals.Profit))
	cw.row("Non-Billable Cost", money(r.Totals.NonBillableCost))
	cw.row("Time Entries", strconv.Itoa(r.Totals.EntryCount))
	if r.RentalTotals.Count > 0 {
		cw.row("Rental Revenue", money(r.RentalTotals.Revenue))
		cw.row("Rental Cost", money(r.RentalTotals.DSPCost))
		cw.row("Rental GST", money(r.RentalTotals.GST))
		cw.row("Rental Profit", money(r.RentalTotals.Profit))
		cw.row("Rental Entries", strconv.Itoa(r.RentalTotals.Count))
	}
	cw.blank()

	cw.row("TAX BREAKDOWN BY CATEGORY AND PROVINCE")
	cw.row("Category", "Province", "Effective Hours", "Billable Amount", "GST")
	for i := range r.CategoryProvince {
		g := &r.CategoryProvince[i]
		cw.row(
			orUnknown(g.Parts[0]),
			orUnknown(g.Parts[1]),
			g.EffectiveHours.String(),
			money(g.BillableAmount),
			money(g.GST),
		)
	}
	cw.blank()

	cw.row("MONTHLY BREAKDOWN")
	cw.row("Month", "Hours", "Effective Hours", "Labor Cost", "Billable Amount", "GST", "Profit")
	for i := range r.Monthly {
		g := &r.Monthly[i]
		cw.row(
			g.Key,
			g.Hours.String(),
			g.EffectiveHours.String(),
			money(g.LaborCost),
			money(g.BillableAmount),
			money(g.GST),
			money(g.Profit),
		)
	}
	cw.blank()

	cw.row("INVOICE STATUS")
	cw.row("Status", "Entries", "Hours", "Billable Amount", "GST")
	for i := range r.InvoiceStatus {
		g := &r.InvoiceStatus[i]
		cw.row(
			g.Key,
			strconv.Itoa(g.EntryCount),
			g.Hours.String(),
			money(g.BillableAmount),
			money(g.GST),
		)
	}
	cw.blank()

	cw.row("DETAILED ENTRIES")
	cw.row("Date", "Employee", "Title", "Job", "Hour Type", "Province",
		"Hours", "Effective Hours", "Labor Cost", "Billable Amount", "LOA", "GST",
		"Invoiced", "Description")
	for i := range r.Entries {
		e := &r.Entries[i]
		cw.row(
			string(e.Entry.Date),
			EmployeeName(e),
			e.Title,
			JobName(e),
			HourTypeName(e),
			ProvinceName(e),
			e.Entry.Hours.String(),
			e.EffectiveHours.String(),
			money(e.LaborCost),
			money(e.BillableAmount),
			money(e.LOAAmount),
			money(e.GST),
			yesNo(e.Invoiced),
			e.Entry.Description,
		)
	}

	if len(r.Rentals) > 0 {
		cw.blank()
		cw.row("RENTAL ENTRIES")
		cw.row("Start", "End", "Item", "Job", "Unit", "Duration", "Quantity",
			"Rate", "Total", "GST", "Invoiced")
		for i := range r.Rentals {
			re := &r.Rentals[i]
			item, job := Unknown, Unknown
			if re.Item != nil {
				item = re.Item.Name
			}
			if re.Job != nil {
				job = re.Job.Name
			}
			cw.row(
				string(re.Entry.StartDate),
				string(re.Entry.EndDate),
				item,
				job,
				string(re.Entry.BillingUnit),
				strconv.FormatInt(re.Duration, 10),
				strconv.FormatInt(re.Entry.Quantity, 10),
				money(re.Entry.RateUsed),
				money(re.TotalCost),
				money(re.GST),
				yesNo(re.Invoiced),
			)
		}
	}

	if len(r.Skipped) > 0 {
		cw.blank()
		cw.row("SKIPPED RECORDS")
		cw.row("ID", "Reason")
		for _, s := range r.Skipped {
			cw.row(s.ID, s.Reason)
		}
	}

	return cw.close()
}

// =============================================================================
// DISPLAY HELPERS
// =============================================================================

// EmployeeName resolves the display name for an entry's worker.
func EmployeeName(e *derive.EnrichedTimeEntry) string {
	if e.Employee == nil {
		return Unknown
	}
	return e.Employee.Name
}

// JobName resolves the display name for an entry's job.
func JobName(e *derive.EnrichedTimeEntry) string {
	if e.Job == nil {
		return Unknown
	}
	return e.Job.Name
}

// HourTypeName resolves the display name for an entry's hour type.
func HourTypeName(e *derive.EnrichedTimeEntry) string {
	if e.HourType == nil {
		return Unknown
	}
	return e.HourType.Name
}

// ProvinceName resolves the display name for an entry's province.
func ProvinceName(e *derive.EnrichedTimeEntry) string {
	if e.Province == nil {
		return Unknown
	}
	return e.Province.Name
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

func money(d decimal.Decimal) string { return "$" + d.StringFixed(2) }

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// sectionWriter wraps csv.Writer with blank-line section breaks. The first
// write error sticks; every later call is a no-op.
type sectionWriter struct {
	w   io.Writer
	csv *csv.Writer
	err error
}

func (s *sectionWriter) row(fields ...string) {
	if s.err != nil {
		return
	}
	s.err = s.csv.Write(fields)
}

// blank flushes the pending rows and emits one empty line outside the CSV
// quoting rules, so the separator stays a true blank line.
func (s *sectionWriter) blank() {
	if s.err != nil {
		return
	}
	s.csv.Flush()
	if s.err = s.csv.Error(); s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, "\n")
}

func (s *sectionWriter) close() error {
	if s.err != nil {
		return fmt.Errorf("write csv: %w", s.err)
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
