package derive

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crewtrack/billing-engine/domain"
)

// =============================================================================
// RENTAL DURATION
// =============================================================================

// Duration counts billing units between start and end, inclusive of the
// start. The day unit is inclusive of BOTH endpoints: a rental from Jan 1 to
// Jan 5 is five billable days, and a same-day rental is one.
//
//	hour  -> ceil(diff / 1h)
//	day   -> ceil(diff / 24h) + 1
//	week  -> ceil(diff / 7d)
//	month -> ceil(diff / 30d)
func Duration(start, end domain.Date, unit domain.BillingUnit) (int64, error) {
	if !start.IsValid() {
		return 0, fmt.Errorf("invalid start date %q", start)
	}
	if !end.IsValid() {
		return 0, fmt.Errorf("invalid end date %q", end)
	}
	diff := end.Time().Sub(start.Time())
	if diff < 0 {
		return 0, fmt.Errorf("end date %s before start date %s", end, start)
	}

	switch unit {
	case domain.UnitHour:
		return ceilDiv(diff, time.Hour), nil
	case domain.UnitDay:
		return ceilDiv(diff, 24*time.Hour) + 1, nil
	case domain.UnitWeek:
		return ceilDiv(diff, 7*24*time.Hour), nil
	case domain.UnitMonth:
		return ceilDiv(diff, 30*24*time.Hour), nil
	default:
		return 0, fmt.Errorf("unknown billing unit %q", unit)
	}
}

func ceilDiv(d, unit time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + unit - 1) / unit)
}

// =============================================================================
// ENRICHED RENTAL ENTRY
// =============================================================================

// EnrichedRental is one rental entry plus its derived figures. The cost side
// exists only when a DSP rate was recorded on the entry.
type EnrichedRental struct {
	Entry domain.RentalEntry

	Item     *domain.RentalItem
	Job      *domain.Job
	Employee *domain.Employee // operator; nil when none attached

	Missing []string

	Duration  int64
	TotalCost decimal.Decimal // what the rental bills: duration x quantity x rateUsed
	DSPCost   decimal.Decimal // what the rental costs: duration x quantity x dspRate
	GST       decimal.Decimal
	Profit    decimal.Decimal

	Billable  bool
	Invoiced  bool
	GSTLiable bool
}

func (r *EnrichedRental) Resolved() bool { return len(r.Missing) == 0 }

// EnrichRental derives one rental entry. Unlike time entries, a rental with
// unusable dates or a non-positive quantity cannot be priced at all, so those
// are returned as errors for the caller to skip-and-flag.
func EnrichRental(entry domain.RentalEntry, tables *domain.Tables) (EnrichedRental, error) {
	out := EnrichedRental{Entry: entry, Billable: true}

	if entry.Quantity < 1 {
		return out, fmt.Errorf("quantity %d below 1", entry.Quantity)
	}

	duration, err := Duration(entry.StartDate, entry.EndDate, entry.BillingUnit)
	if err != nil {
		return out, err
	}
	out.Duration = duration

	out.Item = tables.Items[entry.RentalItemID]
	out.Job = tables.Jobs[entry.JobID]
	if out.Item == nil {
		out.Missing = append(out.Missing, "rentalItem")
	}
	if out.Job == nil {
		out.Missing = append(out.Missing, "job")
	} else {
		out.Billable = out.Job.IsBillable
	}
	if entry.EmployeeID != "" {
		out.Employee = tables.Employees[entry.EmployeeID]
		if out.Employee == nil {
			out.Missing = append(out.Missing, "employee")
		}
	}

	units := decimal.NewFromInt(duration).Mul(decimal.NewFromInt(entry.Quantity))

	if entry.DSPRate != nil {
		out.DSPCost = units.Mul(*entry.DSPRate)
		if out.DSPCost.IsNegative() {
			out.DSPCost = decimal.Zero
		}
	}

	if out.Billable {
		out.TotalCost = units.Mul(entry.RateUsed)
		if out.TotalCost.IsNegative() {
			out.TotalCost = decimal.Zero
		}
		out.GSTLiable = GSTLiable(out.Employee)
		if out.GSTLiable {
			out.GST = out.TotalCost.Mul(GSTRate)
		}
	}

	out.Profit = out.TotalCost.Sub(out.DSPCost)
	out.Invoiced = tables.IsInvoiced(entry.JobID, entry.StartDate)

	return out, nil
}
