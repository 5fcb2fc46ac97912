/*
Package domain defines the raw record types the billing engine derives from.

PURPOSE:
  These are the immutable-per-record inputs: employees, jobs, labor time
  entries, equipment rentals, hour types, and provinces. The engine never
  mutates them - it reads a full snapshot per computation and derives
  payroll, billing, tax, and profitability figures from it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee/Job/TimeEntry/RentalEntry: the raw collections
  - Wage snapshots: entries carry the wage that applied when they were
    recorded (CostWageUsed, BillableWageUsed, RateUsed). Derivations MUST
    use these and never the current employee/item rate, so a wage change
    cannot retroactively alter historical figures.
  - Category: drives the GST rule (dsp pays 5% GST, employee pays none)

DESIGN PRINCIPLES:
  1. Immutability: records are value types, copied freely
  2. Precision: decimal.Decimal for every wage, rate, and hour quantity
  3. Type Safety: distinct ID types so a JobID cannot be passed as an
     EmployeeID
  4. JSON-stable: field tags match the backup file format exactly

SEE ALSO:
  - snapshot.go: FullSnapshot aggregating every collection
  - lookup.go: id-keyed lookup tables built from a snapshot
  - errors.go: the engine-wide error taxonomy
*/
package domain

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type JobID string
type TimeEntryID string
type RentalItemID string
type RentalEntryID string
type HourTypeID string
type ProvinceID string

// =============================================================================
// EMPLOYEE
// =============================================================================

// Category classifies how an employee is engaged. It decides GST liability:
// dsp-categorized workers owe 5% GST on billable amounts, employees owe none.
type Category string

const (
	CategoryEmployee   Category = "employee"
	CategoryDSP        Category = "dsp"
	CategoryContractor Category = "contractor"

	// CategoryUnset means the record never had a category assigned. Workers
	// with a manager and no category are treated as GST-liable subordinates.
	CategoryUnset Category = ""
)

type Employee struct {
	ID           EmployeeID      `json:"id"`
	Name         string          `json:"name"`
	Title        string          `json:"title"`
	BillableWage decimal.Decimal `json:"billableWage"`
	CostWage     decimal.Decimal `json:"costWage"`
	Category     Category        `json:"category,omitempty"`

	// ManagerID is a back-reference only; no ownership implied.
	ManagerID EmployeeID `json:"managerId,omitempty"`
}

// =============================================================================
// JOB
// =============================================================================

type Job struct {
	ID        JobID  `json:"id"`
	JobNumber string `json:"jobNumber"`
	Name      string `json:"name"`
	IsActive  bool   `json:"isActive"`

	// IsBillable defaults to true. Entries on non-billable jobs contribute
	// cost only - never revenue, profit, or GST.
	IsBillable bool `json:"isBillable"`

	// InvoicedDates marks which work-dates have already been billed to the
	// client. An entry is "invoiced" iff its date is in this set.
	InvoicedDates []Date `json:"invoicedDates,omitempty"`
}

// IsInvoiced reports whether work performed on the given date has been billed.
func (j Job) IsInvoiced(d Date) bool {
	for _, inv := range j.InvoicedDates {
		if inv == d {
			return true
		}
	}
	return false
}

// =============================================================================
// TIME ENTRY
// =============================================================================

type TimeEntry struct {
	ID         TimeEntryID `json:"id"`
	EmployeeID EmployeeID  `json:"employeeId"`
	JobID      JobID       `json:"jobId"`
	HourTypeID HourTypeID  `json:"hourTypeId"`
	ProvinceID ProvinceID  `json:"provinceId"`
	Date       Date        `json:"date"`

	Hours    decimal.Decimal `json:"hours"`
	LOACount decimal.Decimal `json:"loaCount"` // live-out-allowance units

	// Wage snapshots taken when the entry was recorded. These are the ONLY
	// wages derivations may use.
	CostWageUsed     decimal.Decimal `json:"costWageUsed"`
	BillableWageUsed decimal.Decimal `json:"billableWageUsed"`

	// Title overrides the employee's title for title-based groupings.
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// =============================================================================
// RENTALS
// =============================================================================

// BillingUnit controls how rental duration is counted between start and end.
type BillingUnit string

const (
	UnitHour  BillingUnit = "hour"
	UnitDay   BillingUnit = "day"
	UnitWeek  BillingUnit = "week"
	UnitMonth BillingUnit = "month"
)

type RentalItem struct {
	ID        RentalItemID    `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	DailyRate decimal.Decimal `json:"dailyRate"`
	Unit      BillingUnit     `json:"unit"`
	IsActive  bool            `json:"isActive"`
}

type RentalEntry struct {
	ID           RentalEntryID `json:"id"`
	RentalItemID RentalItemID  `json:"rentalItemId"`
	JobID        JobID         `json:"jobId"`

	// EmployeeID is the operator, when one is attached. Optional.
	EmployeeID EmployeeID `json:"employeeId,omitempty"`

	StartDate   Date        `json:"startDate"`
	EndDate     Date        `json:"endDate"`
	Quantity    int64       `json:"quantity"` // >= 1
	BillingUnit BillingUnit `json:"billingUnit"`

	// RateUsed is the rate snapshot taken when the entry was recorded.
	RateUsed decimal.Decimal `json:"rateUsed"`

	// DSPRate, when set, is the per-duration-unit cost paid out to the
	// operating DSP. Nil means the rental carries no cost side.
	DSPRate *decimal.Decimal `json:"dspRate,omitempty"`

	Description string `json:"description,omitempty"`
}

// =============================================================================
// HOUR TYPE / PROVINCE
// =============================================================================

type HourType struct {
	ID         HourTypeID      `json:"id"`
	Name       string          `json:"name"`
	Multiplier decimal.Decimal `json:"multiplier"` // e.g. regular=1.0, overtime=1.5

	// NightShiftPremium is a flat per-hour wage adjustment added to both the
	// cost and billable wage for entries of this hour type. Zero for most.
	NightShiftPremium decimal.Decimal `json:"nightShiftPremium,omitempty"`
}

type Province struct {
	ID   ProvinceID `json:"id"`
	Name string     `json:"name"`
	Code string     `json:"code"`
}
