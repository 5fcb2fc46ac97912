package domain

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar date carried as its ISO string form
// =============================================================================

// Date is a calendar date in "YYYY-MM-DD" form. The dataset stores dates as
// strings, and ISO dates compare correctly as strings, so Date keeps that
// representation and only converts to time.Time for arithmetic.
type Date string

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format(dateLayout))
}

// ParseDate validates s as an ISO calendar date.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date(s), nil
}

// Time returns the date at UTC midnight. Returns the zero time for a
// malformed date.
func (d Date) Time() time.Time {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (d Date) IsValid() bool {
	_, err := time.Parse(dateLayout, string(d))
	return err == nil
}

func (d Date) IsZero() bool { return d == "" }

// Month returns the "YYYY-MM" calendar-month bucket for this date.
func (d Date) Month() string {
	if len(d) < 7 {
		return ""
	}
	return string(d[:7])
}

// Lexicographic comparison is correct for ISO dates.
func (d Date) Before(other Date) bool { return d < other }
func (d Date) After(other Date) bool  { return d > other }

func (d Date) String() string { return string(d) }

// InRange reports whether d falls within [from, to]. A zero bound is open.
func (d Date) InRange(from, to Date) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to) {
		return false
	}
	return true
}
