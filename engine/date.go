package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar-day granularity (program windows are calendar dates)
// =============================================================================

// Date is a calendar day. All comparisons normalize to day granularity, so
// the wall-clock time of the underlying Time never influences program
// matching; a transaction timestamped 00:01 or 23:59 lands on the same day.
type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses an ISO calendar date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool { return d.normalize().Before(other.normalize()) }
func (d Date) After(other Date) bool  { return d.normalize().After(other.normalize()) }
func (d Date) Equal(other Date) bool  { return d.normalize().Equal(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.normalize().AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.normalize().AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) String() string { return d.normalize().Format("2006-01-02") }

// DaysBetween returns the whole-day distance from one date to another.
func DaysBetween(from, to Date) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1).Day()
}
