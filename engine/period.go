/*
period.go - Accrual-period resolution

PURPOSE:
  Caps and cumulative thresholds are always tracked over a calendar window:
  a campaign span, a calendar month, or a statement-anchored billing cycle.
  This file resolves which window a given date falls into.

PRECEDENCE (UsagePeriodFor):
  1. Campaign caps use the program's own validity window, regardless of
     the card's billing cycle.
  2. Cards on a calendar cycle use the target date's calendar month.
  3. Otherwise the window is anchored on the card's statement date: the
     cycle closes ON the statement day and the new cycle begins the next
     day, mirroring real credit-card billing.

EXAMPLE:
  Statement day 10, target March 15 -> [March 11, April 10]
  Statement day 10, target March 5  -> [February 11, March 10]

SEE ALSO:
  - usage.go: sums prior contributions within the resolved window
*/
package engine

import "time"

// =============================================================================
// PERIOD - Inclusive calendar window
// =============================================================================

type Period struct {
	Start Date
	End   Date
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// WINDOW CONSTRUCTORS
// =============================================================================

// CalendarMonth returns the first-through-last-day window of d's month.
func CalendarMonth(d Date) Period {
	start := NewDate(d.Year(), d.Month(), 1)
	end := NewDate(d.Year(), d.Month(), DaysInMonth(d.Year(), d.Month()))
	return Period{Start: start, End: end}
}

// StatementCycle returns the billing cycle containing d for a card whose
// statement closes on statementDay (1-31). Days beyond a short month clamp
// to that month's last day, so day 31 closes on February 28.
func StatementCycle(d Date, statementDay int) Period {
	closeThis := statementDateIn(d.Year(), d.Month(), statementDay)

	if d.After(closeThis) {
		// Current cycle opened the day after this month's close.
		ny, nm := shiftMonth(d.Year(), d.Month(), 1)
		return Period{
			Start: closeThis.AddDays(1),
			End:   statementDateIn(ny, nm, statementDay),
		}
	}

	py, pm := shiftMonth(d.Year(), d.Month(), -1)
	return Period{
		Start: statementDateIn(py, pm, statementDay).AddDays(1),
		End:   closeThis,
	}
}

// shiftMonth moves a (year, month) pair without day-of-month overflow; date
// arithmetic via AddDate would roll Jan 30 + 1 month into March.
func shiftMonth(year int, month time.Month, by int) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, by, 0)
	return t.Year(), t.Month()
}

func statementDateIn(year int, month time.Month, day int) Date {
	if max := DaysInMonth(year, month); day > max {
		day = max
	}
	return NewDate(year, month, day)
}

// =============================================================================
// USAGE PERIOD RESOLUTION
// =============================================================================

// UsagePeriodFor resolves the accrual window for a rule on the given card
// configuration. statementDay <= 0 (unset) degrades a statement cycle to
// the calendar month.
func UsagePeriodFor(target Date, rule *BonusRule, program *Program, statementDay int, cycle BillingCycleType) Period {
	if rule != nil && rule.Cap != nil && rule.Cap.Period == CapCampaign {
		return program.Window()
	}
	if cycle == CycleCalendar || statementDay <= 0 {
		return CalendarMonth(target)
	}
	return StatementCycle(target, statementDay)
}
