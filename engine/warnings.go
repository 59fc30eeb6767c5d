package engine

import "fmt"

// =============================================================================
// WARNINGS - The engine never fails on business conditions; it reports them
// =============================================================================

// WarningCode is a stable machine-checkable identifier. Messages remain
// human-readable and are intended for direct display.
type WarningCode string

const (
	// WarnNoProgram: no program covers the transaction date and no fallback
	// could be chosen (the card has zero programs, or the date falls in a
	// gap between programs). The result is a zero reward.
	WarnNoProgram WarningCode = "no_applicable_program"

	// WarnProgramExpired: the transaction date is after every program's end;
	// the latest-ending program was used as fallback.
	WarnProgramExpired WarningCode = "program_expired"

	// WarnProgramUpcoming: the transaction date is before every program's
	// start; the earliest-starting program was used as fallback.
	WarnProgramUpcoming WarningCode = "program_upcoming"

	// WarnRuleCapped: a rule's computed reward exceeded its remaining cap
	// and was clamped.
	WarnRuleCapped WarningCode = "rule_capped"
)

type Warning struct {
	Code    WarningCode
	Message string
}

func (w Warning) String() string { return string(w.Code) + ": " + w.Message }

func noProgramWarning(card *Card) Warning {
	return Warning{
		Code:    WarnNoProgram,
		Message: fmt.Sprintf("card %s has no applicable reward program for this date", card.Name),
	}
}

func expiredProgramWarning(p *Program) Warning {
	return Warning{
		Code:    WarnProgramExpired,
		Message: fmt.Sprintf("program %s expired on %s; reward computed against it as fallback", p.Name, p.EndDate),
	}
}

func upcomingProgramWarning(p *Program) Warning {
	return Warning{
		Code:    WarnProgramUpcoming,
		Message: fmt.Sprintf("program %s has not started (starts %s); reward computed against it as fallback", p.Name, p.StartDate),
	}
}

func ruleCappedWarning(r *BonusRule) Warning {
	return Warning{
		Code:    WarnRuleCapped,
		Message: fmt.Sprintf("rule %s hit its reward cap; amount clamped", r.Name),
	}
}

// HasWarning reports whether the result carries a warning with the code.
func (r *CalculationResult) HasWarning(code WarningCode) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}
