/*
matcher.go - Program selection and validity diagnostics

PURPOSE:
  Selects which time-boxed reward program applies to a transaction date.
  Returning nil is the common "between programs" case, not an error; the
  calculator layers its own nearest-boundary fallback on top.

OVERLAP POLICY:
  Programs on the same card should not overlap, but the engine tolerates
  it: candidates are scanned in descending start-date order, so an
  ambiguous date resolves to the most recently started program. The
  advisory ValidatePrograms check surfaces overlaps for the authoring UI
  without ever blocking calculation.

SEE ALSO:
  - calculator.go: fallback selection when no program matches
*/
package engine

import "sort"

// =============================================================================
// PROGRAM SELECTION
// =============================================================================

// FindApplicableProgram returns the program whose inclusive
// [StartDate, EndDate] window contains date, preferring the most recently
// started program when windows overlap. Nil when no window contains date.
func FindApplicableProgram(card *Card, date Date) *Program {
	candidates := programsByStartDesc(card)
	for _, p := range candidates {
		if p.Window().Contains(date) {
			return p
		}
	}
	return nil
}

// EffectiveProgram resolves the program Calculate will evaluate against on
// date: the applicable program when one covers it, otherwise the
// nearest-boundary fallback. Nil only in a gap between programs or when
// the card has none. Callers deriving usage inputs for Calculate must use
// this rather than FindApplicableProgram, so cap state follows the
// fallback path too.
func EffectiveProgram(card *Card, date Date) *Program {
	if p := FindApplicableProgram(card, date); p != nil {
		return p
	}
	return fallbackProgram(card, date)
}

// ActivePrograms returns every program covering the reference date, in
// descending start order. Display helper; calculation uses
// FindApplicableProgram.
func ActivePrograms(card *Card, ref Date) []*Program {
	var active []*Program
	for _, p := range programsByStartDesc(card) {
		if p.Window().Contains(ref) {
			active = append(active, p)
		}
	}
	return active
}

func programsByStartDesc(card *Card) []*Program {
	ps := make([]*Program, len(card.Programs))
	for i := range card.Programs {
		ps[i] = &card.Programs[i]
	}
	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].StartDate.After(ps[j].StartDate)
	})
	return ps
}

// =============================================================================
// OVERLAP DIAGNOSTICS - Advisory only, never blocks calculation
// =============================================================================

// Overlaps is the inclusive interval-intersection test:
// start1 <= end2 && start2 <= end1. Programs sharing a boundary day overlap.
func Overlaps(p1, p2 *Program) bool {
	return p1.StartDate.BeforeOrEqual(p2.EndDate) && p2.StartDate.BeforeOrEqual(p1.EndDate)
}

// OverlapDiagnostic names a conflicting program pair.
type OverlapDiagnostic struct {
	ProgramA string
	ProgramB string
}

// ValidatePrograms runs the pairwise overlap check across a card's
// programs and returns the conflicting name pairs.
func ValidatePrograms(card *Card) []OverlapDiagnostic {
	var diags []OverlapDiagnostic
	for i := range card.Programs {
		for j := i + 1; j < len(card.Programs); j++ {
			if Overlaps(&card.Programs[i], &card.Programs[j]) {
				diags = append(diags, OverlapDiagnostic{
					ProgramA: card.Programs[i].Name,
					ProgramB: card.Programs[j].Name,
				})
			}
		}
	}
	return diags
}

// =============================================================================
// DATE HELPERS - Used by display surfaces, not the calculation path
// =============================================================================

// RemainingDays returns how many days of the program are left as of today
// (inclusive of the end date). Negative once expired.
func RemainingDays(p *Program, today Date) int {
	return DaysBetween(today, p.EndDate)
}

func IsExpired(p *Program, today Date) bool {
	return today.After(p.EndDate)
}

func IsUpcoming(p *Program, today Date) bool {
	return today.Before(p.StartDate)
}
