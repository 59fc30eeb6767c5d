package engine_test

import (
	"testing"
	"time"

	"github.com/cardwise/reward-engine/engine"
)

func programCard(programs ...engine.Program) *engine.Card {
	return &engine.Card{ID: "card-1", Name: "Test Card", Programs: programs}
}

func program(id string, start, end engine.Date) engine.Program {
	return engine.Program{ID: id, Name: id, StartDate: start, EndDate: end}
}

func TestFindApplicableProgram_BoundariesInclusive(t *testing.T) {
	// GIVEN: A program valid June 1 - August 31
	// WHEN: Matching the first day, the last day, and one day past each
	// THEN: Both boundary days match; the days outside do not

	card := programCard(program("p1", date(2025, time.June, 1), date(2025, time.August, 31)))

	for _, tc := range []struct {
		day   engine.Date
		match bool
	}{
		{date(2025, time.May, 31), false},
		{date(2025, time.June, 1), true},
		{date(2025, time.August, 31), true},
		{date(2025, time.September, 1), false},
	} {
		got := engine.FindApplicableProgram(card, tc.day)
		if (got != nil) != tc.match {
			t.Errorf("%s: expected match=%v, got %v", tc.day, tc.match, got)
		}
	}
}

func TestFindApplicableProgram_OverlapPrefersMostRecentStart(t *testing.T) {
	// GIVEN: Two overlapping programs, the second starting later
	// WHEN: Matching a date inside the overlap
	// THEN: The most recently started program wins, regardless of slice order

	older := program("older", date(2025, time.January, 1), date(2025, time.December, 31))
	newer := program("newer", date(2025, time.June, 1), date(2025, time.August, 31))

	for _, card := range []*engine.Card{
		programCard(older, newer),
		programCard(newer, older),
	} {
		got := engine.FindApplicableProgram(card, date(2025, time.July, 1))
		if got == nil || got.ID != "newer" {
			t.Errorf("expected newer to win the overlap, got %v", got)
		}
	}
}

func TestFindApplicableProgram_NoMatchReturnsNil(t *testing.T) {
	card := programCard(program("p1", date(2025, time.June, 1), date(2025, time.June, 30)))
	if got := engine.FindApplicableProgram(card, date(2025, time.July, 1)); got != nil {
		t.Errorf("expected nil outside every window, got %v", got)
	}
	if got := engine.FindApplicableProgram(programCard(), date(2025, time.July, 1)); got != nil {
		t.Errorf("expected nil for a card with no programs, got %v", got)
	}
}

func TestActivePrograms_ListsEveryCoveringWindow(t *testing.T) {
	// GIVEN: Two overlapping programs and one already ended
	// WHEN: Listing programs active mid-July
	// THEN: Both covering programs appear, most recently started first

	card := programCard(
		program("year", date(2025, time.January, 1), date(2025, time.December, 31)),
		program("summer", date(2025, time.June, 1), date(2025, time.August, 31)),
		program("spring", date(2025, time.March, 1), date(2025, time.May, 31)),
	)

	active := engine.ActivePrograms(card, date(2025, time.July, 15))
	if len(active) != 2 {
		t.Fatalf("expected 2 active programs, got %d", len(active))
	}
	if active[0].ID != "summer" || active[1].ID != "year" {
		t.Errorf("expected [summer year], got [%s %s]", active[0].ID, active[1].ID)
	}

	if got := engine.ActivePrograms(card, date(2026, time.February, 1)); got != nil {
		t.Errorf("expected no active programs past every window, got %v", got)
	}
}

func TestEffectiveProgram_IncludesFallback(t *testing.T) {
	// GIVEN: Programs ending August 31 and starting next March
	// WHEN: Resolving dates inside, after, before and between the windows
	// THEN: The covering program wins, otherwise the nearest boundary; the
	//       gap between programs resolves to nothing

	card := programCard(
		program("summer", date(2025, time.June, 1), date(2025, time.August, 31)),
		program("next", date(2026, time.March, 1), date(2026, time.May, 31)),
	)

	for _, tc := range []struct {
		day  engine.Date
		want string
	}{
		{date(2025, time.July, 1), "summer"},
		{date(2025, time.September, 15), ""}, // gap between programs
		{date(2026, time.July, 1), "next"},   // after every end
		{date(2025, time.May, 1), "summer"},  // before every start
	} {
		got := engine.EffectiveProgram(card, tc.day)
		switch {
		case tc.want == "" && got != nil:
			t.Errorf("%s: expected nil in the gap, got %s", tc.day, got.ID)
		case tc.want != "" && (got == nil || got.ID != tc.want):
			t.Errorf("%s: expected %s, got %v", tc.day, tc.want, got)
		}
	}
}

func TestOverlaps_SharedBoundaryDayCounts(t *testing.T) {
	// GIVEN: One program ending June 30 and another starting June 30
	// WHEN: Checking for overlap
	// THEN: The shared day is an overlap (windows are inclusive)

	a := program("a", date(2025, time.June, 1), date(2025, time.June, 30))
	b := program("b", date(2025, time.June, 30), date(2025, time.July, 31))
	c := program("c", date(2025, time.July, 1), date(2025, time.July, 31))

	if !engine.Overlaps(&a, &b) {
		t.Error("programs sharing a boundary day must overlap")
	}
	if engine.Overlaps(&a, &c) {
		t.Error("adjacent programs must not overlap")
	}
}

func TestValidatePrograms_ReportsEveryConflictingPair(t *testing.T) {
	card := programCard(
		program("q1", date(2025, time.January, 1), date(2025, time.April, 30)),
		program("q2", date(2025, time.April, 1), date(2025, time.June, 30)),
		program("q3", date(2025, time.July, 1), date(2025, time.September, 30)),
	)

	diags := engine.ValidatePrograms(card)
	if len(diags) != 1 {
		t.Fatalf("expected exactly one overlap, got %d: %v", len(diags), diags)
	}
	if diags[0].ProgramA != "q1" || diags[0].ProgramB != "q2" {
		t.Errorf("expected q1/q2 conflict, got %+v", diags[0])
	}
}

func TestProgramLifecycleHelpers(t *testing.T) {
	p := program("p", date(2025, time.June, 1), date(2025, time.June, 30))

	if !engine.IsUpcoming(&p, date(2025, time.May, 15)) {
		t.Error("expected upcoming before start")
	}
	if !engine.IsExpired(&p, date(2025, time.July, 1)) {
		t.Error("expected expired after end")
	}
	if got := engine.RemainingDays(&p, date(2025, time.June, 28)); got != 2 {
		t.Errorf("expected 2 remaining days, got %d", got)
	}
	if got := engine.RemainingDays(&p, date(2025, time.July, 2)); got != -2 {
		t.Errorf("expected -2 remaining days once expired, got %d", got)
	}
}
