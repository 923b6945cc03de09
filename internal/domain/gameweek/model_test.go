package gameweek

import (
	"testing"
	"time"

	"github.com/lmspool/last-man-standing/internal/domain/fixture"
)

func scheduleOf(t *testing.T, deadlines map[string]time.Time) Schedule {
	t.Helper()

	gameweeks := make([]Gameweek, 0, len(deadlines))
	for id, deadline := range deadlines {
		gameweeks = append(gameweeks, Gameweek{
			ID:       id,
			Ordinal:  OrdinalFromID(id),
			Start:    deadline.Truncate(24 * time.Hour),
			Deadline: deadline,
		})
	}
	return NewSchedule(gameweeks)
}

func TestOrdinalFromID(t *testing.T) {
	cases := []struct {
		id   string
		want int
	}{
		{"GW1", 1},
		{"gw12", 12},
		{" GW3 ", 3},
		{"GWX", 0},
		{"Cup Final", 0},
		{"", 0},
	}

	for _, tc := range cases {
		if got := OrdinalFromID(tc.id); got != tc.want {
			t.Fatalf("OrdinalFromID(%q) = %d, want %d", tc.id, got, tc.want)
		}
	}
}

func TestSort_NonNumericAfterNumeric(t *testing.T) {
	gameweeks := []Gameweek{
		{ID: "CUP", Ordinal: 0, Start: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "GW10", Ordinal: 10},
		{ID: "GW2", Ordinal: 2},
	}

	Sort(gameweeks)

	if gameweeks[0].ID != "GW2" || gameweeks[1].ID != "GW10" || gameweeks[2].ID != "CUP" {
		t.Fatalf("unexpected order: %s %s %s", gameweeks[0].ID, gameweeks[1].ID, gameweeks[2].ID)
	}
}

func TestSchedule_Lookups(t *testing.T) {
	base := time.Date(2026, time.August, 15, 14, 0, 0, 0, time.UTC)
	sched := scheduleOf(t, map[string]time.Time{
		"GW1": base,
		"GW2": base.AddDate(0, 0, 7),
		"GW3": base.AddDate(0, 0, 14),
	})

	if got := sched.IndexOf("gw2"); got != 1 {
		t.Fatalf("IndexOf(gw2) = %d, want 1", got)
	}
	if got := sched.IndexOf("GW9"); got != -1 {
		t.Fatalf("IndexOf(GW9) = %d, want -1", got)
	}

	next, ok := sched.Next("GW1")
	if !ok || next.ID != "GW2" {
		t.Fatalf("Next(GW1) = %v %v", next.ID, ok)
	}
	if _, ok := sched.Next("GW3"); ok {
		t.Fatalf("expected no gameweek after the last one")
	}
}

func TestSchedule_FirstOpen(t *testing.T) {
	base := time.Date(2026, time.August, 15, 14, 0, 0, 0, time.UTC)
	sched := scheduleOf(t, map[string]time.Time{
		"GW1": base,
		"GW2": base.AddDate(0, 0, 7),
	})

	open, ok := sched.FirstOpen(base.Add(time.Hour))
	if !ok || open.ID != "GW2" {
		t.Fatalf("FirstOpen past GW1 deadline = %v %v, want GW2", open.ID, ok)
	}

	// All deadlines passed: falls back to the first gameweek.
	open, ok = sched.FirstOpen(base.AddDate(0, 1, 0))
	if !ok || open.ID != "GW1" {
		t.Fatalf("FirstOpen after season = %v %v, want GW1 fallback", open.ID, ok)
	}
}

func TestSchedule_Started(t *testing.T) {
	base := time.Date(2026, time.August, 15, 14, 0, 0, 0, time.UTC)
	sched := scheduleOf(t, map[string]time.Time{"GW1": base})

	if sched.Started(base.Add(-time.Minute)) {
		t.Fatalf("competition should not have started before the first deadline")
	}
	if !sched.Started(base) {
		t.Fatalf("competition starts at the first deadline")
	}
	if (Schedule{}).Started(base) {
		t.Fatalf("empty schedule never starts")
	}
}

func TestGameweek_FixtureForTeam(t *testing.T) {
	gw := Gameweek{
		ID: "GW1",
		Fixtures: []fixture.Fixture{
			{HomeTeam: "Arsenal", AwayTeam: "Brentford"},
			{HomeTeam: "Chelsea", AwayTeam: "Fulham"},
		},
	}

	f, ok := gw.FixtureForTeam("fulham")
	if !ok || f.HomeTeam != "Chelsea" {
		t.Fatalf("unexpected fixture for fulham: %+v %v", f, ok)
	}
	if gw.HasTeam("Liverpool") {
		t.Fatalf("unexpected match for team outside the gameweek")
	}
	if gw.HasTeam("") {
		t.Fatalf("empty team name must not match")
	}
}
