package fixture

import (
	"testing"
	"time"
)

func TestNormalize_CompleteRecord(t *testing.T) {
	raw := RawMatch{
		GwID:  "gw2",
		Round: "Round 2",
		Date:  "2026-08-22",
		Time:  "15:00",
		Team1: " Arsenal ",
		Team2: "Chelsea",
	}

	f, ok := Normalize(raw, "Premier League")
	if !ok {
		t.Fatalf("expected record to normalize")
	}
	if f.GameweekID != "GW2" {
		t.Fatalf("unexpected gameweek id: %s", f.GameweekID)
	}
	if f.HomeTeam != "Arsenal" || f.AwayTeam != "Chelsea" {
		t.Fatalf("unexpected teams: %s vs %s", f.HomeTeam, f.AwayTeam)
	}
	if !f.KickoffHasTime {
		t.Fatalf("expected kickoff to carry a time of day")
	}
	want := time.Date(2026, time.August, 22, 15, 0, 0, 0, time.UTC)
	if !f.Kickoff.Equal(want) {
		t.Fatalf("unexpected kickoff: %v", f.Kickoff)
	}
}

func TestNormalize_DropsUnusableRecords(t *testing.T) {
	cases := map[string]RawMatch{
		"no gameweek":  {Date: "2026-08-22", Time: "15:00", Team1: "A", Team2: "B", Round: "Friendly"},
		"no date":      {GwID: "GW1", Team1: "A", Team2: "B"},
		"missing team": {GwID: "GW1", Date: "2026-08-22", Team1: "A"},
		"bad date":     {GwID: "GW1", Date: "22-08-2026", Team1: "A", Team2: "B"},
	}

	for name, raw := range cases {
		if _, ok := Normalize(raw, "Premier League"); ok {
			t.Fatalf("%s: expected record to be dropped", name)
		}
	}
}

func TestDetectGameweekID_RoundLabels(t *testing.T) {
	cases := []struct {
		raw  RawMatch
		want string
	}{
		{RawMatch{GwID: "gw7"}, "GW7"},
		{RawMatch{Round: "GW3"}, "GW3"},
		{RawMatch{Round: "gw 12"}, "GW12"},
		{RawMatch{Round: "Gameweek 4"}, "GW4"},
		{RawMatch{Round: "Matchday 4"}, ""},
		{RawMatch{}, ""},
	}

	for _, tc := range cases {
		if got := DetectGameweekID(tc.raw); got != tc.want {
			t.Fatalf("raw %+v: got %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestParseKickoff_DateOnlyDefaultsToMidday(t *testing.T) {
	kickoff, hasTime, ok := ParseKickoff("2026-08-22", "")
	if !ok {
		t.Fatalf("expected date-only kickoff to parse")
	}
	if hasTime {
		t.Fatalf("date-only record should not report a time of day")
	}
	want := time.Date(2026, time.August, 22, 12, 0, 0, 0, time.UTC)
	if !kickoff.Equal(want) {
		t.Fatalf("unexpected kickoff: %v", kickoff)
	}
}

func TestFixture_HasTeam_CaseInsensitive(t *testing.T) {
	f := Fixture{HomeTeam: "Arsenal", AwayTeam: "Chelsea"}

	if !f.HasTeam("arsenal") || !f.HasTeam(" CHELSEA ") {
		t.Fatalf("expected case-insensitive team match")
	}
	if f.HasTeam("Fulham") {
		t.Fatalf("unexpected match for team not in fixture")
	}
}
