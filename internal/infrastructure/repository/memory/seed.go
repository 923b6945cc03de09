package memory

import (
	"time"

	"github.com/lmspool/last-man-standing/internal/domain/fixture"
)

const SeedLeaguePremier = "Premier League"

// SeedFixtures returns a three-gameweek schedule used by tests and local
// development. Kickoffs are a week apart; every gameweek has two fixtures.
func SeedFixtures() []fixture.Fixture {
	kickoff := func(day int, hour int) time.Time {
		return time.Date(2026, time.August, day, hour, 0, 0, 0, time.UTC)
	}

	return []fixture.Fixture{
		{GameweekID: "GW1", League: SeedLeaguePremier, HomeTeam: "Arsenal", AwayTeam: "Brentford", Kickoff: kickoff(15, 15), KickoffHasTime: true},
		{GameweekID: "GW1", League: SeedLeaguePremier, HomeTeam: "Chelsea", AwayTeam: "Fulham", Kickoff: kickoff(15, 17), KickoffHasTime: true},
		{GameweekID: "GW2", League: SeedLeaguePremier, HomeTeam: "Arsenal", AwayTeam: "Chelsea", Kickoff: kickoff(22, 15), KickoffHasTime: true},
		{GameweekID: "GW2", League: SeedLeaguePremier, HomeTeam: "Brentford", AwayTeam: "Fulham", Kickoff: kickoff(22, 17), KickoffHasTime: true},
		{GameweekID: "GW3", League: SeedLeaguePremier, HomeTeam: "Arsenal", AwayTeam: "Fulham", Kickoff: kickoff(29, 15), KickoffHasTime: true},
		{GameweekID: "GW3", League: SeedLeaguePremier, HomeTeam: "Brentford", AwayTeam: "Chelsea", Kickoff: kickoff(29, 17), KickoffHasTime: true},
	}
}
