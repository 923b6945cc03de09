package fixture

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RawMatch is one match record as delivered by a league feed.
type RawMatch struct {
	GwID  string `json:"gwId"`
	Round string `json:"round"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Team1 string `json:"team1"`
	Team2 string `json:"team2"`
}

// Fixture is one scheduled match after normalization. Immutable.
type Fixture struct {
	GameweekID     string
	League         string
	HomeTeam       string
	AwayTeam       string
	Kickoff        time.Time
	KickoffHasTime bool
	Round          string
}

var (
	gwShortRegex = regexp.MustCompile(`(?i)GW\s*([0-9]+)`)
	gwLongRegex  = regexp.MustCompile(`(?i)Gameweek\s*([0-9]+)`)
)

// Normalize maps a raw feed record to a Fixture. The second return is false
// when the record cannot be resolved to a gameweek, has no date, or is
// missing a team name; such records are dropped, not errored.
func Normalize(raw RawMatch, league string) (Fixture, bool) {
	gwID := DetectGameweekID(raw)
	if gwID == "" {
		return Fixture{}, false
	}

	date := strings.TrimSpace(raw.Date)
	if date == "" {
		return Fixture{}, false
	}

	home := strings.TrimSpace(raw.Team1)
	away := strings.TrimSpace(raw.Team2)
	if home == "" || away == "" {
		return Fixture{}, false
	}

	kickoff, hasTime, ok := ParseKickoff(date, raw.Time)
	if !ok {
		return Fixture{}, false
	}

	return Fixture{
		GameweekID:     gwID,
		League:         league,
		HomeTeam:       home,
		AwayTeam:       away,
		Kickoff:        kickoff,
		KickoffHasTime: hasTime,
		Round:          strings.TrimSpace(raw.Round),
	}, true
}

// DetectGameweekID resolves the gameweek key for a raw record: an explicit
// gwId field wins, then a round label like "GW1" or "Gameweek 1". Empty means
// the record is unusable.
func DetectGameweekID(raw RawMatch) string {
	if direct := strings.TrimSpace(raw.GwID); direct != "" {
		return strings.ToUpper(direct)
	}

	round := strings.TrimSpace(raw.Round)
	if round == "" {
		return ""
	}
	m := gwShortRegex.FindStringSubmatch(round)
	if m == nil {
		m = gwLongRegex.FindStringSubmatch(round)
	}
	if m == nil {
		return ""
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return ""
	}
	return "GW" + strconv.Itoa(n)
}

// ParseKickoff combines a feed date with an optional time of day into an
// absolute UTC instant. Date-only records default to midday so every fixture
// carries a comparable timestamp.
func ParseKickoff(date, timeOfDay string) (time.Time, bool, bool) {
	timeOfDay = strings.TrimSpace(timeOfDay)
	hasTime := timeOfDay != ""

	iso := date + "T12:00:00Z"
	if hasTime {
		iso = date + "T" + timeOfDay + ":00Z"
	}

	parsed, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return time.Time{}, false, false
	}
	return parsed, hasTime, true
}

// NormalizeTeam folds a team name for comparisons.
func NormalizeTeam(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// HasTeam reports whether the given team plays in this fixture.
func (f Fixture) HasTeam(team string) bool {
	t := NormalizeTeam(team)
	return NormalizeTeam(f.HomeTeam) == t || NormalizeTeam(f.AwayTeam) == t
}
