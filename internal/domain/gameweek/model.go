package gameweek

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lmspool/last-man-standing/internal/domain/fixture"
)

// nonNumericOrdinal sorts every non-numeric gameweek id after the numbered ones.
const nonNumericOrdinal = 999999

// Gameweek bundles the fixtures a pick may reference until its deadline.
// Gameweeks are rebuilt wholesale on every fixture reload, never mutated.
type Gameweek struct {
	ID           string
	Ordinal      int // 0 when the id is not GW<n>
	Fixtures     []fixture.Fixture
	Start        time.Time // calendar day of the earliest fixture, UTC
	FirstKickoff time.Time
	Deadline     time.Time
}

var gwNumRegex = regexp.MustCompile(`(?i)^GW(\d+)$`)

// NormalizeID folds a gameweek id to its canonical uppercase form.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// OrdinalFromID extracts n from "GW<n>", or 0 for any other id shape.
func OrdinalFromID(id string) int {
	m := gwNumRegex.FindStringSubmatch(strings.TrimSpace(id))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func (g Gameweek) sortOrdinal() int {
	if g.Ordinal > 0 {
		return g.Ordinal
	}
	return nonNumericOrdinal
}

// HasTeam reports whether the team appears in any fixture of this gameweek.
func (g Gameweek) HasTeam(team string) bool {
	_, ok := g.FixtureForTeam(team)
	return ok
}

// FixtureForTeam finds the fixture the team plays in, if any.
func (g Gameweek) FixtureForTeam(team string) (fixture.Fixture, bool) {
	if strings.TrimSpace(team) == "" {
		return fixture.Fixture{}, false
	}
	for _, f := range g.Fixtures {
		if f.HasTeam(team) {
			return f, true
		}
	}
	return fixture.Fixture{}, false
}

// Sort orders gameweeks by numeric ordinal ascending, with non-numeric ids
// after all numeric ones ordered by start date.
func Sort(gameweeks []Gameweek) {
	sort.SliceStable(gameweeks, func(i, j int) bool {
		a, b := gameweeks[i].sortOrdinal(), gameweeks[j].sortOrdinal()
		if a != b {
			return a < b
		}
		return gameweeks[i].Start.Before(gameweeks[j].Start)
	})
}

// Schedule is an ordered, immutable snapshot of the season's gameweeks.
type Schedule struct {
	gameweeks []Gameweek
	indexByID map[string]int
}

func NewSchedule(gameweeks []Gameweek) Schedule {
	ordered := append([]Gameweek(nil), gameweeks...)
	Sort(ordered)

	indexByID := make(map[string]int, len(ordered))
	for i, gw := range ordered {
		indexByID[NormalizeID(gw.ID)] = i
	}
	return Schedule{gameweeks: ordered, indexByID: indexByID}
}

func (s Schedule) Len() int { return len(s.gameweeks) }

func (s Schedule) Gameweeks() []Gameweek {
	return append([]Gameweek(nil), s.gameweeks...)
}

func (s Schedule) ByID(id string) (Gameweek, bool) {
	idx, ok := s.indexByID[NormalizeID(id)]
	if !ok {
		return Gameweek{}, false
	}
	return s.gameweeks[idx], true
}

// IndexOf returns the position of a gameweek in schedule order, or -1.
func (s Schedule) IndexOf(id string) int {
	idx, ok := s.indexByID[NormalizeID(id)]
	if !ok {
		return -1
	}
	return idx
}

func (s Schedule) First() (Gameweek, bool) {
	if len(s.gameweeks) == 0 {
		return Gameweek{}, false
	}
	return s.gameweeks[0], true
}

// Next returns the gameweek that follows the given one in schedule order.
func (s Schedule) Next(id string) (Gameweek, bool) {
	idx := s.IndexOf(id)
	if idx < 0 || idx+1 >= len(s.gameweeks) {
		return Gameweek{}, false
	}
	return s.gameweeks[idx+1], true
}

// FirstOpen returns the earliest gameweek whose deadline is still in the
// future, falling back to the first gameweek overall.
func (s Schedule) FirstOpen(now time.Time) (Gameweek, bool) {
	for _, gw := range s.gameweeks {
		if gw.Deadline.After(now) {
			return gw, true
		}
	}
	return s.First()
}

// Started reports whether the first gameweek's deadline has passed, which is
// when the competition switches from approval buckets to alive/out buckets.
func (s Schedule) Started(now time.Time) bool {
	first, ok := s.First()
	if !ok {
		return false
	}
	return !now.Before(first.Deadline)
}
