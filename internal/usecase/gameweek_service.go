package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/lmspool/last-man-standing/internal/domain/fixture"
	"github.com/lmspool/last-man-standing/internal/domain/gameweek"
	"github.com/lmspool/last-man-standing/internal/platform/logging"
)

// DeadlineOverride is one row of the manual deadline feed: a gameweek id, a
// date ("2026-01-31") and a wall-clock time ("14:00"), interpreted as UTC.
type DeadlineOverride struct {
	GameweekID string
	Date       string
	Time       string
}

// DeadlineFeed fetches the manual deadline override list.
type DeadlineFeed interface {
	FetchDeadlines(ctx context.Context) ([]DeadlineOverride, error)
}

// GameweekService groups normalized fixtures into gameweeks and computes
// their submission deadlines.
type GameweekService struct {
	deadlines    DeadlineFeed
	deadlineLead time.Duration
	logger       *logging.Logger
}

func NewGameweekService(deadlines DeadlineFeed, deadlineLead time.Duration, logger *logging.Logger) *GameweekService {
	if deadlineLead <= 0 {
		deadlineLead = time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GameweekService{
		deadlines:    deadlines,
		deadlineLead: deadlineLead,
		logger:       logger,
	}
}

// BuildSchedule groups fixtures into gameweeks, applies manual deadline
// overrides, and returns the sorted schedule. The deadline feed failing is a
// non-fatal degradation: computed deadlines are kept.
func (s *GameweekService) BuildSchedule(ctx context.Context, fixtures []fixture.Fixture) (gameweek.Schedule, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameweekService.BuildSchedule")
	defer span.End()

	gameweeks := s.Build(fixtures)

	if s.deadlines != nil {
		overrides, err := s.deadlines.FetchDeadlines(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "deadline feed failed, keeping computed deadlines", "error", err)
		} else {
			gameweeks = ApplyDeadlineOverrides(gameweeks, overrides)
		}
	}

	return gameweek.NewSchedule(gameweeks), nil
}

// Build groups fixtures by gameweek id. Within a group fixtures are sorted by
// kickoff; start is the calendar day of the earliest fixture and the default
// deadline is the earliest kickoff minus the configured lead time.
func (s *GameweekService) Build(fixtures []fixture.Fixture) []gameweek.Gameweek {
	groups := make(map[string][]fixture.Fixture)
	order := make([]string, 0, 8)
	for _, f := range fixtures {
		id := gameweek.NormalizeID(f.GameweekID)
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], f)
	}

	out := make([]gameweek.Gameweek, 0, len(order))
	for _, id := range order {
		group := groups[id]
		sortFixturesByKickoff(group)

		first := group[0].Kickoff
		out = append(out, gameweek.Gameweek{
			ID:           id,
			Ordinal:      gameweek.OrdinalFromID(id),
			Fixtures:     group,
			Start:        startOfDayUTC(first),
			FirstKickoff: first,
			Deadline:     first.Add(-s.deadlineLead),
		})
	}

	gameweek.Sort(out)
	return out
}

// ApplyDeadlineOverrides replaces computed deadlines with manual ones where a
// parseable override exists. An override that fails to parse is silently
// ignored so the computed default survives.
func ApplyDeadlineOverrides(gameweeks []gameweek.Gameweek, overrides []DeadlineOverride) []gameweek.Gameweek {
	manual := make(map[string]time.Time, len(overrides))
	for _, o := range overrides {
		id := gameweek.NormalizeID(o.GameweekID)
		if id == "" || o.Date == "" || o.Time == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, o.Date+"T"+o.Time+":00Z")
		if err != nil {
			continue
		}
		manual[id] = parsed
	}

	if len(manual) == 0 {
		return gameweeks
	}

	out := append([]gameweek.Gameweek(nil), gameweeks...)
	for i := range out {
		if deadline, ok := manual[gameweek.NormalizeID(out[i].ID)]; ok {
			out[i].Deadline = deadline
		}
	}
	return out
}

func sortFixturesByKickoff(fixtures []fixture.Fixture) {
	sort.SliceStable(fixtures, func(i, j int) bool {
		return fixtures[i].Kickoff.Before(fixtures[j].Kickoff)
	})
}

func startOfDayUTC(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
