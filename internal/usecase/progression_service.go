package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/lmspool/last-man-standing/internal/domain/gameweek"
	"github.com/lmspool/last-man-standing/internal/domain/participant"
	"github.com/lmspool/last-man-standing/internal/domain/pick"
	"github.com/lmspool/last-man-standing/internal/infrastructure/repository/memory"
)

// ProgressionState summarizes where a participant sits in the competition.
type ProgressionState string

const (
	StateNoPickYet      ProgressionState = "NO_PICK_YET"
	StateAwaitingResult ProgressionState = "AWAITING_RESULT"
	StateAdvancing      ProgressionState = "ADVANCING"
	StateEliminated     ProgressionState = "ELIMINATED"
)

// Progression is the resolved focus of a participant's session: which gameweek
// their attention belongs to and why.
type Progression struct {
	State             ProgressionState
	CurrentGameweekID string
	// LatestPick is the pick that drove the decision, when one exists.
	LatestPick    pick.Pick
	HasLatestPick bool
}

// ProgressionService resolves a participant's current gameweek from their pick
// history and the schedule.
type ProgressionService struct {
	participants *memory.ParticipantRepository
	picks        *memory.PickRepository
	schedule     *memory.ScheduleRepository
	now          func() time.Time
}

func NewProgressionService(
	participants *memory.ParticipantRepository,
	picks *memory.PickRepository,
	schedule *memory.ScheduleRepository,
) *ProgressionService {
	return &ProgressionService{
		participants: participants,
		picks:        picks,
		schedule:     schedule,
		now:          time.Now,
	}
}

func (s *ProgressionService) SetNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Current resolves the participant's progression from local state.
func (s *ProgressionService) Current(ctx context.Context, email string) (Progression, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProgressionService.Current")
	defer span.End()

	email = participant.NormalizeEmail(email)
	owner, exists, err := s.participants.Get(ctx, email)
	if err != nil {
		return Progression{}, fmt.Errorf("get participant: %w", err)
	}
	if !exists {
		return Progression{}, fmt.Errorf("%w: participant=%s", ErrNotFound, email)
	}

	picks, err := s.picks.ListByEmail(ctx, email)
	if err != nil {
		return Progression{}, fmt.Errorf("list picks: %w", err)
	}

	return ComputeProgression(owner, picks, s.schedule.Get(ctx), s.now()), nil
}

// ComputeProgression is the pure decision: given a participant, their picks in
// submission order, the schedule, and a clock, pick the gameweek the session
// should focus on.
//
// Eliminated participants land on the knockout gameweek (or their last pick's
// gameweek when the knockout gameweek is unknown). A participant with no picks
// lands on the first gameweek still open for submissions. Otherwise the latest
// pick decides: a WIN advances to the next gameweek (staying put at the end of
// the season), anything unresolved keeps the focus where the pick is.
func ComputeProgression(owner participant.Participant, picks []pick.Pick, sched gameweek.Schedule, now time.Time) Progression {
	latest, hasLatest := latestByScheduleOrder(picks, sched)

	if !owner.Alive {
		return Progression{
			State:             StateEliminated,
			CurrentGameweekID: eliminatedFocus(owner, latest, hasLatest, sched),
			LatestPick:        latest,
			HasLatestPick:     hasLatest,
		}
	}

	if !hasLatest {
		id := ""
		if gw, ok := sched.FirstOpen(now); ok {
			id = gw.ID
		}
		return Progression{State: StateNoPickYet, CurrentGameweekID: id}
	}

	switch latest.Outcome {
	case pick.OutcomeWin:
		next, ok := sched.Next(latest.GameweekID)
		if !ok {
			// Season exhausted: the winning gameweek stays current.
			return Progression{
				State:             StateAdvancing,
				CurrentGameweekID: gameweek.NormalizeID(latest.GameweekID),
				LatestPick:        latest,
				HasLatestPick:     true,
			}
		}
		return Progression{
			State:             StateAdvancing,
			CurrentGameweekID: next.ID,
			LatestPick:        latest,
			HasLatestPick:     true,
		}
	case pick.OutcomeLoss:
		return Progression{
			State:             StateEliminated,
			CurrentGameweekID: eliminatedFocus(owner, latest, true, sched),
			LatestPick:        latest,
			HasLatestPick:     true,
		}
	default:
		return Progression{
			State:             StateAwaitingResult,
			CurrentGameweekID: gameweek.NormalizeID(latest.GameweekID),
			LatestPick:        latest,
			HasLatestPick:     true,
		}
	}
}

// latestByScheduleOrder finds the participant's pick in the latest gameweek by
// schedule position. Picks for gameweeks missing from the schedule lose to any
// pick in a known gameweek.
func latestByScheduleOrder(picks []pick.Pick, sched gameweek.Schedule) (pick.Pick, bool) {
	var latest pick.Pick
	found := false
	bestIdx := -2
	for _, p := range picks {
		idx := sched.IndexOf(p.GameweekID)
		if !found || idx > bestIdx {
			latest = p
			bestIdx = idx
			found = true
		}
	}
	return latest, found
}

func eliminatedFocus(owner participant.Participant, latest pick.Pick, hasLatest bool, sched gameweek.Schedule) string {
	if id := gameweek.NormalizeID(owner.KnockedOutGameweek); id != "" {
		return id
	}
	if hasLatest {
		return gameweek.NormalizeID(latest.GameweekID)
	}
	if gw, ok := sched.First(); ok {
		return gw.ID
	}
	return ""
}
