package pick

import (
	"strings"
	"time"

	"github.com/lmspool/last-man-standing/internal/domain/fixture"
)

type Outcome string

const (
	OutcomePending Outcome = "PENDING"
	OutcomeWin     Outcome = "WIN"
	OutcomeLoss    Outcome = "LOSS"
)

// NormalizeOutcome folds the free-form outcome values the remote authority
// stores into the canonical set. Anything unrecognized is treated as pending.
func NormalizeOutcome(value string) Outcome {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "WIN", "WON":
		return OutcomeWin
	case "LOSS", "LOST", "LOSE":
		return OutcomeLoss
	default:
		return OutcomePending
	}
}

func (o Outcome) Resolved() bool {
	return o == OutcomeWin || o == OutcomeLoss
}

// Pick is one participant's selection for one gameweek. At most one Pick
// exists per (participant, gameweek); a resubmission replaces it.
type Pick struct {
	Email       string
	GameweekID  string
	Team        string
	Outcome     Outcome
	SubmittedAt time.Time
}

// UsedTeams derives the set of teams barred from reuse: only teams whose pick
// produced a WIN block future selection. A pending or losing pick does not.
func UsedTeams(picks []Pick) map[string]struct{} {
	used := make(map[string]struct{})
	for _, p := range picks {
		if p.Outcome != OutcomeWin {
			continue
		}
		used[fixture.NormalizeTeam(p.Team)] = struct{}{}
	}
	return used
}
