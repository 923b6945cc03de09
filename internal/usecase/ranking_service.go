package usecase

import (
	"sort"
	"strings"

	"github.com/lmspool/last-man-standing/internal/domain/gameweek"
	"github.com/lmspool/last-man-standing/internal/domain/participant"
)

// Placing is one participant's position in the elimination order.
type Placing struct {
	Position int // 1-based
	Total    int
	Entrant  participant.Entrant
}

// RankEntrants orders entrants by survival: everyone still alive ahead of
// everyone eliminated, eliminated entrants ordered by how far they got (a
// later knockout gameweek places higher), name as the final tiebreak. The
// sort is stable so equal entrants keep their input order.
func RankEntrants(entrants []participant.Entrant, sched gameweek.Schedule) []participant.Entrant {
	ranked := append([]participant.Entrant(nil), entrants...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Alive != b.Alive {
			return a.Alive
		}
		if !a.Alive {
			ai := knockoutDepth(a, sched)
			bi := knockoutDepth(b, sched)
			if ai != bi {
				return ai > bi
			}
		}
		return strings.ToLower(a.Name()) < strings.ToLower(b.Name())
	})
	return ranked
}

// Placings assigns 1-based positions over the ranked order.
func Placings(entrants []participant.Entrant, sched gameweek.Schedule) []Placing {
	ranked := RankEntrants(entrants, sched)
	out := make([]Placing, len(ranked))
	for i, e := range ranked {
		out[i] = Placing{Position: i + 1, Total: len(ranked), Entrant: e}
	}
	return out
}

// RemainingAlive counts the approved entrants still in the competition.
func RemainingAlive(entrants []participant.Entrant) int {
	n := 0
	for _, e := range entrants {
		if e.Approved && e.Alive {
			n++
		}
	}
	return n
}

// knockoutDepth maps the knockout gameweek to its schedule position. An
// unknown or unscheduled knockout gameweek ranks below every known one.
func knockoutDepth(e participant.Entrant, sched gameweek.Schedule) int {
	if strings.TrimSpace(e.KnockedOutGameweek) == "" {
		return -1
	}
	return sched.IndexOf(e.KnockedOutGameweek)
}
