package participant

import "strings"

// Participant is the session owner's view of one entrant, picks included.
// Alive/eliminated is authoritative remote state; local derivation from pick
// outcomes backs the optimistic UI only.
type Participant struct {
	Email              string
	FirstName          string
	LastName           string
	Approved           bool
	Alive              bool
	KnockedOutGameweek string
	KnockedOutTeam     string
}

func (p Participant) Name() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// Entrant is one row of the competition-wide entrant listing.
type Entrant struct {
	Email              string
	FirstName          string
	LastName           string
	Approved           bool
	Alive              bool
	KnockedOutGameweek string
	KnockedOutTeam     string
	SubmittedForGw     bool
}

func (e Entrant) Name() string {
	return strings.TrimSpace(strings.TrimSpace(e.FirstName) + " " + strings.TrimSpace(e.LastName))
}

// NormalizeEmail folds an email for use as a cache or ledger key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
