package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// Pick validation rejections. Each one is surfaced to the caller as its
	// own reason, never collapsed into a generic failure.
	ErrNotApproved       = errors.New("participant is not approved")
	ErrDeadlinePassed    = errors.New("deadline has passed")
	ErrTeamNotInGameweek = errors.New("team is not in this gameweek")
	ErrTeamAlreadyUsed   = errors.New("team already used in a previous gameweek")
	ErrNoPickToEdit      = errors.New("no pick to edit")
	ErrGameweekSettled   = errors.New("gameweek is already settled")

	// ErrRemoteRejected marks an explicit rejection from the remote
	// authority, as opposed to a transient fetch failure.
	ErrRemoteRejected = errors.New("remote authority rejected the request")
)
