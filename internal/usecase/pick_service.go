package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lmspool/last-man-standing/internal/domain/fixture"
	"github.com/lmspool/last-man-standing/internal/domain/gameweek"
	"github.com/lmspool/last-man-standing/internal/domain/participant"
	"github.com/lmspool/last-man-standing/internal/domain/pick"
	"github.com/lmspool/last-man-standing/internal/infrastructure/repository/memory"
	"github.com/lmspool/last-man-standing/internal/platform/logging"
)

// SubmitState tells the caller how far an optimistic submission got.
type SubmitState string

const (
	// SubmitApplied means the local ledger was updated but the remote
	// confirmation has not succeeded (yet). The local state stands.
	SubmitApplied SubmitState = "APPLIED_PENDING_CONFIRMATION"
	// SubmitConfirmed means the remote authority accepted the pick.
	SubmitConfirmed SubmitState = "CONFIRMED"
	// SubmitReverted means the remote authority explicitly rejected the pick
	// and the optimistic local change was rolled back.
	SubmitReverted SubmitState = "REVERTED"
)

type SubmitResult struct {
	State SubmitState
	Pick  pick.Pick
}

// PickRemote is the slice of the remote authority the ledger writes through.
type PickRemote interface {
	SubmitPick(ctx context.Context, email, gwID, team string) error
	ClearPick(ctx context.Context, email, gwID string) error
}

// RefreshInvalidator supersedes any background pass already in flight. The
// ledger calls it on every local write so a snapshot fetched before the write
// can never land on top of it.
type RefreshInvalidator interface {
	Invalidate()
}

// PickService validates pick attempts against the eligibility rules and keeps
// the local ledger consistent with the optimistic-update ordering: local state
// changes before the confirming round-trip resolves and is only rolled back on
// an explicit remote rejection.
type PickService struct {
	participants *memory.ParticipantRepository
	picks        *memory.PickRepository
	schedule     *memory.ScheduleRepository
	remote       PickRemote
	refresh      RefreshInvalidator
	now          func() time.Time
	logger       *logging.Logger
}

func NewPickService(
	participants *memory.ParticipantRepository,
	picks *memory.PickRepository,
	schedule *memory.ScheduleRepository,
	remote PickRemote,
	logger *logging.Logger,
) *PickService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PickService{
		participants: participants,
		picks:        picks,
		schedule:     schedule,
		remote:       remote,
		now:          time.Now,
		logger:       logger,
	}
}

// SetNow overrides the clock; tests drive deadlines deterministically.
func (s *PickService) SetNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SetRefreshGuard wires the background refresh loop into the ledger's write
// path. Set after construction because the refresh loop itself depends on
// this service.
func (s *PickService) SetRefreshGuard(guard RefreshInvalidator) {
	s.refresh = guard
}

func (s *PickService) supersedeRefresh() {
	if s.refresh != nil {
		s.refresh.Invalidate()
	}
}

// Submit validates and applies a pick attempt. Each precondition failure maps
// to its own sentinel so callers can report the exact reason.
func (s *PickService) Submit(ctx context.Context, email, gwID, team string) (SubmitResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PickService.Submit")
	defer span.End()

	email = participant.NormalizeEmail(email)
	gwID = gameweek.NormalizeID(gwID)
	team = strings.TrimSpace(team)
	if email == "" || gwID == "" || team == "" {
		return SubmitResult{}, fmt.Errorf("%w: email, gameweek id and team are required", ErrInvalidInput)
	}

	prior, hadPrior, err := s.validateSubmit(ctx, email, gwID, team)
	if err != nil {
		return SubmitResult{}, err
	}

	item := pick.Pick{
		Email:       email,
		GameweekID:  gwID,
		Team:        team,
		Outcome:     pick.OutcomePending,
		SubmittedAt: s.now().UTC(),
	}

	// Optimistic apply: the ledger reflects the pick before the remote
	// round-trip resolves.
	if err := s.picks.Upsert(ctx, item); err != nil {
		return SubmitResult{}, fmt.Errorf("upsert pick: %w", err)
	}
	s.supersedeRefresh()

	if s.remote == nil {
		return SubmitResult{State: SubmitApplied, Pick: item}, nil
	}

	if err := s.remote.SubmitPick(ctx, email, gwID, team); err != nil {
		if errors.Is(err, ErrRemoteRejected) {
			s.revertPick(ctx, email, gwID, prior, hadPrior)
			return SubmitResult{State: SubmitReverted}, fmt.Errorf("submit pick gw=%s: %w", gwID, err)
		}
		// Transient failure: the optimistic change stands and the caller is
		// told confirmation is still outstanding.
		s.logger.WarnContext(ctx, "pick submit not confirmed", "gw_id", gwID, "error", err)
		return SubmitResult{State: SubmitApplied, Pick: item}, fmt.Errorf("confirm pick gw=%s: %w", gwID, err)
	}

	return SubmitResult{State: SubmitConfirmed, Pick: item}, nil
}

func (s *PickService) validateSubmit(ctx context.Context, email, gwID, team string) (pick.Pick, bool, error) {
	owner, exists, err := s.participants.Get(ctx, email)
	if err != nil {
		return pick.Pick{}, false, fmt.Errorf("get participant: %w", err)
	}
	if !exists {
		return pick.Pick{}, false, fmt.Errorf("%w: participant=%s", ErrNotFound, email)
	}
	if !owner.Approved {
		return pick.Pick{}, false, fmt.Errorf("%w: participant=%s", ErrNotApproved, email)
	}

	gw, ok := s.schedule.Get(ctx).ByID(gwID)
	if !ok {
		return pick.Pick{}, false, fmt.Errorf("%w: gameweek=%s", ErrNotFound, gwID)
	}
	if !s.now().Before(gw.Deadline) {
		return pick.Pick{}, false, fmt.Errorf("%w: gameweek=%s", ErrDeadlinePassed, gwID)
	}
	if !gw.HasTeam(team) {
		return pick.Pick{}, false, fmt.Errorf("%w: team=%s gameweek=%s", ErrTeamNotInGameweek, team, gwID)
	}

	prior, hadPrior, err := s.picks.GetForGameweek(ctx, email, gwID)
	if err != nil {
		return pick.Pick{}, false, fmt.Errorf("get existing pick: %w", err)
	}

	used, err := s.UsedTeams(ctx, email)
	if err != nil {
		return pick.Pick{}, false, err
	}
	if _, barred := used[fixture.NormalizeTeam(team)]; barred {
		// Resubmitting the same team for the same gameweek while editing is
		// allowed even though that team is in the used set.
		sameGwResubmission := hadPrior && fixture.NormalizeTeam(prior.Team) == fixture.NormalizeTeam(team)
		if !sameGwResubmission {
			return pick.Pick{}, false, fmt.Errorf("%w: team=%s", ErrTeamAlreadyUsed, team)
		}
	}

	return prior, hadPrior, nil
}

func (s *PickService) revertPick(ctx context.Context, email, gwID string, prior pick.Pick, hadPrior bool) {
	defer s.supersedeRefresh()
	if hadPrior {
		if err := s.picks.Upsert(ctx, prior); err != nil {
			s.logger.ErrorContext(ctx, "restore prior pick failed", "gw_id", gwID, "error", err)
		}
		return
	}
	if err := s.picks.Delete(ctx, email, gwID); err != nil {
		s.logger.ErrorContext(ctx, "remove reverted pick failed", "gw_id", gwID, "error", err)
	}
}

// Clear removes a pending pick ahead of a fresh submission. Only valid before
// the deadline and only on a pick that has not been settled.
func (s *PickService) Clear(ctx context.Context, email, gwID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.PickService.Clear")
	defer span.End()

	email = participant.NormalizeEmail(email)
	gwID = gameweek.NormalizeID(gwID)
	if email == "" || gwID == "" {
		return fmt.Errorf("%w: email and gameweek id are required", ErrInvalidInput)
	}

	existing, exists, err := s.picks.GetForGameweek(ctx, email, gwID)
	if err != nil {
		return fmt.Errorf("get pick: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: gameweek=%s", ErrNoPickToEdit, gwID)
	}
	if existing.Outcome.Resolved() {
		return fmt.Errorf("%w: gameweek=%s outcome=%s", ErrGameweekSettled, gwID, existing.Outcome)
	}

	gw, ok := s.schedule.Get(ctx).ByID(gwID)
	if !ok {
		return fmt.Errorf("%w: gameweek=%s", ErrNotFound, gwID)
	}
	if !s.now().Before(gw.Deadline) {
		return fmt.Errorf("%w: gameweek=%s", ErrDeadlinePassed, gwID)
	}

	if err := s.picks.Delete(ctx, email, gwID); err != nil {
		return fmt.Errorf("delete pick: %w", err)
	}
	s.supersedeRefresh()

	if s.remote != nil {
		if err := s.remote.ClearPick(ctx, email, gwID); err != nil {
			if errors.Is(err, ErrRemoteRejected) {
				if restoreErr := s.picks.Upsert(ctx, existing); restoreErr != nil {
					s.logger.ErrorContext(ctx, "restore cleared pick failed", "gw_id", gwID, "error", restoreErr)
				}
				s.supersedeRefresh()
				return fmt.Errorf("clear pick gw=%s: %w", gwID, err)
			}
			s.logger.WarnContext(ctx, "pick clear not confirmed", "gw_id", gwID, "error", err)
			return fmt.Errorf("confirm clear gw=%s: %w", gwID, err)
		}
	}

	return nil
}

// IngestAuthoritative replaces the participant's local state with a remote
// snapshot. Outcomes are normalized here and nowhere else; the engine never
// infers a result from fixture data.
func (s *PickService) IngestAuthoritative(ctx context.Context, owner participant.Participant, picks []pick.Pick) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.PickService.IngestAuthoritative")
	defer span.End()

	owner.Email = participant.NormalizeEmail(owner.Email)
	if owner.Email == "" {
		return fmt.Errorf("%w: participant email is required", ErrInvalidInput)
	}

	normalized := make([]pick.Pick, 0, len(picks))
	for _, p := range picks {
		p.GameweekID = gameweek.NormalizeID(p.GameweekID)
		p.Outcome = pick.NormalizeOutcome(string(p.Outcome))
		normalized = append(normalized, p)
	}

	if err := s.participants.Upsert(ctx, owner); err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	if err := s.picks.ReplaceAll(ctx, owner.Email, normalized); err != nil {
		return fmt.Errorf("replace picks: %w", err)
	}
	return nil
}

// UsedTeams derives the participant's barred teams: only picks that produced
// a WIN block reuse.
func (s *PickService) UsedTeams(ctx context.Context, email string) (map[string]struct{}, error) {
	picks, err := s.picks.ListByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list picks: %w", err)
	}
	return pick.UsedTeams(picks), nil
}
