package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lmspool/last-man-standing/internal/domain/participant"
	"github.com/lmspool/last-man-standing/internal/domain/pick"
	"github.com/lmspool/last-man-standing/internal/platform/logging"
)

// ProfileSnapshot is the authoritative remote view of one participant.
type ProfileSnapshot struct {
	Owner participant.Participant
	Picks []pick.Pick
}

// StateRemote is the slice of the remote authority the refresh loop reads.
type StateRemote interface {
	FetchProfile(ctx context.Context, email string) (ProfileSnapshot, error)
	FetchEntrants(ctx context.Context) ([]participant.Entrant, error)
}

// RefreshService polls the remote authority and folds the responses into
// local state. Three rules keep it safe to run alongside interactive use:
// a pass never starts while another is in flight, a pass is skipped entirely
// while an edit is in progress, and a pass whose sequence token has been
// superseded discards its responses instead of applying them.
type RefreshService struct {
	remote   StateRemote
	picks    *PickService
	entrants *EntrantService
	interval time.Duration
	logger   *logging.Logger

	seq      atomic.Uint64
	editing  atomic.Bool
	inFlight atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRefreshService(
	remote StateRemote,
	picks *PickService,
	entrants *EntrantService,
	interval time.Duration,
	logger *logging.Logger,
) *RefreshService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RefreshService{
		remote:   remote,
		picks:    picks,
		entrants: entrants,
		interval: interval,
		logger:   logger,
	}
}

// SetEditing raises or clears the edit-in-progress flag. While raised,
// refresh passes are skipped so a half-typed submission is never clobbered
// by a background update.
func (s *RefreshService) SetEditing(editing bool) {
	s.editing.Store(editing)
}

// Editing reports the suppression flag.
func (s *RefreshService) Editing() bool {
	return s.editing.Load()
}

// Invalidate bumps the sequence token so any in-flight pass discards its
// responses. Called after a local mutation the pass would otherwise undo.
func (s *RefreshService) Invalidate() {
	s.seq.Add(1)
}

// Start launches the periodic loop for one session. A second Start stops the
// previous loop first.
func (s *RefreshService) Start(ctx context.Context, email string) {
	s.Stop()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if err := s.RefreshOnce(loopCtx, email); err != nil {
					s.logger.WarnContext(loopCtx, "background refresh failed", "error", err)
				}
			}
		}
	}()
}

// Stop halts the loop and waits for the current pass to wind down.
func (s *RefreshService) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// RefreshOnce runs a single pass. Transient fetch failures keep last-known-good
// state; a skipped pass (editing, overlap, superseded) returns nil.
func (s *RefreshService) RefreshOnce(ctx context.Context, email string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshService.RefreshOnce")
	defer span.End()

	if s.remote == nil {
		return fmt.Errorf("%w: state remote is not configured", ErrDependencyUnavailable)
	}
	if s.editing.Load() {
		return nil
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil
	}
	defer s.inFlight.Store(false)

	token := s.seq.Add(1)

	email = participant.NormalizeEmail(email)
	var profileErr, entrantsErr error

	if email != "" && s.picks != nil {
		snapshot, err := s.remote.FetchProfile(ctx, email)
		switch {
		case err != nil:
			profileErr = fmt.Errorf("fetch profile: %w", err)
		case s.seq.Load() != token:
			return nil
		default:
			if err := s.picks.IngestAuthoritative(ctx, snapshot.Owner, snapshot.Picks); err != nil {
				profileErr = err
			}
		}
	}

	if s.entrants != nil {
		entrants, err := s.remote.FetchEntrants(ctx)
		switch {
		case err != nil:
			entrantsErr = fmt.Errorf("fetch entrants: %w", err)
		case s.seq.Load() != token:
			return nil
		default:
			s.entrants.Update(ctx, entrants)
		}
	}

	if profileErr != nil {
		return profileErr
	}
	return entrantsErr
}
