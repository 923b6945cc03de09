package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/lmspool/last-man-standing/internal/domain/participant"
	"github.com/lmspool/last-man-standing/internal/infrastructure/repository/memory"
	"github.com/lmspool/last-man-standing/internal/platform/logging"
)

// EntrantBuckets is the competition-wide entrant listing, split the way the
// view presents it. Before the first deadline the split is approval state;
// once the competition has started it becomes survival state.
type EntrantBuckets struct {
	Started bool
	// Pre-start buckets.
	Approved        []participant.Entrant
	PendingApproval []participant.Entrant
	// Post-start buckets.
	Alive []participant.Entrant
	Out   []participant.Entrant
}

// EntrantService caches the latest entrant snapshot and suppresses no-op
// updates: a snapshot that serializes to the same bytes as the previous one
// reports unchanged so callers skip re-rendering.
type EntrantService struct {
	schedule *memory.ScheduleRepository
	now      func() time.Time
	logger   *logging.Logger

	mu        sync.Mutex
	entrants  []participant.Entrant
	signature string
}

func NewEntrantService(schedule *memory.ScheduleRepository, logger *logging.Logger) *EntrantService {
	if logger == nil {
		logger = logging.Default()
	}
	return &EntrantService{
		schedule: schedule,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *EntrantService) SetNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Update replaces the cached snapshot. Returns false when the snapshot is
// byte-identical to the cached one and nothing was replaced.
func (s *EntrantService) Update(ctx context.Context, entrants []participant.Entrant) bool {
	signature := entrantSignature(entrants)

	s.mu.Lock()
	defer s.mu.Unlock()

	if signature != "" && signature == s.signature {
		return false
	}
	s.entrants = append([]participant.Entrant(nil), entrants...)
	s.signature = signature
	return true
}

// Snapshot returns the cached entrant list.
func (s *EntrantService) Snapshot(ctx context.Context) []participant.Entrant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]participant.Entrant(nil), s.entrants...)
}

// Buckets splits the cached entrants for presentation. The bucket scheme
// switches once the first gameweek's deadline has passed.
func (s *EntrantService) Buckets(ctx context.Context) EntrantBuckets {
	entrants := s.Snapshot(ctx)
	started := s.schedule.Get(ctx).Started(s.now())

	buckets := EntrantBuckets{Started: started}
	for _, e := range entrants {
		if !started {
			if e.Approved {
				buckets.Approved = append(buckets.Approved, e)
			} else {
				buckets.PendingApproval = append(buckets.PendingApproval, e)
			}
			continue
		}
		if !e.Approved {
			continue
		}
		if e.Alive {
			buckets.Alive = append(buckets.Alive, e)
		} else {
			buckets.Out = append(buckets.Out, e)
		}
	}
	return buckets
}

// Remaining counts the approved entrants still alive.
func (s *EntrantService) Remaining(ctx context.Context) int {
	return RemainingAlive(s.Snapshot(ctx))
}

// Placings ranks the cached entrants.
func (s *EntrantService) Placings(ctx context.Context) []Placing {
	return Placings(s.Snapshot(ctx), s.schedule.Get(ctx))
}

// PlacingFor resolves one participant's placing from the cached snapshot.
func (s *EntrantService) PlacingFor(ctx context.Context, email string) (Placing, bool) {
	email = participant.NormalizeEmail(email)
	for _, p := range s.Placings(ctx) {
		if participant.NormalizeEmail(p.Entrant.Email) == email {
			return p, true
		}
	}
	return Placing{}, false
}

// entrantSignature is the change detector. An empty string means signing
// failed and the update must go through.
func entrantSignature(entrants []participant.Entrant) string {
	raw, err := sonic.Marshal(entrants)
	if err != nil {
		return ""
	}
	return string(raw)
}
