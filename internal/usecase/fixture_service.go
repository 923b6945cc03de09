package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/lmspool/last-man-standing/internal/domain/fixture"
	"github.com/lmspool/last-man-standing/internal/platform/logging"
)

// FixtureSource names one league feed.
type FixtureSource struct {
	League string
	URL    string
}

// MatchFeed fetches raw match records for one league feed URL.
type MatchFeed interface {
	FetchMatches(ctx context.Context, url string) ([]fixture.RawMatch, error)
}

// FixtureService loads every configured league feed, normalizes the records,
// drops fixtures before the competition start, and returns the survivors
// sorted by kickoff.
type FixtureService struct {
	feed      MatchFeed
	sources   []FixtureSource
	gameStart time.Time
	logger    *logging.Logger
}

func NewFixtureService(feed MatchFeed, sources []FixtureSource, gameStart time.Time, logger *logging.Logger) *FixtureService {
	if logger == nil {
		logger = logging.Default()
	}
	return &FixtureService{
		feed:      feed,
		sources:   append([]FixtureSource(nil), sources...),
		gameStart: gameStart,
		logger:    logger,
	}
}

// LoadAll fetches all league feeds concurrently. A feed that fails or returns
// garbage contributes zero fixtures; the load never aborts as a whole.
func (s *FixtureService) LoadAll(ctx context.Context) ([]fixture.Fixture, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureService.LoadAll")
	defer span.End()

	if s.feed == nil {
		return nil, fmt.Errorf("%w: match feed is not configured", ErrDependencyUnavailable)
	}

	var mu sync.Mutex
	loaded := make([]fixture.Fixture, 0, 64)

	workers := pool.New().WithMaxGoroutines(maxSourceConcurrency(len(s.sources)))
	for _, source := range s.sources {
		source := source
		workers.Go(func() {
			raws, err := s.feed.FetchMatches(ctx, source.URL)
			if err != nil {
				s.logger.WarnContext(ctx, "fixture feed failed", "league", source.League, "url", source.URL, "error", err)
				return
			}

			batch := make([]fixture.Fixture, 0, len(raws))
			for _, raw := range raws {
				if f, ok := fixture.Normalize(raw, source.League); ok {
					batch = append(batch, f)
				}
			}

			mu.Lock()
			loaded = append(loaded, batch...)
			mu.Unlock()
		})
	}
	workers.Wait()

	kept := loaded[:0]
	for _, f := range loaded {
		if f.Kickoff.Before(s.gameStart) {
			continue
		}
		kept = append(kept, f)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Kickoff.Before(kept[j].Kickoff)
	})

	return kept, nil
}

func maxSourceConcurrency(sources int) int {
	if sources < 1 {
		return 1
	}
	if sources > 4 {
		return 4
	}
	return sources
}
