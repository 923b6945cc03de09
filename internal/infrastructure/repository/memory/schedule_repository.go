package memory

import (
	"context"
	"sync"

	"github.com/lmspool/last-man-standing/internal/domain/gameweek"
)

// ScheduleRepository holds the current gameweek schedule. The schedule is
// replaced wholesale on every fixture reload and never mutated in place.
type ScheduleRepository struct {
	mu       sync.RWMutex
	schedule gameweek.Schedule
}

func NewScheduleRepository() *ScheduleRepository {
	return &ScheduleRepository{}
}

func (r *ScheduleRepository) Get(_ context.Context) gameweek.Schedule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.schedule
}

func (r *ScheduleRepository) Replace(_ context.Context, schedule gameweek.Schedule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.schedule = schedule
}
