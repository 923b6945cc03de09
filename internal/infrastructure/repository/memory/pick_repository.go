package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/lmspool/last-man-standing/internal/domain/gameweek"
	"github.com/lmspool/last-man-standing/internal/domain/participant"
	"github.com/lmspool/last-man-standing/internal/domain/pick"
)

// PickRepository holds each participant's pick history, one pick per
// gameweek. An upsert for an existing (participant, gameweek) pair replaces
// the prior pick.
type PickRepository struct {
	mu      sync.RWMutex
	byEmail map[string]map[string]pick.Pick
}

func NewPickRepository() *PickRepository {
	return &PickRepository{byEmail: make(map[string]map[string]pick.Pick)}
}

func pickKey(email, gwID string) (string, string) {
	return participant.NormalizeEmail(email), gameweek.NormalizeID(gwID)
}

func (r *PickRepository) GetForGameweek(_ context.Context, email, gwID string) (pick.Pick, bool, error) {
	emailKey, gwKey := pickKey(email, gwID)

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byEmail[emailKey][gwKey]
	return item, ok, nil
}

// ListByEmail returns the participant's picks ordered by submission time.
// Callers that need schedule order re-sort against the schedule index.
func (r *PickRepository) ListByEmail(_ context.Context, email string) ([]pick.Pick, error) {
	emailKey := participant.NormalizeEmail(email)

	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]pick.Pick, 0, len(r.byEmail[emailKey]))
	for _, item := range r.byEmail[emailKey] {
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SubmittedAt.Before(items[j].SubmittedAt)
	})
	return items, nil
}

func (r *PickRepository) Upsert(_ context.Context, item pick.Pick) error {
	emailKey, gwKey := pickKey(item.Email, item.GameweekID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byEmail[emailKey] == nil {
		r.byEmail[emailKey] = make(map[string]pick.Pick)
	}
	item.Email = emailKey
	item.GameweekID = gwKey
	r.byEmail[emailKey][gwKey] = item
	return nil
}

func (r *PickRepository) Delete(_ context.Context, email, gwID string) error {
	emailKey, gwKey := pickKey(email, gwID)

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byEmail[emailKey], gwKey)
	return nil
}

// ReplaceAll swaps a participant's whole pick history for an authoritative
// snapshot from the remote service.
func (r *PickRepository) ReplaceAll(_ context.Context, email string, items []pick.Pick) error {
	emailKey := participant.NormalizeEmail(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]pick.Pick, len(items))
	for _, item := range items {
		item.Email = emailKey
		item.GameweekID = gameweek.NormalizeID(item.GameweekID)
		next[item.GameweekID] = item
	}
	r.byEmail[emailKey] = next
	return nil
}

func (r *PickRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byEmail = make(map[string]map[string]pick.Pick)
	return nil
}
