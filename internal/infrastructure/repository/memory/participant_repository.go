package memory

import (
	"context"
	"sync"

	"github.com/lmspool/last-man-standing/internal/domain/participant"
)

// ParticipantRepository is the session-scoped participant store. It is
// created at session start and cleared at session end; it is never shared
// between sessions.
type ParticipantRepository struct {
	mu      sync.RWMutex
	byEmail map[string]participant.Participant
}

func NewParticipantRepository() *ParticipantRepository {
	return &ParticipantRepository{byEmail: make(map[string]participant.Participant)}
}

func (r *ParticipantRepository) Get(_ context.Context, email string) (participant.Participant, bool, error) {
	key := participant.NormalizeEmail(email)

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byEmail[key]
	return item, ok, nil
}

func (r *ParticipantRepository) Upsert(_ context.Context, item participant.Participant) error {
	key := participant.NormalizeEmail(item.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byEmail[key] = item
	return nil
}

func (r *ParticipantRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byEmail = make(map[string]participant.Participant)
	return nil
}
