package usecase

import (
	"testing"
	"time"

	"github.com/lmspool/last-man-standing/internal/domain/gameweek"
	"github.com/lmspool/last-man-standing/internal/domain/participant"
	"github.com/lmspool/last-man-standing/internal/infrastructure/repository/memory"
	"github.com/lmspool/last-man-standing/internal/platform/logging"
)

func newEntrantEnv(t *testing.T) (*EntrantService, *memory.ScheduleRepository) {
	t.Helper()

	schedule := memory.NewScheduleRepository()
	gwSvc := NewGameweekService(nil, time.Hour, logging.NewNop())
	schedule.Replace(t.Context(), gameweek.NewSchedule(gwSvc.Build(memory.SeedFixtures())))

	return NewEntrantService(schedule, logging.NewNop()), schedule
}

func TestEntrantService_Update_SuppressesIdenticalSnapshots(t *testing.T) {
	svc, _ := newEntrantEnv(t)

	entrants := []participant.Entrant{
		{Email: "alice@example.com", FirstName: "Alice", Approved: true, Alive: true},
		{Email: "bob@example.com", FirstName: "Bob", Approved: true, Alive: true},
	}

	if !svc.Update(t.Context(), entrants) {
		t.Fatalf("first snapshot must apply")
	}
	if svc.Update(t.Context(), entrants) {
		t.Fatalf("identical snapshot must be suppressed")
	}

	entrants[1].Alive = false
	if !svc.Update(t.Context(), entrants) {
		t.Fatalf("changed snapshot must apply")
	}

	snap := svc.Snapshot(t.Context())
	if len(snap) != 2 || snap[1].Alive {
		t.Fatalf("snapshot not replaced: %+v", snap)
	}
}

func TestEntrantService_Buckets_PreStart(t *testing.T) {
	svc, _ := newEntrantEnv(t)
	svc.SetNow(func() time.Time {
		return time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
	})

	svc.Update(t.Context(), []participant.Entrant{
		{Email: "alice@example.com", Approved: true, Alive: true},
		{Email: "bob@example.com", Approved: false, Alive: true},
	})

	buckets := svc.Buckets(t.Context())

	if buckets.Started {
		t.Fatalf("competition should not have started")
	}
	if len(buckets.Approved) != 1 || len(buckets.PendingApproval) != 1 {
		t.Fatalf("unexpected pre-start buckets: %+v", buckets)
	}
	if len(buckets.Alive) != 0 || len(buckets.Out) != 0 {
		t.Fatalf("post-start buckets must be empty before the first deadline")
	}
}

func TestEntrantService_Buckets_PostStart(t *testing.T) {
	svc, _ := newEntrantEnv(t)
	svc.SetNow(func() time.Time {
		return time.Date(2026, time.September, 5, 12, 0, 0, 0, time.UTC)
	})

	svc.Update(t.Context(), []participant.Entrant{
		{Email: "alice@example.com", Approved: true, Alive: true},
		{Email: "bob@example.com", Approved: true, Alive: false, KnockedOutGameweek: "GW1"},
		{Email: "carol@example.com", Approved: false, Alive: true},
	})

	buckets := svc.Buckets(t.Context())

	if !buckets.Started {
		t.Fatalf("competition should have started")
	}
	if len(buckets.Alive) != 1 || buckets.Alive[0].Email != "alice@example.com" {
		t.Fatalf("unexpected alive bucket: %+v", buckets.Alive)
	}
	if len(buckets.Out) != 1 || buckets.Out[0].Email != "bob@example.com" {
		t.Fatalf("unexpected out bucket: %+v", buckets.Out)
	}
	// Unapproved entrants vanish once the competition is under way.
	if len(buckets.Approved) != 0 || len(buckets.PendingApproval) != 0 {
		t.Fatalf("approval buckets must be empty post-start: %+v", buckets)
	}
}

func TestEntrantService_PlacingFor(t *testing.T) {
	svc, _ := newEntrantEnv(t)

	svc.Update(t.Context(), []participant.Entrant{
		{Email: "alice@example.com", FirstName: "Alice", Approved: true, Alive: true},
		{Email: "bob@example.com", FirstName: "Bob", Approved: true, Alive: false, KnockedOutGameweek: "GW1"},
	})

	placing, ok := svc.PlacingFor(t.Context(), "Bob@Example.com")
	if !ok {
		t.Fatalf("bob must have a placing")
	}
	if placing.Position != 2 || placing.Total != 2 {
		t.Fatalf("unexpected placing: %+v", placing)
	}

	if _, ok := svc.PlacingFor(t.Context(), "nobody@example.com"); ok {
		t.Fatalf("unknown entrant must not resolve a placing")
	}

	if got := svc.Remaining(t.Context()); got != 1 {
		t.Fatalf("Remaining = %d, want 1", got)
	}
}
