package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/lmspool/last-man-standing/internal/domain/gameweek"
	"github.com/lmspool/last-man-standing/internal/domain/participant"
	"github.com/lmspool/last-man-standing/internal/infrastructure/repository/memory"
	"github.com/lmspool/last-man-standing/internal/platform/logging"
	"github.com/lmspool/last-man-standing/internal/usecase"
)

type fakeAdminRemote struct {
	outcomes  int
	approvals int
	pending   []participant.Entrant
}

func (f *fakeAdminRemote) AdminSetOutcome(_ context.Context, _, _, _ string) error {
	f.outcomes++
	return nil
}

func (f *fakeAdminRemote) AdminApprove(_ context.Context, _ string) error {
	f.approvals++
	return nil
}

func (f *fakeAdminRemote) AdminPending(_ context.Context) ([]participant.Entrant, error) {
	return f.pending, nil
}

func (f *fakeAdminRemote) AdminGameweekPicks(_ context.Context, _ string) ([]usecase.ReportRow, error) {
	return nil, nil
}

type handlerEnv struct {
	router http.Handler
	admin  *fakeAdminRemote
}

func newHandlerEnv(t *testing.T) handlerEnv {
	t.Helper()

	participants := memory.NewParticipantRepository()
	picks := memory.NewPickRepository()
	schedule := memory.NewScheduleRepository()

	nop := logging.NewNop()
	gwSvc := usecase.NewGameweekService(nil, time.Hour, nop)
	schedule.Replace(t.Context(), gameweek.NewSchedule(gwSvc.Build(memory.SeedFixtures())))

	if err := participants.Upsert(t.Context(), participant.Participant{
		Email: "alice@example.com", FirstName: "Alice", Approved: true, Alive: true,
	}); err != nil {
		t.Fatalf("seed participant: %v", err)
	}

	fixtureSvc := usecase.NewFixtureService(nil, nil, time.Time{}, nop)
	pickSvc := usecase.NewPickService(participants, picks, schedule, nil, nop)
	pickSvc.SetNow(func() time.Time {
		return time.Date(2026, time.August, 10, 12, 0, 0, 0, time.UTC)
	})
	progressionSvc := usecase.NewProgressionService(participants, picks, schedule)
	entrantSvc := usecase.NewEntrantService(schedule, nop)
	reconcileSvc := usecase.NewReconcileService(nil, schedule, nil, 2, nop)
	refreshSvc := usecase.NewRefreshService(nil, pickSvc, entrantSvc, time.Minute, nop)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	admin := &fakeAdminRemote{}
	handler := NewHandler(
		fixtureSvc, gwSvc, pickSvc, progressionSvc, entrantSvc,
		reconcileSvc, refreshSvc,
		participants, picks, schedule,
		admin, logger,
	)

	return handlerEnv{
		router: NewRouter(handler, logger, []string{"*"}, "admin-secret"),
		admin:  admin,
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return body
}

func TestRouter_Healthz(t *testing.T) {
	env := newHandlerEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestRouter_SubmitPickFlow(t *testing.T) {
	env := newHandlerEnv(t)

	payload := `{"email":"alice@example.com","gwId":"GW1","team":"Arsenal"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/picks", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if data["state"] != string(usecase.SubmitApplied) {
		t.Fatalf("unexpected submit state: %v", data["state"])
	}

	// The profile now reflects the optimistic pick.
	req = httptest.NewRequest(http.MethodGet, "/v1/profile/alice@example.com", nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body = decodeEnvelope(t, rec)
	data, _ = body["data"].(map[string]any)
	picks, _ := data["picks"].([]any)
	if len(picks) != 1 {
		t.Fatalf("expected one pick on the profile, got %v", data["picks"])
	}
}

func TestRouter_SubmitPick_ValidationError(t *testing.T) {
	env := newHandlerEnv(t)

	payload := `{"email":"not-an-email","gwId":"GW1","team":"Arsenal"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/picks", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestRouter_SubmitPick_UnknownFieldRejected(t *testing.T) {
	env := newHandlerEnv(t)

	payload := `{"email":"alice@example.com","gwId":"GW1","team":"Arsenal","bogus":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/picks", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestRouter_ProfileNotFound(t *testing.T) {
	env := newHandlerEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/profile/nobody@example.com", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestRouter_AdminRouteRequiresKey(t *testing.T) {
	env := newHandlerEnv(t)

	payload := `{"email":"bob@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/approve", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/admin/approve", strings.NewReader(payload))
	req.Header.Set("X-Admin-Key", "admin-secret")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 with key, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.admin.approvals != 1 {
		t.Fatalf("admin remote not called")
	}
}

func TestRouter_AdminSetOutcome_ValidatesOutcome(t *testing.T) {
	env := newHandlerEnv(t)

	payload := `{"email":"alice@example.com","gwId":"GW1","outcome":"DRAW"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/outcome", strings.NewReader(payload))
	req.Header.Set("X-Admin-Key", "admin-secret")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for bad outcome, got %d", rec.Code)
	}
	if env.admin.outcomes != 0 {
		t.Fatalf("invalid outcome must not reach the remote")
	}
}

func TestRouter_ListGameweeks(t *testing.T) {
	env := newHandlerEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/gameweeks", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	items, _ := body["data"].([]any)
	if len(items) != 3 {
		t.Fatalf("expected 3 gameweeks, got %d", len(items))
	}
}
