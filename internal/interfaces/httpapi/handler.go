package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/lmspool/last-man-standing/internal/domain/participant"
	"github.com/lmspool/last-man-standing/internal/infrastructure/repository/memory"
	"github.com/lmspool/last-man-standing/internal/usecase"
)

// AdminRemote is the slice of the remote authority client behind admin routes.
type AdminRemote interface {
	AdminSetOutcome(ctx context.Context, email, gwID, outcome string) error
	AdminApprove(ctx context.Context, email string) error
	AdminPending(ctx context.Context) ([]participant.Entrant, error)
	AdminGameweekPicks(ctx context.Context, gwID string) ([]usecase.ReportRow, error)
}

type Handler struct {
	fixtureService     *usecase.FixtureService
	gameweekService    *usecase.GameweekService
	pickService        *usecase.PickService
	progressionService *usecase.ProgressionService
	entrantService     *usecase.EntrantService
	reconcileService   *usecase.ReconcileService
	refreshService     *usecase.RefreshService
	participants       *memory.ParticipantRepository
	picks              *memory.PickRepository
	schedule           *memory.ScheduleRepository
	admin              AdminRemote
	logger             *slog.Logger
	validator          *validator.Validate
}

func NewHandler(
	fixtureService *usecase.FixtureService,
	gameweekService *usecase.GameweekService,
	pickService *usecase.PickService,
	progressionService *usecase.ProgressionService,
	entrantService *usecase.EntrantService,
	reconcileService *usecase.ReconcileService,
	refreshService *usecase.RefreshService,
	participants *memory.ParticipantRepository,
	picks *memory.PickRepository,
	schedule *memory.ScheduleRepository,
	admin AdminRemote,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		fixtureService:     fixtureService,
		gameweekService:    gameweekService,
		pickService:        pickService,
		progressionService: progressionService,
		entrantService:     entrantService,
		reconcileService:   reconcileService,
		refreshService:     refreshService,
		participants:       participants,
		picks:              picks,
		schedule:           schedule,
		admin:              admin,
		logger:             logger,
		validator:          validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListGameweeks(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListGameweeks")
	defer span.End()

	gameweeks := h.schedule.Get(ctx).Gameweeks()
	items := make([]gameweekDTO, 0, len(gameweeks))
	for _, gw := range gameweeks {
		items = append(items, gameweekToDTO(gw))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListFixtures(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFixtures")
	defer span.End()

	items := make([]fixtureDTO, 0, 64)
	for _, gw := range h.schedule.Get(ctx).Gameweeks() {
		for _, f := range gw.Fixtures {
			items = append(items, fixtureToDTO(f))
		}
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ReloadFixtures(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ReloadFixtures")
	defer span.End()

	fixtures, err := h.fixtureService.LoadAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "fixture reload failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	schedule, err := h.gameweekService.BuildSchedule(ctx, fixtures)
	if err != nil {
		h.logger.ErrorContext(ctx, "schedule rebuild failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	h.schedule.Replace(ctx, schedule)

	writeSuccess(ctx, w, http.StatusOK, map[string]int{
		"fixtures":  len(fixtures),
		"gameweeks": schedule.Len(),
	})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetProfile")
	defer span.End()

	email := participant.NormalizeEmail(r.PathValue("email"))
	owner, exists, err := h.participants.Get(ctx, email)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if !exists {
		writeError(ctx, w, fmt.Errorf("%w: participant=%s", usecase.ErrNotFound, email))
		return
	}

	picks, err := h.picks.ListByEmail(ctx, email)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	used, err := h.pickService.UsedTeams(ctx, email)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	progression, err := h.progressionService.Current(ctx, email)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	usedTeams := make([]string, 0, len(used))
	for team := range used {
		usedTeams = append(usedTeams, team)
	}

	pickItems := make([]pickDTO, 0, len(picks))
	for _, p := range picks {
		pickItems = append(pickItems, pickToDTO(p))
	}

	writeSuccess(ctx, w, http.StatusOK, profileDTO{
		Email:              owner.Email,
		Name:               owner.Name(),
		Approved:           owner.Approved,
		Alive:              owner.Alive,
		KnockedOutGameweek: owner.KnockedOutGameweek,
		KnockedOutTeam:     owner.KnockedOutTeam,
		Picks:              pickItems,
		UsedTeams:          usedTeams,
		Progression:        progressionToDTO(progression),
	})
}

func (h *Handler) GetProgression(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetProgression")
	defer span.End()

	email := r.PathValue("email")
	progression, err := h.progressionService.Current(ctx, email)
	if err != nil {
		h.logger.WarnContext(ctx, "progression lookup failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, progressionToDTO(progression))
}

func (h *Handler) GetPlacing(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPlacing")
	defer span.End()

	email := r.PathValue("email")
	placing, ok := h.entrantService.PlacingFor(ctx, email)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: no placing for participant=%s", usecase.ErrNotFound, email))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, placingToDTO(placing))
}

func (h *Handler) RefreshProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RefreshProfile")
	defer span.End()

	email := r.PathValue("email")
	if err := h.refreshService.RefreshOnce(ctx, email); err != nil {
		h.logger.WarnContext(ctx, "profile refresh failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "refreshed"})
}

func (h *Handler) SubmitPick(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitPick")
	defer span.End()

	var req submitPickRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.pickService.Submit(ctx, req.Email, req.GameweekID, req.Team)
	if err != nil && result.State != usecase.SubmitApplied {
		h.logger.WarnContext(ctx, "pick submit failed", "gw_id", req.GameweekID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, submitResultToDTO(result))
}

func (h *Handler) ClearPick(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClearPick")
	defer span.End()

	var req clearPickRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.pickService.Clear(ctx, req.Email, req.GameweekID); err != nil {
		h.logger.WarnContext(ctx, "pick clear failed", "gw_id", req.GameweekID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *Handler) SetEditing(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetEditing")
	defer span.End()

	var req setEditingRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	h.refreshService.SetEditing(req.Editing)
	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"editing": req.Editing})
}

func (h *Handler) ListEntrants(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListEntrants")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, bucketsToDTO(h.entrantService.Buckets(ctx)))
}

func (h *Handler) CountRemaining(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CountRemaining")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]int{"remaining": h.entrantService.Remaining(ctx)})
}

func (h *Handler) ListPlacings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPlacings")
	defer span.End()

	placings := h.entrantService.Placings(ctx)
	items := make([]placingDTO, 0, len(placings))
	for _, p := range placings {
		items = append(items, placingToDTO(p))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetReport")
	defer span.End()

	reports := h.reconcileService.Report(ctx)
	items := make([]gameweekReportDTO, 0, len(reports))
	for _, report := range reports {
		items = append(items, gameweekReportToDTO(report))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Reconcile")
	defer span.End()

	var req reconcileRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	var result usecase.ReconcileResult
	var err error
	if req.Full {
		result, err = h.reconcileService.ReconcileFull(ctx)
	} else {
		result, err = h.reconcileService.ReconcileIncremental(ctx)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "reconciliation failed", "full", req.Full, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, reconcileResultToDTO(result))
}

func (h *Handler) AdminSetOutcome(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdminSetOutcome")
	defer span.End()

	var req adminSetOutcomeRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.admin.AdminSetOutcome(ctx, req.Email, req.GameweekID, req.Outcome); err != nil {
		h.logger.WarnContext(ctx, "set outcome failed", "gw_id", req.GameweekID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (h *Handler) AdminApprove(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdminApprove")
	defer span.End()

	var req adminApproveRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.admin.AdminApprove(ctx, req.Email); err != nil {
		h.logger.WarnContext(ctx, "approve failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "approved"})
}

func (h *Handler) AdminListPending(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdminListPending")
	defer span.End()

	pending, err := h.admin.AdminPending(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list pending failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]entrantDTO, 0, len(pending))
	for _, e := range pending {
		items = append(items, entrantToDTO(e))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) AdminListGameweekPicks(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdminListGameweekPicks")
	defer span.End()

	gwID := strings.TrimSpace(r.PathValue("gwID"))
	rows, err := h.admin.AdminGameweekPicks(ctx, gwID)
	if err != nil {
		h.logger.WarnContext(ctx, "list gameweek picks failed", "gw_id", gwID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]reportRowDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, reportRowDTO{
			Email:      row.Email,
			Name:       row.Name,
			GameweekID: row.GameweekID,
			Team:       row.Team,
			Outcome:    row.Outcome,
		})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) decodeRequest(ctx context.Context, r *http.Request, target any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return h.validateRequest(ctx, target)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
