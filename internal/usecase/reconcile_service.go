package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/lmspool/last-man-standing/internal/domain/gameweek"
	"github.com/lmspool/last-man-standing/internal/domain/participant"
	"github.com/lmspool/last-man-standing/internal/domain/pick"
	"github.com/lmspool/last-man-standing/internal/infrastructure/repository/memory"
	"github.com/lmspool/last-man-standing/internal/platform/logging"
)

const defaultReportConcurrency = 4

// ReportRow is one remote report line: a participant's pick for one gameweek
// as the remote authority currently records it.
type ReportRow struct {
	Email      string
	Name       string
	GameweekID string
	Team       string
	Outcome    string
}

// RowFetcher fetches the remote report rows for one gameweek.
type RowFetcher interface {
	FetchGameweekRows(ctx context.Context, gwID string) ([]ReportRow, error)
}

// ReconciledRow is the locally held version of a report row after outcome
// normalization.
type ReconciledRow struct {
	Email      string
	Name       string
	GameweekID string
	Team       string
	Outcome    pick.Outcome
}

func (r ReconciledRow) key() string {
	return gameweek.NormalizeID(r.GameweekID) + "::" + participant.NormalizeEmail(r.Email)
}

// RowHandle identifies one attached presentation row.
type RowHandle uint64

// RowView is the presentation side of reconciliation. Attach adds a row and
// returns a handle; Replace swaps the row behind an existing handle; Release
// retires one. Unchanged rows are never touched, which is what keeps the
// rendered report from flickering on every pass.
type RowView interface {
	Attach(row ReconciledRow) RowHandle
	Replace(handle RowHandle, row ReconciledRow) RowHandle
	Release(handle RowHandle)
}

type noopRowView struct{}

func (noopRowView) Attach(ReconciledRow) RowHandle                 { return 0 }
func (noopRowView) Replace(h RowHandle, _ ReconciledRow) RowHandle { return h }
func (noopRowView) Release(RowHandle)                              {}

// ReconcileResult summarizes one pass.
type ReconcileResult struct {
	Gameweeks int
	Fetched   int
	Inserted  int
	Replaced  int
	Unchanged int
	Pruned    int
	Failed    int
}

type reconEntry struct {
	row    ReconciledRow
	handle RowHandle
}

// ReconcileService diffs the remote gameweek reports against the locally held
// rows and applies the minimal set of presentation changes. Rows are keyed by
// gameweek id plus lowercased email; a pass never rebuilds rows whose outcome
// did not change.
type ReconcileService struct {
	fetcher     RowFetcher
	schedule    *memory.ScheduleRepository
	view        RowView
	concurrency int
	now         func() time.Time
	logger      *logging.Logger

	mu      sync.Mutex
	entries map[string]reconEntry
}

func NewReconcileService(
	fetcher RowFetcher,
	schedule *memory.ScheduleRepository,
	view RowView,
	concurrency int,
	logger *logging.Logger,
) *ReconcileService {
	if view == nil {
		view = noopRowView{}
	}
	if concurrency <= 0 {
		concurrency = defaultReportConcurrency
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ReconcileService{
		fetcher:     fetcher,
		schedule:    schedule,
		view:        view,
		concurrency: concurrency,
		now:         time.Now,
		logger:      logger,
		entries:     make(map[string]reconEntry),
	}
}

func (s *ReconcileService) SetNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ReconcileFull diffs every scheduled gameweek. A full pass also retires rows
// for gameweeks that fell out of the schedule since they were cached, so a
// rebuilt schedule cannot leave orphaned rows behind.
func (s *ReconcileService) ReconcileFull(ctx context.Context) (ReconcileResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconcileService.ReconcileFull")
	defer span.End()

	sched := s.schedule.Get(ctx)
	ids := make([]string, 0, sched.Len())
	scheduled := make(map[string]struct{}, sched.Len())
	for _, gw := range sched.Gameweeks() {
		ids = append(ids, gw.ID)
		scheduled[gameweek.NormalizeID(gw.ID)] = struct{}{}
	}
	return s.reconcile(ctx, ids, scheduled)
}

// ReconcileIncremental diffs only the gameweeks that can still change: any
// gameweek holding an unresolved local row, plus the one currently open for
// submissions.
func (s *ReconcileService) ReconcileIncremental(ctx context.Context) (ReconcileResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconcileService.ReconcileIncremental")
	defer span.End()

	targets := make(map[string]struct{})
	s.mu.Lock()
	for _, entry := range s.entries {
		if !entry.row.Outcome.Resolved() {
			targets[gameweek.NormalizeID(entry.row.GameweekID)] = struct{}{}
		}
	}
	s.mu.Unlock()

	sched := s.schedule.Get(ctx)
	if open, ok := sched.FirstOpen(s.now()); ok {
		targets[gameweek.NormalizeID(open.ID)] = struct{}{}
	}

	ids := make([]string, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return s.reconcile(ctx, ids, nil)
}

type fetchedBatch struct {
	gwID   string
	rows   []ReportRow
	failed bool
}

// reconcile diffs the fetched batches for gwIDs against the cached rows. A
// non-nil scheduled set marks a full pass: rows for gameweeks outside it are
// retired even though nothing was fetched for them.
func (s *ReconcileService) reconcile(ctx context.Context, gwIDs []string, scheduled map[string]struct{}) (ReconcileResult, error) {
	if s.fetcher == nil {
		return ReconcileResult{}, fmt.Errorf("%w: report fetcher is not configured", ErrDependencyUnavailable)
	}

	result := ReconcileResult{Gameweeks: len(gwIDs)}
	if len(gwIDs) == 0 && scheduled == nil {
		return result, nil
	}

	batches := make(chan fetchedBatch, len(gwIDs))

	if len(gwIDs) > 0 {
		workerCount := s.concurrency
		if workerCount > len(gwIDs) {
			workerCount = len(gwIDs)
		}

		workerPool, err := ants.NewPool(workerCount)
		if err != nil {
			return ReconcileResult{}, fmt.Errorf("create worker pool: %w", err)
		}
		defer workerPool.Release()

		var workers sync.WaitGroup
		for _, gwID := range gwIDs {
			gwID := gwID
			workers.Add(1)
			if err := workerPool.Submit(func() {
				defer workers.Done()

				rows, err := s.fetcher.FetchGameweekRows(ctx, gwID)
				if err != nil {
					s.logger.WarnContext(ctx, "gameweek report fetch failed", "gw_id", gwID, "error", err)
					batches <- fetchedBatch{gwID: gwID, failed: true}
					return
				}
				batches <- fetchedBatch{gwID: gwID, rows: rows}
			}); err != nil {
				workers.Done()
				return ReconcileResult{}, fmt.Errorf("submit fetch to worker pool: %w", err)
			}
		}

		workers.Wait()
	}
	close(batches)

	seen := make(map[string]struct{})
	diffedGws := make(map[string]struct{})

	s.mu.Lock()
	defer s.mu.Unlock()

	for batch := range batches {
		if batch.failed {
			// A failed gameweek is left out of the prune scope so its rows
			// survive until the next successful fetch.
			result.Failed++
			continue
		}
		diffedGws[gameweek.NormalizeID(batch.gwID)] = struct{}{}

		for _, raw := range batch.rows {
			row := ReconciledRow{
				Email:      participant.NormalizeEmail(raw.Email),
				Name:       raw.Name,
				GameweekID: gameweek.NormalizeID(raw.GameweekID),
				Team:       raw.Team,
				Outcome:    pick.NormalizeOutcome(raw.Outcome),
			}
			if row.GameweekID == "" {
				row.GameweekID = gameweek.NormalizeID(batch.gwID)
			}
			if row.Email == "" {
				continue
			}

			key := row.key()
			seen[key] = struct{}{}
			result.Fetched++

			existing, exists := s.entries[key]
			switch {
			case !exists:
				s.entries[key] = reconEntry{row: row, handle: s.view.Attach(row)}
				result.Inserted++
			case existing.row.Outcome != row.Outcome || existing.row.Team != row.Team:
				s.entries[key] = reconEntry{row: row, handle: s.view.Replace(existing.handle, row)}
				result.Replaced++
			default:
				result.Unchanged++
			}
		}
	}

	for key, entry := range s.entries {
		gwID := gameweek.NormalizeID(entry.row.GameweekID)
		if _, diffed := diffedGws[gwID]; diffed {
			if _, kept := seen[key]; kept {
				continue
			}
		} else if scheduled == nil {
			// Incremental passes never prune gameweeks they did not fetch.
			continue
		} else if _, inSchedule := scheduled[gwID]; inSchedule {
			// Still scheduled but not diffed means the fetch failed.
			continue
		}
		s.view.Release(entry.handle)
		delete(s.entries, key)
		result.Pruned++
	}

	return result, nil
}

// GameweekReport is one gameweek's reconciled rows, split by resolution.
// Gameweeks with no rows at all are omitted from Report entirely.
type GameweekReport struct {
	GameweekID string
	Pending    []ReconciledRow
	Resolved   []ReconciledRow
}

// Report returns the current reconciled state in schedule order.
func (s *ReconcileService) Report(ctx context.Context) []GameweekReport {
	sched := s.schedule.Get(ctx)

	s.mu.Lock()
	byGw := make(map[string][]ReconciledRow)
	for _, entry := range s.entries {
		id := gameweek.NormalizeID(entry.row.GameweekID)
		byGw[id] = append(byGw[id], entry.row)
	}
	s.mu.Unlock()

	ids := make([]string, 0, len(byGw))
	for id := range byGw {
		ids = append(ids, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := sched.IndexOf(ids[i]), sched.IndexOf(ids[j])
		if a != b {
			if a < 0 {
				return false
			}
			if b < 0 {
				return true
			}
			return a < b
		}
		return ids[i] < ids[j]
	})

	out := make([]GameweekReport, 0, len(ids))
	for _, id := range ids {
		rows := byGw[id]
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Email < rows[j].Email
		})

		report := GameweekReport{GameweekID: id}
		for _, row := range rows {
			if row.Outcome.Resolved() {
				report.Resolved = append(report.Resolved, row)
			} else {
				report.Pending = append(report.Pending, row)
			}
		}
		out = append(out, report)
	}
	return out
}

// Rows returns a snapshot of every reconciled row, unordered.
func (s *ReconcileService) Rows() []ReconciledRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ReconciledRow, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.row)
	}
	return out
}
