package httpapi

import (
	"time"

	"github.com/lmspool/last-man-standing/internal/domain/fixture"
	"github.com/lmspool/last-man-standing/internal/domain/gameweek"
	"github.com/lmspool/last-man-standing/internal/domain/participant"
	"github.com/lmspool/last-man-standing/internal/domain/pick"
	"github.com/lmspool/last-man-standing/internal/usecase"
)

type submitPickRequest struct {
	Email      string `json:"email" validate:"required,email"`
	GameweekID string `json:"gwId" validate:"required"`
	Team       string `json:"team" validate:"required"`
}

type clearPickRequest struct {
	Email      string `json:"email" validate:"required,email"`
	GameweekID string `json:"gwId" validate:"required"`
}

type setEditingRequest struct {
	Editing bool `json:"editing"`
}

type reconcileRequest struct {
	Full bool `json:"full"`
}

type adminSetOutcomeRequest struct {
	Email      string `json:"email" validate:"required,email"`
	GameweekID string `json:"gwId" validate:"required"`
	Outcome    string `json:"outcome" validate:"required,oneof=WIN LOSS PENDING"`
}

type adminApproveRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type fixtureDTO struct {
	GameweekID     string    `json:"gwId"`
	League         string    `json:"league"`
	HomeTeam       string    `json:"homeTeam"`
	AwayTeam       string    `json:"awayTeam"`
	Kickoff        time.Time `json:"kickoff"`
	KickoffHasTime bool      `json:"kickoffHasTime"`
	Round          string    `json:"round,omitempty"`
}

type gameweekDTO struct {
	ID           string       `json:"id"`
	Ordinal      int          `json:"ordinal"`
	Start        time.Time    `json:"start"`
	FirstKickoff time.Time    `json:"firstKickoff"`
	Deadline     time.Time    `json:"deadline"`
	Fixtures     []fixtureDTO `json:"fixtures"`
}

type pickDTO struct {
	GameweekID  string    `json:"gwId"`
	Team        string    `json:"team"`
	Outcome     string    `json:"outcome"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type progressionDTO struct {
	State             string   `json:"state"`
	CurrentGameweekID string   `json:"currentGwId"`
	LatestPick        *pickDTO `json:"latestPick,omitempty"`
}

type profileDTO struct {
	Email              string         `json:"email"`
	Name               string         `json:"name"`
	Approved           bool           `json:"approved"`
	Alive              bool           `json:"alive"`
	KnockedOutGameweek string         `json:"knockedOutGwId,omitempty"`
	KnockedOutTeam     string         `json:"knockedOutTeam,omitempty"`
	Picks              []pickDTO      `json:"picks"`
	UsedTeams          []string       `json:"usedTeams"`
	Progression        progressionDTO `json:"progression"`
}

type entrantDTO struct {
	Email              string `json:"email"`
	Name               string `json:"name"`
	Approved           bool   `json:"approved"`
	Alive              bool   `json:"alive"`
	KnockedOutGameweek string `json:"knockedOutGwId,omitempty"`
	KnockedOutTeam     string `json:"knockedOutTeam,omitempty"`
	SubmittedForGw     bool   `json:"submittedForGw"`
}

type entrantBucketsDTO struct {
	Started         bool         `json:"started"`
	Approved        []entrantDTO `json:"approved,omitempty"`
	PendingApproval []entrantDTO `json:"pendingApproval,omitempty"`
	Alive           []entrantDTO `json:"alive,omitempty"`
	Out             []entrantDTO `json:"out,omitempty"`
}

type placingDTO struct {
	Position int        `json:"position"`
	Total    int        `json:"total"`
	Entrant  entrantDTO `json:"entrant"`
}

type reportRowDTO struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	GameweekID string `json:"gwId"`
	Team       string `json:"team"`
	Outcome    string `json:"outcome"`
}

type gameweekReportDTO struct {
	GameweekID string         `json:"gwId"`
	Pending    []reportRowDTO `json:"pending,omitempty"`
	Resolved   []reportRowDTO `json:"resolved,omitempty"`
}

type reconcileResultDTO struct {
	Gameweeks int `json:"gameweeks"`
	Fetched   int `json:"fetched"`
	Inserted  int `json:"inserted"`
	Replaced  int `json:"replaced"`
	Unchanged int `json:"unchanged"`
	Pruned    int `json:"pruned"`
	Failed    int `json:"failed"`
}

type submitResultDTO struct {
	State string   `json:"state"`
	Pick  *pickDTO `json:"pick,omitempty"`
}

func fixtureToDTO(f fixture.Fixture) fixtureDTO {
	return fixtureDTO{
		GameweekID:     f.GameweekID,
		League:         f.League,
		HomeTeam:       f.HomeTeam,
		AwayTeam:       f.AwayTeam,
		Kickoff:        f.Kickoff,
		KickoffHasTime: f.KickoffHasTime,
		Round:          f.Round,
	}
}

func gameweekToDTO(gw gameweek.Gameweek) gameweekDTO {
	fixtures := make([]fixtureDTO, 0, len(gw.Fixtures))
	for _, f := range gw.Fixtures {
		fixtures = append(fixtures, fixtureToDTO(f))
	}
	return gameweekDTO{
		ID:           gw.ID,
		Ordinal:      gw.Ordinal,
		Start:        gw.Start,
		FirstKickoff: gw.FirstKickoff,
		Deadline:     gw.Deadline,
		Fixtures:     fixtures,
	}
}

func pickToDTO(p pick.Pick) pickDTO {
	return pickDTO{
		GameweekID:  p.GameweekID,
		Team:        p.Team,
		Outcome:     string(p.Outcome),
		SubmittedAt: p.SubmittedAt,
	}
}

func progressionToDTO(p usecase.Progression) progressionDTO {
	out := progressionDTO{
		State:             string(p.State),
		CurrentGameweekID: p.CurrentGameweekID,
	}
	if p.HasLatestPick {
		latest := pickToDTO(p.LatestPick)
		out.LatestPick = &latest
	}
	return out
}

func entrantToDTO(e participant.Entrant) entrantDTO {
	return entrantDTO{
		Email:              e.Email,
		Name:               e.Name(),
		Approved:           e.Approved,
		Alive:              e.Alive,
		KnockedOutGameweek: e.KnockedOutGameweek,
		KnockedOutTeam:     e.KnockedOutTeam,
		SubmittedForGw:     e.SubmittedForGw,
	}
}

func entrantsToDTO(entrants []participant.Entrant) []entrantDTO {
	out := make([]entrantDTO, 0, len(entrants))
	for _, e := range entrants {
		out = append(out, entrantToDTO(e))
	}
	return out
}

func bucketsToDTO(buckets usecase.EntrantBuckets) entrantBucketsDTO {
	return entrantBucketsDTO{
		Started:         buckets.Started,
		Approved:        entrantsToDTO(buckets.Approved),
		PendingApproval: entrantsToDTO(buckets.PendingApproval),
		Alive:           entrantsToDTO(buckets.Alive),
		Out:             entrantsToDTO(buckets.Out),
	}
}

func placingToDTO(p usecase.Placing) placingDTO {
	return placingDTO{
		Position: p.Position,
		Total:    p.Total,
		Entrant:  entrantToDTO(p.Entrant),
	}
}

func reconciledRowToDTO(row usecase.ReconciledRow) reportRowDTO {
	return reportRowDTO{
		Email:      row.Email,
		Name:       row.Name,
		GameweekID: row.GameweekID,
		Team:       row.Team,
		Outcome:    string(row.Outcome),
	}
}

func gameweekReportToDTO(report usecase.GameweekReport) gameweekReportDTO {
	out := gameweekReportDTO{GameweekID: report.GameweekID}
	for _, row := range report.Pending {
		out.Pending = append(out.Pending, reconciledRowToDTO(row))
	}
	for _, row := range report.Resolved {
		out.Resolved = append(out.Resolved, reconciledRowToDTO(row))
	}
	return out
}

func reconcileResultToDTO(result usecase.ReconcileResult) reconcileResultDTO {
	return reconcileResultDTO{
		Gameweeks: result.Gameweeks,
		Fetched:   result.Fetched,
		Inserted:  result.Inserted,
		Replaced:  result.Replaced,
		Unchanged: result.Unchanged,
		Pruned:    result.Pruned,
		Failed:    result.Failed,
	}
}

func submitResultToDTO(result usecase.SubmitResult) submitResultDTO {
	out := submitResultDTO{State: string(result.State)}
	if result.State != usecase.SubmitReverted {
		item := pickToDTO(result.Pick)
		out.Pick = &item
	}
	return out
}
