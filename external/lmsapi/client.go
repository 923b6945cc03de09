package lmsapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/lmspool/last-man-standing/internal/domain/participant"
	"github.com/lmspool/last-man-standing/internal/domain/pick"
	"github.com/lmspool/last-man-standing/internal/platform/logging"
	"github.com/lmspool/last-man-standing/internal/platform/resilience"
	"github.com/lmspool/last-man-standing/internal/usecase"
)

// The remote authority is a single POST endpoint discriminated by an "action"
// field. The body is sent as text/plain so the browser client's requests stay
// CORS simple requests; the server parses it as JSON regardless.
const requestContentType = "text/plain;charset=utf-8"

var errLMSTransient = crerr.New("lms api transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	EndpointURL    string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the remote competition authority.
type Client struct {
	httpClient     *http.Client
	endpointURL    string
	apiKey         string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 15 * time.Second
	}

	return &Client{
		httpClient:     httpClient,
		endpointURL:    strings.TrimSpace(cfg.EndpointURL),
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(cfg.CircuitBreaker),
		circuitEnabled: cfg.CircuitBreaker.Enabled,
	}
}

type baseResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type userPayload struct {
	Email          string `json:"email"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Approved       bool   `json:"approved"`
	Alive          bool   `json:"alive"`
	KnockedOutGw   string `json:"knockedOutGw"`
	KnockedOutTeam string `json:"knockedOutTeam"`
}

type pickPayload struct {
	GameweekID  string `json:"gwId"`
	Team        string `json:"team"`
	Outcome     string `json:"outcome"`
	SubmittedAt string `json:"submittedAt"`
}

type profileResponse struct {
	baseResponse
	User  userPayload   `json:"user"`
	Picks []pickPayload `json:"picks"`
}

type entryPayload struct {
	Email          string `json:"email"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Approved       bool   `json:"approved"`
	Alive          bool   `json:"alive"`
	KnockedOutGw   string `json:"knockedOutGw"`
	KnockedOutTeam string `json:"knockedOutTeam"`
	SubmittedForGw bool   `json:"submittedForGw"`
}

type entriesResponse struct {
	baseResponse
	Entries []entryPayload `json:"entries"`
}

type reportRowPayload struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	GameweekID string `json:"gwId"`
	Team       string `json:"team"`
	Outcome    string `json:"outcome"`
}

type reportResponse struct {
	baseResponse
	Rows []reportRowPayload `json:"rows"`
}

type userPicksResponse struct {
	baseResponse
	Picks []pickPayload `json:"picks"`
}

// FetchProfile implements usecase.StateRemote.
func (c *Client) FetchProfile(ctx context.Context, email string) (usecase.ProfileSnapshot, error) {
	email = participant.NormalizeEmail(email)
	if email == "" {
		return usecase.ProfileSnapshot{}, fmt.Errorf("email must not be empty")
	}

	var resp profileResponse
	if err := c.doRead(ctx, "getProfile:"+email, map[string]any{
		"action": "getProfile",
		"email":  email,
	}, &resp); err != nil {
		return usecase.ProfileSnapshot{}, fmt.Errorf("fetch profile: %w", err)
	}

	return usecase.ProfileSnapshot{
		Owner: participant.Participant{
			Email:              participant.NormalizeEmail(resp.User.Email),
			FirstName:          strings.TrimSpace(resp.User.FirstName),
			LastName:           strings.TrimSpace(resp.User.LastName),
			Approved:           resp.User.Approved,
			Alive:              resp.User.Alive,
			KnockedOutGameweek: strings.TrimSpace(resp.User.KnockedOutGw),
			KnockedOutTeam:     strings.TrimSpace(resp.User.KnockedOutTeam),
		},
		Picks: mapPicks(email, resp.Picks),
	}, nil
}

// FetchEntrants implements usecase.StateRemote.
func (c *Client) FetchEntrants(ctx context.Context) ([]participant.Entrant, error) {
	var resp entriesResponse
	if err := c.doRead(ctx, "getEntries", map[string]any{
		"action": "getEntries",
	}, &resp); err != nil {
		return nil, fmt.Errorf("fetch entrants: %w", err)
	}

	out := make([]participant.Entrant, 0, len(resp.Entries))
	for _, item := range resp.Entries {
		out = append(out, participant.Entrant{
			Email:              participant.NormalizeEmail(item.Email),
			FirstName:          strings.TrimSpace(item.FirstName),
			LastName:           strings.TrimSpace(item.LastName),
			Approved:           item.Approved,
			Alive:              item.Alive,
			KnockedOutGameweek: strings.TrimSpace(item.KnockedOutGw),
			KnockedOutTeam:     strings.TrimSpace(item.KnockedOutTeam),
			SubmittedForGw:     item.SubmittedForGw,
		})
	}
	return out, nil
}

// FetchGameweekRows implements usecase.RowFetcher.
func (c *Client) FetchGameweekRows(ctx context.Context, gwID string) ([]usecase.ReportRow, error) {
	gwID = strings.TrimSpace(gwID)
	if gwID == "" {
		return nil, fmt.Errorf("gameweek id must not be empty")
	}

	var resp reportResponse
	if err := c.doRead(ctx, "getGwReport:"+gwID, map[string]any{
		"action": "getGwReport",
		"gwId":   gwID,
	}, &resp); err != nil {
		return nil, fmt.Errorf("fetch gameweek report gw=%s: %w", gwID, err)
	}

	out := make([]usecase.ReportRow, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		out = append(out, usecase.ReportRow{
			Email:      row.Email,
			Name:       row.Name,
			GameweekID: row.GameweekID,
			Team:       row.Team,
			Outcome:    row.Outcome,
		})
	}
	return out, nil
}

// FetchUserPicks fetches one participant's pick history.
func (c *Client) FetchUserPicks(ctx context.Context, email string) ([]pick.Pick, error) {
	email = participant.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email must not be empty")
	}

	var resp userPicksResponse
	if err := c.doRead(ctx, "getUserPicks:"+email, map[string]any{
		"action": "getUserPicks",
		"email":  email,
	}, &resp); err != nil {
		return nil, fmt.Errorf("fetch user picks: %w", err)
	}
	return mapPicks(email, resp.Picks), nil
}

// SubmitPick implements usecase.PickRemote.
func (c *Client) SubmitPick(ctx context.Context, email, gwID, team string) error {
	var resp baseResponse
	if err := c.doWrite(ctx, map[string]any{
		"action": "submitPick",
		"email":  participant.NormalizeEmail(email),
		"gwId":   strings.TrimSpace(gwID),
		"team":   strings.TrimSpace(team),
	}, &resp); err != nil {
		return fmt.Errorf("submit pick: %w", err)
	}
	return nil
}

// ClearPick implements usecase.PickRemote.
func (c *Client) ClearPick(ctx context.Context, email, gwID string) error {
	var resp baseResponse
	if err := c.doWrite(ctx, map[string]any{
		"action": "clearPick",
		"email":  participant.NormalizeEmail(email),
		"gwId":   strings.TrimSpace(gwID),
	}, &resp); err != nil {
		return fmt.Errorf("clear pick: %w", err)
	}
	return nil
}

// AdminSetOutcome records a pick outcome on the remote authority.
func (c *Client) AdminSetOutcome(ctx context.Context, email, gwID, outcome string) error {
	var resp baseResponse
	if err := c.doWrite(ctx, map[string]any{
		"action":  "adminSetOutcome",
		"apiKey":  c.apiKey,
		"email":   participant.NormalizeEmail(email),
		"gwId":    strings.TrimSpace(gwID),
		"outcome": strings.TrimSpace(outcome),
	}, &resp); err != nil {
		return fmt.Errorf("set outcome: %w", err)
	}
	return nil
}

// AdminApprove approves a pending entrant.
func (c *Client) AdminApprove(ctx context.Context, email string) error {
	var resp baseResponse
	if err := c.doWrite(ctx, map[string]any{
		"action": "adminApprove",
		"apiKey": c.apiKey,
		"email":  participant.NormalizeEmail(email),
	}, &resp); err != nil {
		return fmt.Errorf("approve entrant: %w", err)
	}
	return nil
}

// AdminPending lists entrants awaiting approval.
func (c *Client) AdminPending(ctx context.Context) ([]participant.Entrant, error) {
	var resp entriesResponse
	if err := c.doRead(ctx, "adminGetPending", map[string]any{
		"action": "adminGetPending",
		"apiKey": c.apiKey,
	}, &resp); err != nil {
		return nil, fmt.Errorf("fetch pending entrants: %w", err)
	}

	out := make([]participant.Entrant, 0, len(resp.Entries))
	for _, item := range resp.Entries {
		out = append(out, participant.Entrant{
			Email:     participant.NormalizeEmail(item.Email),
			FirstName: strings.TrimSpace(item.FirstName),
			LastName:  strings.TrimSpace(item.LastName),
			Approved:  item.Approved,
			Alive:     item.Alive,
		})
	}
	return out, nil
}

// AdminGameweekPicks lists every pick made for one gameweek.
func (c *Client) AdminGameweekPicks(ctx context.Context, gwID string) ([]usecase.ReportRow, error) {
	gwID = strings.TrimSpace(gwID)
	if gwID == "" {
		return nil, fmt.Errorf("gameweek id must not be empty")
	}

	var resp reportResponse
	if err := c.doRead(ctx, "adminGetGwPicks:"+gwID, map[string]any{
		"action": "adminGetGwPicks",
		"apiKey": c.apiKey,
		"gwId":   gwID,
	}, &resp); err != nil {
		return nil, fmt.Errorf("fetch gameweek picks gw=%s: %w", gwID, err)
	}

	out := make([]usecase.ReportRow, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		out = append(out, usecase.ReportRow{
			Email:      row.Email,
			Name:       row.Name,
			GameweekID: row.GameweekID,
			Team:       row.Team,
			Outcome:    row.Outcome,
		})
	}
	return out, nil
}

// doRead collapses identical concurrent reads through singleflight.
func (c *Client) doRead(ctx context.Context, flightKey string, payload map[string]any, target okReporter) error {
	raw, err := c.flight.Do(flightKey, func() (any, error) {
		return c.post(ctx, payload)
	})
	if err != nil {
		return err
	}
	body, ok := raw.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", raw)
	}
	return decodeEnvelope(body, target)
}

func (c *Client) doWrite(ctx context.Context, payload map[string]any, target okReporter) error {
	raw, err := c.post(ctx, payload)
	if err != nil {
		return err
	}
	return decodeEnvelope(raw, target)
}

// okReporter is satisfied by every response embedding baseResponse.
type okReporter interface {
	rejected() (bool, string)
}

func (r *baseResponse) rejected() (bool, string) {
	return !r.OK, strings.TrimSpace(r.Error)
}

func decodeEnvelope(raw []byte, target okReporter) error {
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: decode response: %v", usecase.ErrDependencyUnavailable, err)
	}
	if bad, reason := target.rejected(); bad {
		if reason == "" {
			reason = "no reason given"
		}
		return fmt.Errorf("%w: %s", usecase.ErrRemoteRejected, reason)
	}
	return nil
}

func (c *Client) post(ctx context.Context, payload map[string]any) ([]byte, error) {
	if c.endpointURL == "" {
		return nil, fmt.Errorf("%w: lms api endpoint is not configured", usecase.ErrDependencyUnavailable)
	}
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "lms api circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: competition service is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	encoded, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if _, err := buf.Write(encoded); err != nil {
		return nil, fmt.Errorf("buffer request: %w", err)
	}
	body := append([]byte(nil), buf.B...)

	raw, reqErr := c.executeRequest(ctx, body)
	if c.circuitEnabled {
		if reqErr != nil && crerr.Is(reqErr, errLMSTransient) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	if reqErr != nil {
		if crerr.Is(reqErr, errLMSTransient) {
			return nil, fmt.Errorf("%w: %v", usecase.ErrDependencyUnavailable, reqErr)
		}
		return nil, reqErr
	}
	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", requestContentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = crerr.Wrapf(errLMSTransient, "send request: %v", err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = crerr.Wrapf(errLMSTransient, "read response body: %v", readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = crerr.Wrapf(errLMSTransient, "status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, fmt.Errorf("lms api status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = crerr.Wrap(errLMSTransient, "request failed")
	}
	c.logger.WarnContext(ctx, "lms api request failed", "error", lastErr)
	return nil, lastErr
}

func mapPicks(email string, items []pickPayload) []pick.Pick {
	out := make([]pick.Pick, 0, len(items))
	for _, item := range items {
		submittedAt, _ := time.Parse(time.RFC3339, strings.TrimSpace(item.SubmittedAt))
		out = append(out, pick.Pick{
			Email:       email,
			GameweekID:  strings.TrimSpace(item.GameweekID),
			Team:        strings.TrimSpace(item.Team),
			Outcome:     pick.NormalizeOutcome(item.Outcome),
			SubmittedAt: submittedAt,
		})
	}
	return out
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	value := strings.TrimSpace(string(raw))
	if len(value) > limit {
		return value[:limit] + "..."
	}
	return value
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
