package fixturefeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/lmspool/last-man-standing/internal/domain/fixture"
	"github.com/lmspool/last-man-standing/internal/platform/cache"
	"github.com/lmspool/last-man-standing/internal/platform/logging"
	"github.com/lmspool/last-man-standing/internal/usecase"
)

var errFeedTransient = crerr.New("fixture feed transient failure")

type ClientConfig struct {
	HTTPClient  *http.Client
	DeadlineURL string
	Timeout     time.Duration
	Cache       *cache.Store
	Logger      *logging.Logger
}

// Client fetches the static per-league fixture feeds and the manual deadline
// override feed. Feeds are plain JSON documents behind GET; they change rarely,
// so responses may be served from a TTL cache.
type Client struct {
	httpClient  *http.Client
	deadlineURL string
	cache       *cache.Store
	logger      *logging.Logger
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
		httpClient:  httpClient,
		deadlineURL: strings.TrimSpace(cfg.DeadlineURL),
		cache:       cfg.Cache,
		logger:      logger,
	}
}

type matchesEnvelope struct {
	Matches []fixture.RawMatch `json:"matches"`
}

type deadlineRow struct {
	GameweekID string `json:"gwId"`
	Date       string `json:"date"`
	Deadline   string `json:"deadline"`
}

type deadlinesEnvelope struct {
	Deadlines []deadlineRow `json:"deadlines"`
}

// FetchMatches implements usecase.MatchFeed.
func (c *Client) FetchMatches(ctx context.Context, url string) ([]fixture.RawMatch, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("feed url must not be empty")
	}

	if c.cache != nil {
		value, err := c.cache.GetOrLoad(ctx, "fixturefeed:matches:"+url, func(ctx context.Context) (any, error) {
			return c.loadMatches(ctx, url)
		})
		if err != nil {
			return nil, err
		}
		matches, _ := value.([]fixture.RawMatch)
		return matches, nil
	}

	return c.loadMatches(ctx, url)
}

func (c *Client) loadMatches(ctx context.Context, url string) ([]fixture.RawMatch, error) {
	var envelope matchesEnvelope
	if err := c.getJSON(ctx, url, &envelope); err != nil {
		return nil, fmt.Errorf("fetch matches: %w", err)
	}
	return envelope.Matches, nil
}

// FetchDeadlines implements usecase.DeadlineFeed. A client without a deadline
// URL configured reports no overrides.
func (c *Client) FetchDeadlines(ctx context.Context) ([]usecase.DeadlineOverride, error) {
	if c.deadlineURL == "" {
		return nil, nil
	}

	if c.cache != nil {
		value, err := c.cache.GetOrLoad(ctx, "fixturefeed:deadlines:"+c.deadlineURL, func(ctx context.Context) (any, error) {
			return c.loadDeadlines(ctx)
		})
		if err != nil {
			return nil, err
		}
		overrides, _ := value.([]usecase.DeadlineOverride)
		return overrides, nil
	}

	return c.loadDeadlines(ctx)
}

func (c *Client) loadDeadlines(ctx context.Context) ([]usecase.DeadlineOverride, error) {
	var envelope deadlinesEnvelope
	if err := c.getJSON(ctx, c.deadlineURL, &envelope); err != nil {
		return nil, fmt.Errorf("fetch deadlines: %w", err)
	}

	out := make([]usecase.DeadlineOverride, 0, len(envelope.Deadlines))
	for _, row := range envelope.Deadlines {
		out = append(out, usecase.DeadlineOverride{
			GameweekID: strings.TrimSpace(row.GameweekID),
			Date:       strings.TrimSpace(row.Date),
			Time:       strings.TrimSpace(row.Deadline),
		})
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", usecase.ErrDependencyUnavailable, crerr.Wrapf(errFeedTransient, "send request: %v", err))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", usecase.ErrDependencyUnavailable, crerr.Wrapf(errFeedTransient, "read response body: %v", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: feed status=%d", usecase.ErrDependencyUnavailable, resp.StatusCode)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: decode feed payload: %v", usecase.ErrDependencyUnavailable, err)
	}
	return nil
}
