package fixturefeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lmspool/last-man-standing/internal/platform/cache"
	"github.com/lmspool/last-man-standing/internal/platform/logging"
	"github.com/lmspool/last-man-standing/internal/usecase"
)

func TestClientFetchMatches_ParsesFeed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"matches":[
			{"gwId":"GW1","date":"2026-08-15","time":"15:00","team1":"Arsenal","team2":"Brentford"},
			{"round":"Gameweek 2","date":"2026-08-22","team1":"Chelsea","team2":"Fulham"}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{HTTPClient: srv.Client(), Logger: logging.NewNop()})

	matches, err := client.FetchMatches(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch matches failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].GwID != "GW1" || matches[1].Round != "Gameweek 2" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
}

func TestClientFetchMatches_CachedWithinTTL(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"matches":[]}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient: srv.Client(),
		Cache:      cache.NewStore(time.Minute),
		Logger:     logging.NewNop(),
	})

	for i := 0; i < 3; i++ {
		if _, err := client.FetchMatches(context.Background(), srv.URL); err != nil {
			t.Fatalf("fetch matches failed: %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one upstream fetch, got %d", calls.Load())
	}
}

func TestClientFetchMatches_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{HTTPClient: srv.Client(), Logger: logging.NewNop()})

	_, err := client.FetchMatches(context.Background(), srv.URL)
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestClientFetchDeadlines(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"deadlines":[{"gwId":"GW1","date":"2026-08-14","deadline":"19:30"}]}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient:  srv.Client(),
		DeadlineURL: srv.URL,
		Logger:      logging.NewNop(),
	})

	overrides, err := client.FetchDeadlines(context.Background())
	if err != nil {
		t.Fatalf("fetch deadlines failed: %v", err)
	}
	if len(overrides) != 1 {
		t.Fatalf("expected one override, got %d", len(overrides))
	}
	want := usecase.DeadlineOverride{GameweekID: "GW1", Date: "2026-08-14", Time: "19:30"}
	if overrides[0] != want {
		t.Fatalf("unexpected override: %+v", overrides[0])
	}
}

func TestClientFetchDeadlines_NoURLConfigured(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{Logger: logging.NewNop()})

	overrides, err := client.FetchDeadlines(context.Background())
	if err != nil {
		t.Fatalf("no deadline url must mean no overrides, got error: %v", err)
	}
	if overrides != nil {
		t.Fatalf("expected nil overrides, got %+v", overrides)
	}
}
