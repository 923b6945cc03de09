package lmsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	sonic "github.com/bytedance/sonic"

	"github.com/lmspool/last-man-standing/internal/domain/pick"
	"github.com/lmspool/last-man-standing/internal/platform/logging"
	"github.com/lmspool/last-man-standing/internal/platform/resilience"
	"github.com/lmspool/last-man-standing/internal/usecase"
)

func newTestClient(srv *httptest.Server, maxRetries int) *Client {
	return NewClient(ClientConfig{
		HTTPClient:  srv.Client(),
		EndpointURL: srv.URL,
		APIKey:      "admin-secret",
		MaxRetries:  maxRetries,
		Logger:      logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled: false,
		},
	})
}

func TestClientFetchProfile_ParsesSnapshot(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "text/plain;charset=utf-8" {
			t.Fatalf("unexpected content type: %s", got)
		}

		var req map[string]any
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if req["action"] != "getProfile" {
			t.Fatalf("unexpected action: %v", req["action"])
		}
		if req["email"] != "alice@example.com" {
			t.Fatalf("unexpected email: %v", req["email"])
		}

		w.Header().Set("Content-Type", "application/json")
		_ = sonic.ConfigDefault.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"user": map[string]any{
				"email":     "Alice@Example.com",
				"firstName": "Alice ",
				"lastName":  "Smith",
				"approved":  true,
				"alive":     true,
			},
			"picks": []map[string]any{
				{"gwId": "GW1", "team": "Arsenal", "outcome": "won", "submittedAt": "2026-08-14T10:00:00Z"},
			},
		})
	}))
	defer srv.Close()

	client := newTestClient(srv, 0)

	snapshot, err := client.FetchProfile(context.Background(), " Alice@Example.com ")
	if err != nil {
		t.Fatalf("fetch profile failed: %v", err)
	}

	if snapshot.Owner.Email != "alice@example.com" || snapshot.Owner.FirstName != "Alice" {
		t.Fatalf("unexpected owner: %+v", snapshot.Owner)
	}
	if len(snapshot.Picks) != 1 {
		t.Fatalf("expected one pick, got %d", len(snapshot.Picks))
	}
	if snapshot.Picks[0].Outcome != pick.OutcomeWin {
		t.Fatalf("outcome not normalized: %s", snapshot.Picks[0].Outcome)
	}
	if snapshot.Picks[0].Email != "alice@example.com" {
		t.Fatalf("pick not keyed to the requested email: %s", snapshot.Picks[0].Email)
	}
}

func TestClientSubmitPick_RejectionMapsToSentinel(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = sonic.ConfigDefault.NewEncoder(w).Encode(map[string]any{
			"ok":    false,
			"error": "deadline passed",
		})
	}))
	defer srv.Close()

	client := newTestClient(srv, 0)

	err := client.SubmitPick(context.Background(), "alice@example.com", "GW1", "Arsenal")
	if !errors.Is(err, usecase.ErrRemoteRejected) {
		t.Fatalf("expected ErrRemoteRejected, got %v", err)
	}
}

func TestClientSubmitPick_ServerErrorIsDependencyUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(srv, 0)

	err := client.SubmitPick(context.Background(), "alice@example.com", "GW1", "Arsenal")
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if errors.Is(err, usecase.ErrRemoteRejected) {
		t.Fatalf("a transport failure must not read as a rejection")
	}
}

func TestClientExecuteRequest_RetriesRetryableStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = sonic.ConfigDefault.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	client := newTestClient(srv, 1)

	if err := client.SubmitPick(context.Background(), "alice@example.com", "GW1", "Arsenal"); err != nil {
		t.Fatalf("retried request failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestClientExecuteRequest_NoRetryOnClientError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(srv, 2)

	err := client.SubmitPick(context.Background(), "alice@example.com", "GW1", "Arsenal")
	if err == nil {
		t.Fatalf("expected error on 400")
	}
	if calls.Load() != 1 {
		t.Fatalf("client errors must not be retried, got %d attempts", calls.Load())
	}
}

func TestClientCircuitBreaker_OpensAfterTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient:  srv.Client(),
		EndpointURL: srv.URL,
		MaxRetries:  0,
		Logger:      logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
		},
	})

	for i := 0; i < 2; i++ {
		if err := client.SubmitPick(context.Background(), "alice@example.com", "GW1", "Arsenal"); err == nil {
			t.Fatalf("expected failure")
		}
	}
	before := calls.Load()

	err := client.SubmitPick(context.Background(), "alice@example.com", "GW1", "Arsenal")
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable from open circuit, got %v", err)
	}
	if calls.Load() != before {
		t.Fatalf("open circuit must short-circuit without a request")
	}
}

func TestClientAdminApprove_SendsAPIKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if req["action"] != "adminApprove" {
			t.Fatalf("unexpected action: %v", req["action"])
		}
		if req["apiKey"] != "admin-secret" {
			t.Fatalf("admin call must carry the api key, got %v", req["apiKey"])
		}

		w.Header().Set("Content-Type", "application/json")
		_ = sonic.ConfigDefault.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	client := newTestClient(srv, 0)

	if err := client.AdminApprove(context.Background(), "bob@example.com"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
}

func TestClientFetchGameweekRows(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if req["action"] != "getGwReport" || req["gwId"] != "GW1" {
			t.Fatalf("unexpected request: %v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = sonic.ConfigDefault.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"rows": []map[string]any{
				{"email": "alice@example.com", "name": "Alice", "gwId": "GW1", "team": "Arsenal", "outcome": "won"},
			},
		})
	}))
	defer srv.Close()

	client := newTestClient(srv, 0)

	rows, err := client.FetchGameweekRows(context.Background(), "GW1")
	if err != nil {
		t.Fatalf("fetch rows failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Team != "Arsenal" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestClient_NoEndpointConfigured(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{Logger: logging.NewNop()})

	err := client.SubmitPick(context.Background(), "alice@example.com", "GW1", "Arsenal")
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}
