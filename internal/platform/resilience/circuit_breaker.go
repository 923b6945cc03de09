// Package resilience shields the outbound competition-authority calls: a
// consecutive-failure circuit breaker and a call collapser for identical
// concurrent reads.
package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit open: request short-circuited")

type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// CircuitBreaker trips after a run of consecutive failures and rejects
// requests for the open window. Once the window elapses it admits a bounded
// number of probe requests; enough probe successes close it again, any probe
// failure re-opens it. The open/half-open distinction is derived from the
// trip time on each call rather than stored, so state never goes stale
// between requests.
type CircuitBreaker struct {
	mu sync.Mutex

	threshold   int
	openFor     time.Duration
	probeBudget int

	failures  int
	tripped   bool
	trippedAt time.Time
	probes    int
	probeWins int

	now func() time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	cfg = cfg.withDefaults()
	return &CircuitBreaker{
		threshold:   cfg.FailureThreshold,
		openFor:     cfg.OpenTimeout,
		probeBudget: cfg.HalfOpenMaxReq,
		now:         time.Now,
	}
}

// Allow reports whether a request may proceed right now. Half-open requests
// count against the probe budget until their outcome is recorded.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.phase(b.now()) {
	case CircuitOpen:
		return ErrCircuitOpen
	case CircuitHalfOpen:
		if b.probes >= b.probeBudget {
			return ErrCircuitOpen
		}
		b.probes++
	}
	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.phase(b.now()) {
	case CircuitClosed:
		b.failures = 0
	case CircuitHalfOpen:
		if b.probes > 0 {
			b.probes--
		}
		b.probeWins++
		if b.probeWins >= b.probeBudget && b.probes == 0 {
			b.reset()
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	switch b.phase(now) {
	case CircuitClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.trip(now)
		}
	case CircuitHalfOpen:
		if b.probes > 0 {
			b.probes--
		}
		b.trip(now)
	case CircuitOpen:
		// A straggler admitted before the trip; push the window out.
		b.trippedAt = now
	}
}

func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase(b.now())
}

func (b *CircuitBreaker) phase(now time.Time) CircuitState {
	if !b.tripped {
		return CircuitClosed
	}
	if now.Sub(b.trippedAt) >= b.openFor {
		return CircuitHalfOpen
	}
	return CircuitOpen
}

func (b *CircuitBreaker) trip(now time.Time) {
	b.tripped = true
	b.trippedAt = now
	b.probes = 0
	b.probeWins = 0
}

func (b *CircuitBreaker) reset() {
	b.tripped = false
	b.failures = 0
	b.probes = 0
	b.probeWins = 0
}
