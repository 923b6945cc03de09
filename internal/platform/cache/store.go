// Package cache is a TTL snapshot cache for upstream feed responses. Loads
// for the same key are collapsed so one slow fixture-feed fetch serves every
// caller that arrives during it.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lmspool/last-man-standing/internal/platform/resilience"
)

type snapshot struct {
	value   any
	staleAt time.Time
}

// Store holds loaded values for up to one TTL. A TTL of zero keeps values
// until the process exits.
type Store struct {
	ttl    time.Duration
	flight resilience.SingleFlight

	mu        sync.RWMutex
	snapshots map[string]snapshot
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:       ttl,
		snapshots: make(map[string]snapshot),
	}
}

// GetOrLoad returns the cached value for key, calling loader at most once
// across concurrent callers when the value is absent or stale. An empty key
// bypasses the cache entirely. Loader errors are returned and never cached.
func (s *Store) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (any, error)) (any, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if key == "" {
		return loader(ctx)
	}

	if value, ok := s.fresh(key); ok {
		return value, nil
	}

	return s.flight.Do(key, func() (any, error) {
		// A concurrent flight may have filled the slot while we queued.
		if value, ok := s.fresh(key); ok {
			return value, nil
		}
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		s.put(key, value)
		return value, nil
	})
}

func (s *Store) fresh(key string) (any, bool) {
	s.mu.RLock()
	snap, ok := s.snapshots[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && !time.Now().Before(snap.staleAt) {
		s.mu.Lock()
		if current, still := s.snapshots[key]; still && current.staleAt.Equal(snap.staleAt) {
			delete(s.snapshots, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return snap.value, true
}

func (s *Store) put(key string, value any) {
	snap := snapshot{value: value}
	if s.ttl > 0 {
		snap.staleAt = time.Now().Add(s.ttl)
	}
	s.mu.Lock()
	s.snapshots[key] = snap
	s.mu.Unlock()
}
