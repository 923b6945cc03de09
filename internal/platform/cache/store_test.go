package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_GetOrLoad_BurstCostsOneLoad(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var loads atomic.Int32

	loader := func(context.Context) (any, error) {
		loads.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "feed-body", nil
	}

	const callers = 24
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(callers)

	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "fixturefeed:matches:https://feeds.test/epl", loader)
			if err != nil {
				t.Errorf("load failed: %v", err)
				return
			}
			if got, _ := v.(string); got != "feed-body" {
				t.Errorf("unexpected cached value: %v", v)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Fatalf("burst must cost one load, got %d", got)
	}
}

func TestStore_GetOrLoad_ServedFromCacheWithinTTL(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var loads atomic.Int32
	loader := func(context.Context) (any, error) {
		loads.Add(1)
		return "deadlines", nil
	}

	for i := 0; i < 3; i++ {
		if _, err := store.GetOrLoad(context.Background(), "fixturefeed:deadlines:https://feeds.test/overrides", loader); err != nil {
			t.Fatalf("load %d failed: %v", i, err)
		}
	}

	if got := loads.Load(); got != 1 {
		t.Fatalf("repeat reads within the TTL must not reload, got %d loads", got)
	}
}

func TestStore_GetOrLoad_StaleValueReloaded(t *testing.T) {
	t.Parallel()

	store := NewStore(10 * time.Millisecond)
	var loads atomic.Int32
	loader := func(context.Context) (any, error) {
		loads.Add(1)
		return loads.Load(), nil
	}

	if _, err := store.GetOrLoad(context.Background(), "k", loader); err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	v, err := store.GetOrLoad(context.Background(), "k", loader)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got, _ := v.(int32); got != 2 {
		t.Fatalf("stale value must be reloaded, got %v", v)
	}
}

func TestStore_GetOrLoad_ErrorsNotCached(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var loads atomic.Int32
	loader := func(context.Context) (any, error) {
		if loads.Add(1) == 1 {
			return nil, errors.New("feed down")
		}
		return "recovered", nil
	}

	if _, err := store.GetOrLoad(context.Background(), "k", loader); err == nil {
		t.Fatalf("first load must surface the feed error")
	}

	v, err := store.GetOrLoad(context.Background(), "k", loader)
	if err != nil {
		t.Fatalf("retry after error failed: %v", err)
	}
	if got, _ := v.(string); got != "recovered" {
		t.Fatalf("unexpected value after retry: %v", v)
	}
}

func TestStore_GetOrLoad_EmptyKeyBypassesCache(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var loads atomic.Int32
	loader := func(context.Context) (any, error) {
		loads.Add(1)
		return "uncached", nil
	}

	for i := 0; i < 2; i++ {
		if _, err := store.GetOrLoad(context.Background(), "", loader); err != nil {
			t.Fatalf("bypass load failed: %v", err)
		}
	}

	if got := loads.Load(); got != 2 {
		t.Fatalf("empty key must load every time, got %d loads", got)
	}
}
