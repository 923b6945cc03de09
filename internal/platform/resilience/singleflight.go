package resilience

import "sync"

// SingleFlight collapses concurrent calls for the same key into one
// execution. The competition authority is a single endpoint, so a burst of
// identical profile or report reads should cost one round-trip.
type SingleFlight struct {
	mu      sync.Mutex
	flights map[string]*flight
}

type flight struct {
	done chan struct{}
	val  any
	err  error
}

// Do runs fn unless a flight for key is already active, in which case the
// caller waits for that flight and shares its result.
func (g *SingleFlight) Do(key string, fn func() (any, error)) (any, error) {
	g.mu.Lock()
	if g.flights == nil {
		g.flights = make(map[string]*flight)
	}
	if f, active := g.flights[key]; active {
		g.mu.Unlock()
		<-f.done
		return f.val, f.err
	}

	f := &flight{done: make(chan struct{})}
	g.flights[key] = f
	g.mu.Unlock()

	f.val, f.err = fn()

	g.mu.Lock()
	delete(g.flights, key)
	g.mu.Unlock()
	close(f.done)

	return f.val, f.err
}
