package acquisition

import (
	"context"
	"sync"
	"time"
)

// flight is one in-progress resolution of a symbol. It completes exactly once.
// Its work runs on ctx, which belongs to the cache and not to any caller.
type flight struct {
	done chan struct{}
	once sync.Once
	res  Result

	ctx     context.Context
	cancel  context.CancelFunc
	waiters int // guarded by flightGroup.mu
}

func (f *flight) complete(res Result) bool {
	ok := false
	f.once.Do(func() {
		f.res = res
		close(f.done)
		ok = true
	})
	return ok
}

func (f *flight) completed() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// flightGroup marks the symbols that have a resolution in progress.
// A flight may outlive the goroutine that started it: the fetch runs on one
// pool and training on another, and whichever stage ends it completes it.
type flightGroup struct {
	mu sync.Mutex
	m  map[string]*flight
}

func newFlightGroup() *flightGroup {
	return &flightGroup{m: make(map[string]*flight)}
}

// join registers the caller as a waiter on key's flight, starting one when none exists.
// leader is true for the caller that started it. A new flight's context keeps the
// values of parent, drops its cancellation and ends after timeout.
func (g *flightGroup) join(parent context.Context, key string, timeout time.Duration) (f *flight, leader bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if f, ok := g.m[key]; ok {
		f.waiters++
		return f, false
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), timeout)
	f = &flight{done: make(chan struct{}), ctx: ctx, cancel: cancel, waiters: 1}
	g.m[key] = f
	return f, true
}

// leave drops a waiter that stopped waiting before the flight completed.
// When the last waiter leaves the flight is cancelled and detached, so a
// later join starts a new one instead of inheriting the cancellation.
func (g *flightGroup) leave(key string, f *flight) {
	g.mu.Lock()
	f.waiters--
	last := f.waiters <= 0
	if last && g.m[key] == f {
		delete(g.m, key)
	}
	g.mu.Unlock()
	if last {
		f.cancel()
	}
}

func (g *flightGroup) forget(key string, f *flight) {
	g.mu.Lock()
	if g.m[key] == f {
		delete(g.m, key)
	}
	g.mu.Unlock()
	f.cancel()
}

func (g *flightGroup) inFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.m)
}
