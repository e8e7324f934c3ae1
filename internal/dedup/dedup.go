package dedup

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is the fallback eviction window for a fetch that never settles.
const DefaultTTL = 5 * time.Second

// call is a single shared in-flight fetch.
type call[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Group deduplicates concurrent fetches by key. The zero value is not
// usable; construct with NewGroup.
type Group[T any] struct {
	ttl   time.Duration
	after func(time.Duration, func()) // Timer injection for tests

	mu    sync.Mutex
	calls map[string]*call[T]
}

// Option configures a Group.
type Option[T any] func(*Group[T])

// WithTTL sets the fallback eviction window.
func WithTTL[T any](ttl time.Duration) Option[T] {
	return func(g *Group[T]) {
		g.ttl = ttl
	}
}

// WithTimerFunc replaces the eviction timer. Tests use it to trigger
// eviction without real time.
func WithTimerFunc[T any](after func(time.Duration, func())) Option[T] {
	return func(g *Group[T]) {
		g.after = after
	}
}

// NewGroup creates a deduplication group.
func NewGroup[T any](opts ...Option[T]) *Group[T] {
	g := &Group[T]{
		ttl:   DefaultTTL,
		calls: make(map[string]*call[T]),
	}
	g.after = func(d time.Duration, fn func()) {
		time.AfterFunc(d, fn)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Do returns the result of fn for key, sharing a single execution among all
// concurrent callers of the same key. The key is evicted as soon as fn
// settles; a later Do starts a fresh fetch. If fn never returns, the
// fallback TTL evicts the key so the group cannot wedge permanently.
func (g *Group[T]) Do(ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	g.mu.Lock()
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		select {
		case <-c.done:
			return c.val, c.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}

	c := &call[T]{done: make(chan struct{})}
	g.calls[key] = c
	g.mu.Unlock()

	// Force-evict the key if fn wedges. Late joiners then start a fresh
	// fetch instead of waiting forever; the wedged call's eventual result
	// is still delivered to its own waiters.
	g.after(g.ttl, func() {
		g.evict(key, c)
	})

	c.val, c.err = fn(ctx)
	close(c.done)
	g.evict(key, c)

	return c.val, c.err
}

// InFlight reports whether a fetch for key is currently shared.
func (g *Group[T]) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.calls[key]
	return ok
}

// evict removes key only if it still maps to this call.
func (g *Group[T]) evict(key string, c *call[T]) {
	g.mu.Lock()
	if cur, ok := g.calls[key]; ok && cur == c {
		delete(g.calls, key)
	}
	g.mu.Unlock()
}
