package visibility

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the binary visibility state.
type State string

const (
	Foreground State = "foreground"
	Background State = "background"
)

// DefaultBackgroundMultiplier stretches polling intervals while backgrounded.
// Kept inside the 5-10x band so background consumers stay warm without
// hammering rate-limited providers.
const DefaultBackgroundMultiplier = 6

// Policy exposes visibility state and interval selection.
type Policy struct {
	logger     *slog.Logger
	multiplier int

	mu      sync.RWMutex
	state   State
	wakeSub map[uuid.UUID]chan struct{}
}

// Option configures a Policy.
type Option func(*Policy)

// WithBackgroundMultiplier overrides the background interval stretch.
func WithBackgroundMultiplier(m int) Option {
	return func(p *Policy) {
		if m > 0 {
			p.multiplier = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) {
		p.logger = logger
	}
}

// NewPolicy creates a policy starting in the foreground state.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		logger:     slog.Default(),
		multiplier: DefaultBackgroundMultiplier,
		state:      Foreground,
		wakeSub:    make(map[uuid.UUID]chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current visibility state.
func (p *Policy) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// SetState transitions the policy. A background-to-foreground transition
// fires one coalesced wake signal to every subscriber.
func (p *Policy) SetState(s State) {
	p.mu.Lock()
	prev := p.state
	p.state = s

	var wake []chan struct{}
	if prev == Background && s == Foreground {
		wake = make([]chan struct{}, 0, len(p.wakeSub))
		for _, ch := range p.wakeSub {
			wake = append(wake, ch)
		}
	}
	p.mu.Unlock()

	if prev != s {
		p.logger.Debug("visibility changed", "from", prev, "to", s)
	}

	for _, ch := range wake {
		// Non-blocking: a subscriber that has not consumed the previous
		// wake gets the two coalesced into one.
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Interval returns the effective polling interval for a foreground base
// interval under the current state.
func (p *Policy) Interval(foreground time.Duration) time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state == Background {
		return foreground * time.Duration(p.multiplier)
	}
	return foreground
}

// Wake registers a wake subscriber. The returned channel receives one
// signal per background-to-foreground transition. The cancel func removes
// the subscription.
func (p *Policy) Wake() (<-chan struct{}, func()) {
	id := uuid.New()
	ch := make(chan struct{}, 1)

	p.mu.Lock()
	p.wakeSub[id] = ch
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		delete(p.wakeSub, id)
		p.mu.Unlock()
	}
	return ch, cancel
}
