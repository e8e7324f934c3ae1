package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mavismavis1124-blip/marketsync/internal/model"
)

// DialFunc produces a connected Client. Injected so channel behavior is
// testable without sockets or timers.
type DialFunc func(ctx context.Context) (Client, error)

// Channel manages the push connection lifecycle and fans inbound updates
// out to per-key subscribers. It is constructed explicitly and injected
// into the service; there is no package-level instance.
type Channel struct {
	cfg    ChannelConfig
	dial   DialFunc
	logger *slog.Logger

	// after is the retry timer, injectable for tests.
	after func(time.Duration) <-chan time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	state    ChannelState
	failures int // Consecutive connect failures
	client   Client
	subs     map[string]map[uuid.UUID]UpdateFunc // key -> subscriber set
}

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithTimer replaces the retry timer.
func WithTimer(after func(time.Duration) <-chan time.Time) ChannelOption {
	return func(ch *Channel) {
		ch.after = after
	}
}

// NewChannel creates a push channel using dial for connections.
func NewChannel(cfg ChannelConfig, dial DialFunc, logger *slog.Logger, opts ...ChannelOption) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultChannelConfig().MaxFailures
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = DefaultChannelConfig().RetryWait
	}

	ch := &Channel{
		cfg:    cfg,
		dial:   dial,
		logger: logger,
		after:  time.After,
		state:  StateConnecting,
		subs:   make(map[string]map[uuid.UUID]UpdateFunc),
	}
	for _, opt := range opts {
		opt(ch)
	}
	return ch
}

// Start begins the connect/read/retry loop.
func (ch *Channel) Start(ctx context.Context) error {
	ch.ctx, ch.cancel = context.WithCancel(ctx)

	ch.wg.Add(1)
	go ch.run()

	return nil
}

// Stop tears down the channel.
func (ch *Channel) Stop(ctx context.Context) error {
	if ch.cancel != nil {
		ch.cancel()
	}

	done := make(chan struct{})
	go func() {
		ch.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		ch.logger.Warn("channel stop timed out")
	}

	ch.mu.Lock()
	if ch.client != nil {
		ch.client.Close()
		ch.client = nil
	}
	ch.mu.Unlock()

	return nil
}

// State returns the current lifecycle state.
func (ch *Channel) State() ChannelState {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.state
}

// Abandoned reports whether the channel has permanently given up.
// Subscribers must check this before registering and use the REST path
// when it returns true.
func (ch *Channel) Abandoned() bool {
	return ch.State() == StateAbandoned
}

// Subscribe registers an update callback for an address/network pair.
// The first subscriber for a key sends the upstream subscribe frame; the
// last unsubscribe sends the upstream unsubscribe and removes the key.
// Returns ErrAbandoned when the channel has permanently fallen back.
func (ch *Channel) Subscribe(address, network string, fn UpdateFunc) (func(), error) {
	key := model.CanonicalKey(address, network)

	ch.mu.Lock()
	if ch.state == StateAbandoned {
		ch.mu.Unlock()
		return nil, ErrAbandoned
	}

	id := uuid.New()
	set, existed := ch.subs[key]
	if !existed {
		set = make(map[uuid.UUID]UpdateFunc)
		ch.subs[key] = set
	}
	set[id] = fn
	client := ch.client
	open := ch.state == StateOpen
	ch.mu.Unlock()

	if !existed && open && client != nil {
		ch.announce(client.Subscribe, address, network)
	}

	unsubscribe := func() {
		ch.mu.Lock()
		set, ok := ch.subs[key]
		if !ok {
			ch.mu.Unlock()
			return
		}
		delete(set, id)
		last := len(set) == 0
		if last {
			delete(ch.subs, key)
		}
		client := ch.client
		open := ch.state == StateOpen
		ch.mu.Unlock()

		if last && open && client != nil {
			ch.announce(client.Unsubscribe, address, network)
		}
	}

	return unsubscribe, nil
}

// SubscriberCount returns the number of callbacks registered for a key.
func (ch *Channel) SubscriberCount(key string) int {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return len(ch.subs[key])
}

// run is the connect/read/retry loop. It exits on context cancellation or
// on transition to the terminal abandoned state.
func (ch *Channel) run() {
	defer ch.wg.Done()

	for {
		select {
		case <-ch.ctx.Done():
			return
		default:
		}

		ch.setState(StateConnecting)

		client, err := ch.dial(ch.ctx)
		if err != nil {
			if ch.recordFailure() {
				return
			}
			if !ch.waitRetry() {
				return
			}
			continue
		}

		ch.mu.Lock()
		ch.client = client
		ch.failures = 0
		ch.state = StateOpen
		ch.mu.Unlock()
		ch.logger.Info("push channel open")

		ch.replaySubscriptions(client)

		// Read until the connection dies.
		if !ch.readLoop(client) {
			return
		}

		client.Close()
		ch.mu.Lock()
		ch.client = nil
		ch.mu.Unlock()

		// A dropped connection is retried; only failed connect attempts
		// count toward abandonment.
		ch.setState(StateRetrying)
		if !ch.waitRetry() {
			return
		}
	}
}

// readLoop consumes parsed updates until an error or shutdown. Returns
// false when the channel should stop entirely.
func (ch *Channel) readLoop(client Client) bool {
	for {
		select {
		case <-ch.ctx.Done():
			return false

		case err := <-client.Errors():
			ch.logger.Warn("push connection error", "error", err)
			return true

		case update, ok := <-client.Updates():
			if !ok {
				return true
			}
			ch.dispatch(update)
		}
	}
}

// dispatch fans one update out to the subscribers of its key.
func (ch *Channel) dispatch(update PriceUpdate) {
	ch.mu.RLock()
	fns := make([]UpdateFunc, 0, len(ch.subs[update.Key]))
	for _, fn := range ch.subs[update.Key] {
		fns = append(fns, fn)
	}
	ch.mu.RUnlock()

	for _, fn := range fns {
		fn(update)
	}
}

// replaySubscriptions re-announces every active key on a fresh connection.
func (ch *Channel) replaySubscriptions(client Client) {
	ch.mu.RLock()
	keys := make([]string, 0, len(ch.subs))
	for key := range ch.subs {
		keys = append(keys, key)
	}
	ch.mu.RUnlock()

	for _, key := range keys {
		address, network := splitKey(key)
		ch.announce(client.Subscribe, address, network)
	}

	if len(keys) > 0 {
		ch.logger.Debug("replayed subscriptions", "count", len(keys))
	}
}

// recordFailure bumps the consecutive-failure counter. Returns true when
// the channel crossed the abandonment threshold: the state is terminal
// and no further reconnect is ever scheduled.
func (ch *Channel) recordFailure() bool {
	ch.mu.Lock()
	ch.failures++
	abandoned := ch.failures >= ch.cfg.MaxFailures
	if abandoned {
		ch.state = StateAbandoned
	}
	failures := ch.failures
	ch.mu.Unlock()

	if abandoned {
		ch.logger.Warn("push channel abandoned, REST fallback from here on",
			"consecutive_failures", failures,
		)
		return true
	}

	ch.logger.Debug("push connect failed", "consecutive_failures", failures)
	return false
}

// waitRetry blocks for the fixed backoff. Returns false on shutdown.
func (ch *Channel) waitRetry() bool {
	select {
	case <-ch.ctx.Done():
		return false
	case <-ch.after(ch.cfg.RetryWait):
		return true
	}
}

func (ch *Channel) setState(s ChannelState) {
	ch.mu.Lock()
	// Abandoned is terminal; nothing moves the channel out of it.
	if ch.state != StateAbandoned {
		ch.state = s
	}
	ch.mu.Unlock()
}

// announce sends one subscribe or unsubscribe via the client, logging
// rather than propagating failures: a broken connection surfaces through
// the read loop and triggers a replay on reconnect anyway.
func (ch *Channel) announce(send func(address, network string) error, address, network string) {
	if err := send(address, network); err != nil {
		ch.logger.Warn("subscription announce failed",
			"address", address,
			"network", network,
			"error", err,
		)
	}
}

// splitKey reverses model.CanonicalKey for replay frames.
func splitKey(key string) (address, network string) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == ':' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}
