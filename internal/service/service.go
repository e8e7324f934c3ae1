package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mavismavis1124-blip/marketsync/internal/aggregate"
	"github.com/mavismavis1124-blip/marketsync/internal/cache"
	"github.com/mavismavis1124-blip/marketsync/internal/dedup"
	"github.com/mavismavis1124-blip/marketsync/internal/model"
	"github.com/mavismavis1124-blip/marketsync/internal/provider"
	"github.com/mavismavis1124-blip/marketsync/internal/stream"
	"github.com/mavismavis1124-blip/marketsync/internal/visibility"
)

// PriceProvider fetches price records over REST.
type PriceProvider interface {
	FetchFast(ctx context.Context, keys []string) (map[string]model.PriceRecord, error)
	FetchDetailed(ctx context.Context, keys []string) (map[string]model.PriceRecord, error)
}

// FeedProvider fetches the raw derivatives and global-market feed.
type FeedProvider interface {
	FetchDerivatives(ctx context.Context) (provider.Derivatives, error)
	FetchGlobal(ctx context.Context) (model.GlobalMarket, error)
	FetchTickers(ctx context.Context) ([]model.TickerStat, error)
}

// Streamer is the live update channel. *stream.Channel satisfies it.
type Streamer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Subscribe(address, network string, fn stream.UpdateFunc) (func(), error)
	Abandoned() bool
}

// Config holds service cadence and batching settings.
type Config struct {
	FastInterval     time.Duration // Fast price poll cadence (default: 5s)
	DetailedInterval time.Duration // Detailed token poll cadence (default: 60s)
	FeedInterval     time.Duration // Raw derivatives feed cadence (default: 180s)
	Concurrency      int           // Max simultaneous fetch chunks (default: 5)
	BatchPause       time.Duration // Pause between fetch batches (default: 250ms)
	DedupTTL         time.Duration // Fallback eviction for wedged fetches (default: 5s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		FastInterval:     5 * time.Second,
		DetailedInterval: 60 * time.Second,
		FeedInterval:     180 * time.Second,
		Concurrency:      5,
		BatchPause:       250 * time.Millisecond,
		DedupTTL:         5 * time.Second,
	}
}

// Deps holds the service's collaborators. Channel, Feed, and Cache may be
// nil: the service then runs REST-only, skips analytics, or skips
// persistence respectively.
type Deps struct {
	Prices     PriceProvider
	Feed       FeedProvider
	Channel    Streamer
	Cache      *cache.SnapshotCache
	Visibility *visibility.Policy
	Logger     *slog.Logger
}

// watchEntry tracks one subscribed instrument with its consumer refcount.
type watchEntry struct {
	inst         model.Instrument
	refs         int
	streaming    bool
	cancelStream func()
}

// Service is the market-data synchronization core.
type Service struct {
	cfg     Config
	prices  PriceProvider
	feed    FeedProvider
	channel Streamer
	agg     *aggregate.Aggregator
	cache   *cache.SnapshotCache
	vis     *visibility.Policy
	logger  *slog.Logger

	priceGroup *dedup.Group[map[string]model.PriceRecord]
	feedGroup  *dedup.Group[feedResult]

	mu    sync.Mutex
	watch map[string]*watchEntry

	metricsMu sync.RWMutex
	metrics   model.DerivedMetrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Service. The aggregator is owned by the service.
func New(cfg Config, deps Deps) *Service {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = DefaultConfig().DedupTTL
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	vis := deps.Visibility
	if vis == nil {
		vis = visibility.NewPolicy()
	}
	return &Service{
		cfg:        cfg,
		prices:     deps.Prices,
		feed:       deps.Feed,
		channel:    deps.Channel,
		agg:        aggregate.New(aggregate.DefaultConfig(), logger),
		cache:      deps.Cache,
		vis:        vis,
		logger:     logger.With("component", "service"),
		priceGroup: dedup.NewGroup[map[string]model.PriceRecord](dedup.WithTTL[map[string]model.PriceRecord](cfg.DedupTTL)),
		feedGroup:  dedup.NewGroup[feedResult](dedup.WithTTL[feedResult](cfg.DedupTTL)),
		watch:      make(map[string]*watchEntry),
	}
}

// Start hydrates from the cache, opens the stream channel, and launches the
// poll loops.
func (s *Service) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.cache != nil {
		if snap, ok := s.cache.Load(s.ctx); ok {
			s.agg.Hydrate(snap)
			s.logger.Info("hydrated snapshot from cache", "records", len(snap.Records))
		}
	}

	if s.channel != nil {
		if err := s.channel.Start(s.ctx); err != nil {
			s.logger.Warn("stream channel start failed, continuing on REST", "error", err)
		}
	}

	// Register the wake subscribers before the loops launch so a
	// visibility transition right after Start is not missed. Each poll
	// loop holds its own subscription: a foreground transition must both
	// trigger one immediate refresh and re-arm every timer at the
	// foreground cadence.
	wake, wakeCancel := s.vis.Wake()
	fastWake, fastCancel := s.vis.Wake()
	detailedWake, detailedCancel := s.vis.Wake()
	feedWake, feedCancel := s.vis.Wake()

	s.wg.Add(4)
	go s.pollLoop(s.cfg.FastInterval, s.refreshFast, fastWake, fastCancel)
	go s.pollLoop(s.cfg.DetailedInterval, s.refreshDetailed, detailedWake, detailedCancel)
	go s.pollLoop(s.cfg.FeedInterval, s.refreshFeed, feedWake, feedCancel)
	go s.wakeLoop(wake, wakeCancel)

	s.logger.Info("sync service started",
		"fast_interval", s.cfg.FastInterval,
		"detailed_interval", s.cfg.DetailedInterval,
		"feed_interval", s.cfg.FeedInterval,
	)
	return nil
}

// Stop shuts down the poll loops and the stream channel, then persists a
// final snapshot.
func (s *Service) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if s.channel != nil {
		if err := s.channel.Stop(ctx); err != nil {
			s.logger.Warn("stream channel stop failed", "error", err)
		}
	}

	s.persist(ctx)
	s.logger.Info("sync service stopped")
	return nil
}

// Subscribe registers a consumer for an instrument and returns its
// unsubscribe function. The first consumer of an instrument picks the
// delivery path: the stream channel when it is available, otherwise REST
// polling. A subscription made after the channel has been abandoned always
// polls.
func (s *Service) Subscribe(inst model.Instrument) (func(), error) {
	key := inst.Key()
	if key == "" {
		return nil, errors.New("instrument has no key")
	}

	s.mu.Lock()
	entry, ok := s.watch[key]
	if !ok {
		entry = &watchEntry{inst: inst}
		s.watch[key] = entry

		if s.channel != nil && inst.Address != "" && !s.channel.Abandoned() {
			cancel, err := s.channel.Subscribe(inst.Address, inst.Network, s.streamApply(key))
			switch {
			case err == nil:
				entry.streaming = true
				entry.cancelStream = cancel
			case errors.Is(err, stream.ErrAbandoned):
				// Channel gave up while we were deciding; poll instead.
			default:
				s.logger.Warn("stream subscribe failed, polling instead", "key", key, "error", err)
			}
		}
	}
	entry.refs++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(key) })
	}, nil
}

func (s *Service) unsubscribe(key string) {
	s.mu.Lock()
	entry, ok := s.watch[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	entry.refs--
	var cancelStream func()
	if entry.refs <= 0 {
		cancelStream = entry.cancelStream
		delete(s.watch, key)
	}
	s.mu.Unlock()

	if cancelStream != nil {
		cancelStream()
	}
}

// GetSnapshot returns the current merged record for a key.
func (s *Service) GetSnapshot(key string) (model.PriceRecord, bool) {
	return s.agg.Get(key)
}

// Snapshot returns a copy of the full merged snapshot.
func (s *Service) Snapshot() model.Snapshot {
	return s.agg.Snapshot()
}

// Events exposes the aggregator's coalesced change notifications.
func (s *Service) Events() <-chan aggregate.Event {
	return s.agg.Events()
}

// DerivedMetrics returns the analytics output of the last successful raw-feed
// cycle. Stale metrics are retained across failed cycles.
func (s *Service) DerivedMetrics() model.DerivedMetrics {
	s.metricsMu.RLock()
	defer s.metricsMu.RUnlock()
	return s.metrics
}

// SetVisibility switches foreground/background pacing. A transition back to
// the foreground also triggers one immediate refresh via the wake loop.
func (s *Service) SetVisibility(state visibility.State) {
	s.vis.SetState(state)
}

// streamApply builds the channel callback for one key. Updates for a key
// that has since been torn down are discarded at apply time.
func (s *Service) streamApply(key string) stream.UpdateFunc {
	return func(u stream.PriceUpdate) {
		if !s.watched(key) {
			return
		}
		s.agg.Apply(key, model.PriceRecord{
			Price:     u.Price,
			Change24h: model.Float64(u.Change24h),
			Volume24h: u.Volume24h,
			Source:    model.SourceStream,
			UpdatedAt: u.ReceivedAt,
		})
	}
}

func (s *Service) watched(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.watch[key]
	return ok
}

// restKeys returns the keys the fast poller must fetch: every key on the
// REST path, plus every key once the stream channel has been abandoned.
func (s *Service) restKeys() []string {
	abandoned := s.channel == nil || s.channel.Abandoned()

	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.watch))
	for key, entry := range s.watch {
		if abandoned || !entry.streaming {
			keys = append(keys, key)
		}
	}
	return keys
}

// allKeys returns every watched key, regardless of delivery path.
func (s *Service) allKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.watch))
	for key := range s.watch {
		keys = append(keys, key)
	}
	return keys
}

// pollLoop runs one refresh function on a cadence stretched by the
// visibility policy while backgrounded. A wake signal discards whatever
// stretched wait is pending and re-arms the timer at the current interval,
// so the loop returns to the foreground cadence immediately instead of
// sitting out the rest of a background-length wait.
func (s *Service) pollLoop(base time.Duration, refresh func(context.Context), wake <-chan struct{}, cancel func()) {
	defer s.wg.Done()
	defer cancel()

	timer := time.NewTimer(s.vis.Interval(base))
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.vis.Interval(base))
		case <-timer.C:
			refresh(s.ctx)
			timer.Reset(s.vis.Interval(base))
		}
	}
}

// wakeLoop refreshes once per background-to-foreground transition.
func (s *Service) wakeLoop(wake <-chan struct{}, cancel func()) {
	defer s.wg.Done()
	defer cancel()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-wake:
			s.logger.Info("foregrounded, refreshing")
			_ = s.Refresh(s.ctx)
		}
	}
}
