package aggregate

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mavismavis1124-blip/marketsync/internal/model"
)

// Event is a change notification for one instrument key.
type Event struct {
	Key    string
	Record model.PriceRecord
}

// Config holds aggregator settings.
type Config struct {
	EventBufferSize int // Change notification buffer (default: 256)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{EventBufferSize: 256}
}

// Aggregator maintains the merged best-known record per instrument key.
type Aggregator struct {
	logger *slog.Logger

	mu          sync.RWMutex
	merged      map[string]model.PriceRecord
	bySource    map[string]map[model.Source]model.PriceRecord
	lastUpdated time.Time

	events  chan Event
	dropped atomic.Int64
}

// New creates an aggregator.
func New(cfg Config, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = DefaultConfig().EventBufferSize
	}

	return &Aggregator{
		logger:   logger,
		merged:   make(map[string]model.PriceRecord),
		bySource: make(map[string]map[model.Source]model.PriceRecord),
		events:   make(chan Event, cfg.EventBufferSize),
	}
}

// Apply merges an incoming record for key and reports whether the merged
// record actually changed. An unchanged merge emits no notification.
func (a *Aggregator) Apply(key string, incoming model.PriceRecord) bool {
	a.mu.Lock()

	existing, had := a.merged[key]
	merged := merge(existing, incoming)

	// Replace (never append) the per-source record.
	srcs, ok := a.bySource[key]
	if !ok {
		srcs = make(map[model.Source]model.PriceRecord)
		a.bySource[key] = srcs
	}
	srcs[incoming.Source] = incoming

	if had && merged.Equal(existing) {
		a.mu.Unlock()
		return false
	}

	a.merged[key] = merged
	a.lastUpdated = merged.UpdatedAt
	a.mu.Unlock()

	select {
	case a.events <- Event{Key: key, Record: merged}:
	default:
		a.dropped.Add(1)
		a.logger.Warn("event buffer full, dropping notification", "key", key)
	}

	return true
}

// Get returns the merged record for key.
func (a *Aggregator) Get(key string) (model.PriceRecord, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	rec, ok := a.merged[key]
	return rec, ok
}

// SourceRecord returns the latest raw record a given source produced for
// key, before merging.
func (a *Aggregator) SourceRecord(key string, src model.Source) (model.PriceRecord, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	rec, ok := a.bySource[key][src]
	return rec, ok
}

// Snapshot returns a copy of the full merged state.
func (a *Aggregator) Snapshot() model.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := model.Snapshot{
		Records:     make(map[string]model.PriceRecord, len(a.merged)),
		LastUpdated: a.lastUpdated,
	}
	for k, v := range a.merged {
		out.Records[k] = v
	}
	return out
}

// Hydrate seeds the merged state from a persisted snapshot. Existing
// entries are kept: hydration only fills gaps, live data always wins.
func (a *Aggregator) Hydrate(snap model.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for k, v := range snap.Records {
		if _, ok := a.merged[k]; !ok {
			a.merged[k] = v
		}
	}
	if a.lastUpdated.IsZero() {
		a.lastUpdated = snap.LastUpdated
	}
}

// Events returns the change notification channel.
func (a *Aggregator) Events() <-chan Event {
	return a.events
}

// merge applies the deterministic source-priority policy.
func merge(existing, incoming model.PriceRecord) model.PriceRecord {
	out := existing

	// A record without price data never overwrites a known price.
	if incoming.HasPrice() {
		out.Price = incoming.Price
	}

	if incoming.Change24h != nil {
		out.Change24h = incoming.Change24h
	}
	if incoming.Volume24h > 0 {
		out.Volume24h = incoming.Volume24h
	}

	// Detail fields are owned by the detailed source; fast and stream
	// updates pass them through untouched.
	if incoming.Source == model.SourceDetailed {
		out.MarketCap = incoming.MarketCap
		out.Liquidity = incoming.Liquidity
		out.LogoURL = incoming.LogoURL
		out.Change1h = incoming.Change1h
		out.Change7d = incoming.Change7d
		out.Change30d = incoming.Change30d
		out.Change1y = incoming.Change1y
	}

	out.Source = incoming.Source
	if !incoming.UpdatedAt.IsZero() {
		out.UpdatedAt = incoming.UpdatedAt
	} else {
		out.UpdatedAt = time.Now().UTC()
	}

	return out
}
