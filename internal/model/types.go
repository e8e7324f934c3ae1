package model

import (
	"strings"
	"time"
)

// InstrumentClass distinguishes exchange-listed majors from on-chain tokens.
type InstrumentClass string

const (
	ClassMajor   InstrumentClass = "major"
	ClassOnChain InstrumentClass = "onchain"
)

// Source identifies the upstream provider that produced a PriceRecord.
// It arbitrates field-level merge priority in the aggregator.
type Source string

const (
	// SourceFast is the low-latency provider: price, 24h change, volume only.
	SourceFast Source = "fast"

	// SourceDetailed is the slow reference provider: full field coverage
	// including market cap, liquidity, logo, and multi-horizon changes.
	SourceDetailed Source = "detailed"

	// SourceStream is the push channel: price, 24h change, volume only.
	SourceStream Source = "stream"
)

// Instrument identifies a tracked asset. Immutable once created; equality
// is by canonical key.
type Instrument struct {
	Symbol  string
	Address string // On-chain token address, empty for majors
	Network string // Chain/network ID, paired with Address
	Class   InstrumentClass
}

// Key returns the canonical identity for the instrument: lowercased
// "address:network" for on-chain tokens, uppercased symbol otherwise.
func (i Instrument) Key() string {
	if i.Address != "" {
		return strings.ToLower(i.Address) + ":" + strings.ToLower(i.Network)
	}
	return strings.ToUpper(i.Symbol)
}

// CanonicalKey builds the canonical key for an address/network pair.
func CanonicalKey(address, network string) string {
	return strings.ToLower(address) + ":" + strings.ToLower(network)
}

// PriceRecord is the per-instrument market state from a single fetch or
// stream cycle. A record with Price <= 0 carries no price data; the merge
// policy treats it as absent, never as a valid zero price.
type PriceRecord struct {
	Price     float64
	Change24h *float64
	Change1h  *float64
	Change7d  *float64
	Change30d *float64
	Change1y  *float64
	Volume24h float64
	MarketCap float64
	Liquidity float64
	LogoURL   string
	Source    Source
	UpdatedAt time.Time
}

// HasPrice reports whether the record carries usable price data.
func (r PriceRecord) HasPrice() bool {
	return r.Price > 0
}

// Equal compares two records field by field, ignoring Source and UpdatedAt.
// The aggregator uses it to suppress redundant change notifications.
func (r PriceRecord) Equal(o PriceRecord) bool {
	return r.Price == o.Price &&
		floatPtrEqual(r.Change24h, o.Change24h) &&
		floatPtrEqual(r.Change1h, o.Change1h) &&
		floatPtrEqual(r.Change7d, o.Change7d) &&
		floatPtrEqual(r.Change30d, o.Change30d) &&
		floatPtrEqual(r.Change1y, o.Change1y) &&
		r.Volume24h == o.Volume24h &&
		r.MarketCap == o.MarketCap &&
		r.Liquidity == o.Liquidity &&
		r.LogoURL == o.LogoURL
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Float64 returns a pointer to v. Convenience for building records.
func Float64(v float64) *float64 {
	return &v
}

// Snapshot is the best-known PriceRecord per canonical instrument key.
// It only ever grows by key: unsubscribing removes a consumer, not the
// cached value.
type Snapshot struct {
	Records     map[string]PriceRecord
	LastUpdated time.Time
}

// Clone returns a deep copy safe to hand to consumers.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Records:     make(map[string]PriceRecord, len(s.Records)),
		LastUpdated: s.LastUpdated,
	}
	for k, v := range s.Records {
		out.Records[k] = v
	}
	return out
}
