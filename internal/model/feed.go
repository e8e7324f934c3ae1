package model

import "time"

// -----------------------------------------------------------------------------
// Raw feed types (derivatives + global market inputs to the analytics engine)
// -----------------------------------------------------------------------------

// FundingRate is the current perpetual funding rate for a symbol.
type FundingRate struct {
	Symbol string
	Rate   float64 // Per-interval rate (0.01 = 1%)
}

// OpenInterestStat is aggregate open interest for a symbol.
type OpenInterestStat struct {
	Symbol      string
	NotionalUSD float64
	Change24h   float64 // Percent change over 24h
}

// LongShortStat is the long/short account ratio for a symbol.
type LongShortStat struct {
	Symbol    string
	LongPct   float64 // 0-100
	ShortPct  float64 // 0-100
	Timestamp time.Time
}

// GlobalMarket is the market-wide summary from the reference provider.
type GlobalMarket struct {
	TotalMarketCapUSD   float64
	TotalVolume24hUSD   float64
	BTCDominance        float64 // 0-100
	ETHDominance        float64 // 0-100
	StablecoinDominance float64 // 0-100
}

// TickerStat is a 24h ticker row used for gainers/losers and sector math.
type TickerStat struct {
	Symbol    string
	Price     float64
	Change24h float64
	Volume24h float64
}

// -----------------------------------------------------------------------------
// Derived metrics (engine output, rebuilt wholesale each cycle)
// -----------------------------------------------------------------------------

// SectorStage is one of six lifecycle stages for a sector's rotation.
type SectorStage string

const (
	StageEarly    SectorStage = "early"
	StageEarlyMid SectorStage = "early-mid"
	StageMid      SectorStage = "mid"
	StageMidLate  SectorStage = "mid-late"
	StageLate     SectorStage = "late"
	StageExhaust  SectorStage = "exhausted"
)

// SectorPerformance is the average 24h performance of one sector.
type SectorPerformance struct {
	Name      string
	Symbols   []string
	AvgChange float64
	Stage     SectorStage
}

// AltSeason is the alt-season index with its label.
type AltSeason struct {
	Index int    // 0-100
	Label string // "Alt Season", "Rotation", "BTC Season", "BTC Dominant"
}

// WhaleFlow is the heuristic net positioning flow estimate. It is derived
// from open interest and long/short skew, not from verified on-chain data.
type WhaleFlow struct {
	NetUSD    float64 // Positive = net short notional pressure
	LongUSD   float64
	ShortUSD  float64
	Timestamp time.Time
}

// ScenarioKind is a classified market-condition archetype.
type ScenarioKind string

const (
	ScenarioCrashReversal ScenarioKind = "crash-reversal"
	ScenarioEuphoriaTop   ScenarioKind = "euphoria-top"
	ScenarioBreakout      ScenarioKind = "breakout-continuation"
	ScenarioShortSqueeze  ScenarioKind = "short-squeeze-setup"
	ScenarioConsolidation ScenarioKind = "consolidation"
)

// PriceLevel is a computed key level for a scenario.
type PriceLevel struct {
	Label string
	Price float64
}

// Scenario is the single selected market scenario with its narrative.
type Scenario struct {
	Kind       ScenarioKind
	BullCase   string
	BearCase   string
	Levels     []PriceLevel
	Confidence int // 0-100
}

// Anomaly is a live unusual-condition event derived from the raw feed.
type Anomaly struct {
	Symbol   string
	Kind     string // "funding-extreme", "oi-surge", "positioning-skew"
	Detail   string
	Severity float64
}

// DerivedMetrics is the full analytics output for one raw-feed cycle.
// It is recreated in full each successful cycle and never mutated
// field-by-field by external code.
type DerivedMetrics struct {
	FundingRates []FundingRate
	OpenInterest []OpenInterestStat
	LongShort    []LongShortStat
	Global       GlobalMarket
	AltSeason    AltSeason
	Sectors      []SectorPerformance
	WhaleFlow    WhaleFlow
	Anomalies    []Anomaly
	Scenario     Scenario
	ComputedAt   time.Time
}
