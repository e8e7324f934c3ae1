// Package provider implements REST clients for the upstream data sources.
//
// Two price providers feed the aggregator:
//   - fast: low-latency prices with 24h change and volume only
//   - detailed: full reference data (market cap, liquidity, logo,
//     multi-horizon changes) on a slower cadence
//
// A separate derivatives surface supplies funding rates, open interest,
// long/short ratios, global market data, and 24h tickers for the
// analytics engine.
//
// Provider failures are per-cycle: non-200 responses, timeouts, and
// malformed JSON surface as an error for that fetch only and are never
// propagated as core-level errors.
package provider
