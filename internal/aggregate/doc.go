// Package aggregate merges per-instrument records from multiple source
// tags into one coherent snapshot.
//
// Pollers and the push channel race to update the same key; correctness
// comes from the deterministic merge policy, not from ordering:
//
//   - price: incoming wins only when it carries data (price > 0)
//   - 24h change: incoming wins when present, else the existing value holds
//   - detail fields (market cap, liquidity, logo, multi-horizon changes):
//     only the detailed source may write them; a fast or stream update
//     never clears them
//
// After merging, a field-by-field comparison against the previous merged
// record suppresses the change notification when nothing moved, keeping
// high-frequency polling from thrashing consumers.
package aggregate
