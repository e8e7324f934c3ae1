// Package model defines shared data types used across the sync core.
//
// Conventions:
//   - Prices, notionals, caps: float64 in quote currency (USD)
//   - Percent changes: float64 percentage points (1.5 = +1.5%); pointer
//     fields distinguish "absent" from a true zero
//   - Timestamps: time.Time, UTC
//   - Instrument keys: canonical strings (see Instrument.Key)
package model
