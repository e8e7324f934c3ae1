// Package analytics derives higher-order metrics from the raw feed.
//
// Compute is a pure function: one raw-feed batch in, one DerivedMetrics
// out. It runs once per successful fetch cycle, never per consumer read,
// so dependents observe at most one new value per cycle.
//
// The whale-flow and confidence multipliers are heuristic constants with
// no empirical calibration behind them; treat the outputs as directional
// estimates, not measurements.
package analytics
