// Package service wires the sync core together: pollers, request
// deduplication, batched REST fetches, the streaming channel with its REST
// fallback, source aggregation, snapshot caching, and derived analytics.
//
// The service surface (Subscribe, GetSnapshot, Refresh, DerivedMetrics) never
// returns upstream errors; a failed cycle degrades to stale data and a Warn
// log entry.
package service
