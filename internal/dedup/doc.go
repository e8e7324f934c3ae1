// Package dedup collapses concurrent identical in-flight fetches.
//
// For all concurrent callers sharing a key, the fetch function runs exactly
// once; every caller receives the same settled value or error. Keys are
// evicted the moment a call settles, so the next call starts fresh. A
// fallback timeout force-evicts keys whose fetch never settles.
package dedup
