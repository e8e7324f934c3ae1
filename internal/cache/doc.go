// Package cache persists the last-known-good snapshot across restarts.
//
// The full price map is written as a single blob with a write timestamp.
// On cold start the blob hydrates in-memory state only while younger than
// the hydration window; anything older is ignored and the core waits for
// its first live fetch. Every successful fetch cycle overwrites the blob
// in full, never partially.
package cache
