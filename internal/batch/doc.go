// Package batch runs bounded sets of tasks with inter-batch pacing.
//
// The batcher keeps aggregate request rate under rate-limited providers'
// thresholds without serializing everything: at most N tasks run at once,
// and a pause separates full batches. A failing task yields a placeholder
// at its index and never blocks siblings or later batches.
package batch
