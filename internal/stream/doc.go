// Package stream implements the push channel with permanent REST fallback.
//
// The Channel runs a small state machine: connecting -> open -> retrying ->
// abandoned. On open it replays every active subscription upstream. Inbound
// price updates fan out to ref-counted per-key callbacks. After three
// consecutive connection failures the channel abandons permanently for the
// process lifetime; subscribers must check Abandoned() before registering
// and run an independent REST poll instead. The two paths are mutually
// exclusive per subscription so an update is never applied twice.
package stream
