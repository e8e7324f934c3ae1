// Package visibility tracks foreground/background state for cadence control.
//
// Every periodic task consults the policy to pick its interval: the
// configured interval while foreground, stretched by a multiplier while
// background. A background-to-foreground transition additionally fires one
// immediate wake signal so returning consumers are not left staring at
// stale data until the next tick.
package visibility
