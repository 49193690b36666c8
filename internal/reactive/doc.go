// Package reactive implements the fine-grained reactivity core: signals
// holding values and effects that re-run when the signals they read change.
//
// Dependency tracking is automatic. While an effect runs, every Signal.Get
// it performs links the signal to the effect; before each re-run the link
// set is rebuilt from scratch, so an effect only ever depends on the signals
// its most recent run actually read.
//
// Writes are synchronous: Signal.Set re-runs every current dependent before
// returning, and nested writes cascade to completion. Two guards bound the
// cascade: a re-entry check (an effect writing one of its own dependencies
// is reported as a cycle) and a total run quota per outermost write. A
// tripped guard poisons the remainder of the cascade and is surfaced
// through Runtime.TakeError.
//
// The package is intentionally not safe for concurrent use. All access must
// happen on the dispatcher goroutine that owns the Runtime; that single
// writer is what makes the synchronous cascade semantics deterministic.
package reactive
