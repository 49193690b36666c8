// Package render keeps a live host tree synchronized with compiled
// templates and mutable state.
//
// ARCHITECTURE:
//
// Mount Sessions:
// A Renderer serves one compiled document against one host. Each Mount call
// opens a session in one of two modes. Build mode constructs host nodes from
// nothing. Attach mode walks a pre-existing host tree (produced ahead of
// time by an equivalent build-mode render) in lock-step with the template,
// binding listeners and update effects onto the nodes already there.
// Both modes end in the same place: a set of tracking effects that rerun
// when their dependencies change and patch the host tree incrementally.
//
// Region Reconciliation:
// Conditional and list nodes own a persistent anchor plus the host nodes of
// whatever they currently show. A conditional swaps whole branches through a
// three-way state machine (then/else/none); branch content is never reused
// across a switch. An unkeyed list rebuilds wholesale on every change. A
// keyed list maps key values to per-item state carrying two signals (item
// value, index) that are written in place when a key survives a diff, so
// only the item internals re-render; nodes are then repositioned with
// minimal moves and focus is saved and restored around the move pass.
//
// Single-Writer Dispatch:
// All host mutation funnels through the Dispatcher loop. Host events and
// external state patches are enqueued from any goroutine and processed one
// at a time; signal writes rerun dependent effects synchronously, so each
// item's full cascade completes before the next item starts. Reactive
// faults (cycles, run quota) are logged and processing continues.
//
// Failure Policy:
// Only two faults are fatal to a session: an unrecognized node kind and an
// unrecognized expression construct, both indicating compiler/runtime
// version skew. Everything else degrades to "no value" and renders as
// absence.
package render
