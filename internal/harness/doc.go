// Package harness provides conformance testing for compiled documents.
//
// The harness loads a document, mounts it on an in-memory host, drives it
// through a scripted sequence of state writes and host events, and checks
// expectations against the tree, the state and the mutation journal after
// every step. Each run produces a trace of serialized snapshots suitable
// for golden-file comparison.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: counter_click
//	description: "Clicking the button bumps the rendered count"
//	document: counter.json
//	component: app
//	state:
//	  count: 0
//	actions:
//	  increment: { do: set, field: count }
//	steps:
//	  - dispatch: { at: "#inc", event: click }
//	    expect:
//	      - { type: text, select: "p.count", equals: "1" }
//	  - set: { field: count, value: 5 }
//	expect:
//	  - { type: state, field: count, equals: 5 }
//	  - { type: count, select: "li", count: 3 }
//
// The document is resolved relative to the scenario file; small fixtures
// can inline the JSON under an `inline` key instead. Steps are applied on
// the scenario's single goroutine, so each expectation observes a fully
// settled tree.
//
// # Attach Equivalence
//
// RunEquivalence runs the same scenario twice: once built from scratch and
// once attached to markup a previous session rendered (build, normalize,
// re-attach). The two runs must produce identical rendered HTML and state
// at every step; the journals may differ, since an attaching mount claims
// nodes instead of creating them.
package harness
