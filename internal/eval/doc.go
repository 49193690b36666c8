// Package eval interprets compiled expression trees against a runtime
// context: state fields, local bindings, list scopes, imports, styles,
// route parameters, and host element lookups.
//
// The evaluator is total for well-formed trees. Exactly two faults return
// an error: an expression kind outside the sealed union and an operator
// outside the closed set, both of which mean the document was produced by
// an incompatible compiler. Every other anomaly (absent field, nil target,
// method outside a whitelist, forbidden path segment, out-of-range access)
// resolves to "no value", represented as Go nil, and propagates silently.
//
// Value model: JSON shapes only. Numbers are float64, strings are string,
// booleans bool, arrays []any, objects map[string]any. Times (time.Time)
// and callables (Func) enter through the safe global namespaces.
//
// Reads of state fields go through the reactive layer's subscription side
// effect: evaluating under a running effect subscribes that effect to every
// state field and list-scope slot the expression actually touched.
package eval
