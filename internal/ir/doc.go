// Package ir defines the compiled document representation the runtime
// consumes: sealed Expr and Node unions, the Document container, strict
// JSON decoding, deterministic encoding, and canonical value hashing.
//
// This package contains types and pure functions only. All other internal
// packages import ir; ir imports nothing internal. That keeps it the
// foundational layer with no circular dependencies.
//
// Key constraints:
//   - Numbers are float64 everywhere (JSON numeric model).
//   - Decoding is strict: unknown kinds and operators are load failures,
//     never silently skipped.
//   - Prototype-reaching path segments are rejected here and re-checked at
//     runtime; see IsForbiddenSegment.
//   - All JSON tags use snake_case.
package ir
