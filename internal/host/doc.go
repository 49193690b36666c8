// Package host defines the runtime's view of a UI tree and provides an
// in-memory implementation of it.
//
// The renderer only ever touches the small Document/Element/Text surface:
// create nodes, reposition them, set attributes and text, bind listeners,
// manage focus. MemoryDocument implements that surface for tests, the CLI
// and server-side rendering, and journals every mutation with a monotonic
// sequence number so behavior can be asserted operation by operation rather
// than only on final tree shape.
package host
