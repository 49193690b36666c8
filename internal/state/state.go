// Package state implements the runtime's mutable state fields as a
// signal-backed map, so any evaluator read performed under an effect
// subscribes that effect automatically and any write re-runs exactly the
// effects that depend on the touched field.
package state

import (
	"log/slog"
	"slices"

	"github.com/weftlabs/weft/internal/reactive"
)

// Reader is the read side consumed by the evaluator.
type Reader interface {
	Get(name string) any
}

// Writer is the write side consumed by action executors.
type Writer interface {
	Set(name string, value any)
}

// Store is the full state surface.
type Store interface {
	Reader
	Writer
	Snapshot() map[string]any
}

// Sink receives write-through persistence for designated fields.
type Sink interface {
	Persist(name string, value any) error
}

// Map is the production Store: one lazily created signal per field.
// Confined to the dispatcher goroutine like the reactive runtime backing it.
type Map struct {
	rt      *reactive.Runtime
	logger  *slog.Logger
	fields  map[string]*reactive.Signal
	sink    Sink
	durable map[string]bool
}

// Option configures a Map.
type Option func(*Map)

// WithLogger sets the logger for persistence diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Map) { m.logger = logger }
}

// WithPersistence designates fields whose writes flow through to sink.
func WithPersistence(sink Sink, fields ...string) Option {
	return func(m *Map) {
		m.sink = sink
		for _, f := range fields {
			m.durable[f] = true
		}
	}
}

// NewMap creates a Map seeded with initial field values.
func NewMap(rt *reactive.Runtime, initial map[string]any, opts ...Option) *Map {
	m := &Map{
		rt:      rt,
		logger:  slog.Default(),
		fields:  make(map[string]*reactive.Signal, len(initial)),
		durable: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	for name, v := range initial {
		m.fields[name] = rt.Signal(v)
	}
	return m
}

// signal returns the field's signal, creating an empty one on first touch.
// Creating on read keeps "read absent field, then set it later" reactive.
func (m *Map) signal(name string) *reactive.Signal {
	s, ok := m.fields[name]
	if !ok {
		s = m.rt.Signal(nil)
		m.fields[name] = s
	}
	return s
}

// Get reads a field; under a running effect the read subscribes it.
func (m *Map) Get(name string) any {
	return m.signal(name).Get()
}

// Set writes a field, synchronously re-running dependent effects, then
// forwards the write to the persistence sink when the field is durable.
func (m *Map) Set(name string, value any) {
	m.signal(name).Set(value)
	if m.sink != nil && m.durable[name] {
		if err := m.sink.Persist(name, value); err != nil {
			m.logger.Warn("state persist failed", "field", name, "error", err)
		}
	}
}

// Load writes a field without the persistence side effect. Used when
// restoring persisted values at startup.
func (m *Map) Load(name string, value any) {
	m.signal(name).Set(value)
}

// Snapshot returns the current value of every field without subscribing.
func (m *Map) Snapshot() map[string]any {
	out := make(map[string]any, len(m.fields))
	for name, s := range m.fields {
		out[name] = s.Peek()
	}
	return out
}

// Keys returns the known field names, sorted.
func (m *Map) Keys() []string {
	out := make([]string, 0, len(m.fields))
	for name := range m.fields {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Subscribe runs fn with the field's new value after every change. The
// returned function cancels the subscription. fn is not called for the
// value current at subscription time.
func (m *Map) Subscribe(name string, fn func(value any)) func() {
	first := true
	eff := m.rt.Effect("subscribe:"+name, func() {
		v := m.signal(name).Get()
		if first {
			first = false
			return
		}
		fn(v)
	})
	return eff.Dispose
}
