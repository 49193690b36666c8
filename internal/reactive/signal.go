package reactive

import (
	"reflect"
	"slices"
)

// Signal is a reactive value container. Reading it inside a running effect
// subscribes that effect; writing it synchronously re-runs the subscribers.
type Signal struct {
	rt    *Runtime
	value any
	subs  []*Effect
}

// Signal creates a signal holding initial.
func (rt *Runtime) Signal(initial any) *Signal {
	return &Signal{rt: rt, value: initial}
}

// Get returns the current value and subscribes the running effect, if any.
func (s *Signal) Get() any {
	if a := s.rt.active; a != nil {
		a.addDep(s)
	}
	return s.value
}

// Peek returns the current value without subscribing anyone.
// Used by the renderer when it needs a value outside reactive tracking.
func (s *Signal) Peek() any {
	return s.value
}

// Set stores v and synchronously re-runs the current subscribers.
// A write of a deeply-equal value is a no-op: subscribers do not re-run.
// The subscriber list is snapshotted first, so effects that subscribe or
// unsubscribe during the pass do not affect this pass.
func (s *Signal) Set(v any) {
	if reflect.DeepEqual(s.value, v) {
		return
	}
	s.value = v

	if len(s.subs) == 0 {
		return
	}
	s.rt.beginCascade()
	defer s.rt.endCascade()
	for _, e := range slices.Clone(s.subs) {
		s.rt.notify(e)
	}
}

// Update applies fn to the current value and Sets the result.
func (s *Signal) Update(fn func(any) any) {
	s.Set(fn(s.value))
}

func (s *Signal) attach(e *Effect) {
	s.subs = append(s.subs, e)
}

func (s *Signal) detach(e *Effect) {
	for i, sub := range s.subs {
		if sub == e {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// SubscriberCount reports the current number of dependents.
// Used for testing and introspection.
func (s *Signal) SubscriberCount() int {
	return len(s.subs)
}
