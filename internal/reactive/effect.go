package reactive

// Effect is a computation re-run whenever one of the signals it read in its
// previous run changes. The first run happens synchronously inside Effect().
type Effect struct {
	rt       *Runtime
	label    string
	fn       func()
	deps     []*Signal
	running  bool
	disposed bool
}

// Effect creates and immediately runs an effect. The label names the effect
// in guard errors and debug logs; it carries no semantics.
//
// The first run always executes, even when created inside another effect or
// inside a cascade. Only notification-triggered re-runs consult the guards.
func (rt *Runtime) Effect(label string, fn func()) *Effect {
	e := &Effect{rt: rt, label: label, fn: fn}
	e.run()
	return e
}

// run executes the effect body under tracking, rebuilding the dependency
// set from scratch.
func (e *Effect) run() {
	e.detachAll()

	prev := e.rt.active
	e.rt.active = e
	e.running = true

	e.fn()

	e.running = false
	e.rt.active = prev

	// Disposed from inside its own body: drop the links gathered just now.
	if e.disposed {
		e.detachAll()
	}
}

// Dispose permanently detaches the effect from all dependencies.
// Idempotent: disposing twice is a no-op. Disposing from inside the
// effect's own body is allowed; detachment completes when the run returns.
func (e *Effect) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	if !e.running {
		e.detachAll()
	}
}

// Disposed reports whether the effect has been disposed.
func (e *Effect) Disposed() bool {
	return e.disposed
}

// Label returns the diagnostic label.
func (e *Effect) Label() string {
	return e.label
}

// DepCount reports the current dependency-set size.
// Used for testing and introspection.
func (e *Effect) DepCount() int {
	return len(e.deps)
}

func (e *Effect) addDep(s *Signal) {
	for _, d := range e.deps {
		if d == s {
			return
		}
	}
	e.deps = append(e.deps, s)
	s.attach(e)
}

func (e *Effect) detachAll() {
	for _, s := range e.deps {
		s.detach(e)
	}
	e.deps = e.deps[:0]
}
