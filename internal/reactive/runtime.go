package reactive

import (
	"log/slog"
)

// DefaultMaxRuns bounds effect re-runs per outermost write. High enough for
// deep legitimate cascades, low enough to stop runaway loops quickly.
const DefaultMaxRuns = 1000

// Runtime owns the tracking state for one mount: the currently-running
// effect, the cascade guards, and the logger. Not safe for concurrent use;
// the dispatcher goroutine is the single writer.
type Runtime struct {
	logger  *slog.Logger
	active  *Effect
	depth   int
	runs    int
	maxRuns int
	err     *RuntimeError
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = logger
	}
}

// WithMaxRuns sets the effect-run quota per outermost write.
// n <= 0 disables the quota.
func WithMaxRuns(n int) Option {
	return func(rt *Runtime) {
		rt.maxRuns = n
	}
}

// New creates a Runtime.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		logger:  slog.Default(),
		maxRuns: DefaultMaxRuns,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// TakeError returns the first guard error of the most recent cascade and
// clears it. Returns nil when the cascade completed cleanly.
func (rt *Runtime) TakeError() error {
	if rt.err == nil {
		return nil
	}
	err := rt.err
	rt.err = nil
	return err
}

// beginCascade marks entry into a (possibly nested) notification pass.
// The guard counters reset only at the outermost level.
func (rt *Runtime) beginCascade() {
	rt.depth++
	if rt.depth == 1 {
		rt.runs = 0
		rt.err = nil
	}
}

func (rt *Runtime) endCascade() {
	rt.depth--
}

// notify re-runs one dependent during a cascade, consulting the guards.
// A poisoned cascade (guard already tripped) runs nothing further.
func (rt *Runtime) notify(e *Effect) {
	if rt.err != nil || e.disposed {
		return
	}
	if e.running {
		rt.fail(newCycleError(e.label))
		return
	}
	rt.runs++
	if rt.maxRuns > 0 && rt.runs > rt.maxRuns {
		rt.fail(newQuotaError(e.label, rt.runs, rt.maxRuns))
		return
	}
	e.run()
}

func (rt *Runtime) fail(err *RuntimeError) {
	rt.err = err
	rt.logger.Error("reactive cascade halted",
		"code", string(err.Code),
		"effect", err.EffectLabel,
		"error", err.Message)
}
