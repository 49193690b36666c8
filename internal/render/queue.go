package render

import (
	"context"
	"log/slog"
	"sync"

	"github.com/weftlabs/weft/internal/host"
	"github.com/weftlabs/weft/internal/reactive"
	"github.com/weftlabs/weft/internal/state"
)

type workKind int

const (
	// workEvent delivers a host event to its target element's listeners.
	workEvent workKind = iota + 1
	// workSet applies an external state patch.
	workSet
)

func (k workKind) String() string {
	switch k {
	case workEvent:
		return "event"
	case workSet:
		return "set"
	default:
		return "unknown"
	}
}

// workItem is one unit of dispatcher work.
type workItem struct {
	kind   workKind
	target host.Element
	event  host.Event
	field  string
	value  any
}

// workQueue is a thread-safe FIFO for dispatcher work.
//
// The queue is unbounded so a burst of host events or patches never blocks
// the producer. Thread-safety exists for external enqueuing while the Run
// loop dequeues; in practice most usage is single-threaded.
//
// A buffered size-1 channel signals availability, which keeps waiting in the
// Run loop context-aware and coalesces redundant wakeups.
type workQueue struct {
	mu     sync.Mutex
	items  []workItem
	closed bool
	signal chan struct{}
}

func newWorkQueue() *workQueue {
	return &workQueue{
		items:  make([]workItem, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an item to the back of the queue.
// Thread-safe. Returns false if the queue is closed.
func (q *workQueue) Enqueue(it workItem) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, it)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
func (q *workQueue) TryDequeue() (workItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return workItem{}, false
	}

	it := q.items[0]

	// Nil out the slot so the backing array does not retain the target
	// element or payload until reallocation.
	q.items[0] = workItem{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return it, true
}

// Wait returns the availability channel for select-based waiting. The
// channel closes when the queue closes, waking every waiter.
func (q *workQueue) Wait() <-chan struct{} {
	return q.signal
}

func (q *workQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *workQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close marks the queue as accepting no further items and wakes waiters.
func (q *workQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Dispatcher is the single-writer loop the whole runtime funnels mutation
// through. Host events and external state patches are enqueued from any
// goroutine and processed one at a time; every reactive cascade therefore
// runs to completion on the Run goroutine before the next item starts.
//
// An effect always observes fully-updated state: signal writes re-run
// dependents synchronously inside the item that caused them.
type Dispatcher struct {
	rt     *reactive.Runtime
	state  state.Store
	queue  *workQueue
	logger *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the structured logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher creates a Dispatcher over the runtime and store shared with
// the Renderer.
func NewDispatcher(rt *reactive.Runtime, st state.Store, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		rt:     rt,
		state:  st,
		queue:  newWorkQueue(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// EnqueueEvent submits a host event for delivery to target's listeners.
// Thread-safe. Returns false after Stop.
func (d *Dispatcher) EnqueueEvent(target host.Element, ev host.Event) bool {
	if target == nil {
		return false
	}
	return d.queue.Enqueue(workItem{kind: workEvent, target: target, event: ev})
}

// EnqueueSet submits an external state patch.
// Thread-safe. Returns false after Stop.
func (d *Dispatcher) EnqueueSet(field string, value any) bool {
	return d.queue.Enqueue(workItem{kind: workSet, field: field, value: value})
}

// Run starts the single-writer loop. Blocks until the context is cancelled
// or Stop is called; a Stop drains nothing further and returns nil once the
// queue is empty.
//
// Item failures never abort the loop. A reactive fault (cycle, run quota)
// raised during an item is collected after it and logged; processing
// continues with the next item. Retrying would make replay non-deterministic.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher starting")

	for {
		it, ok := d.queue.TryDequeue()
		if ok {
			d.process(it)
			continue
		}

		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping", "reason", "context cancelled")
			d.queue.Close()
			return ctx.Err()

		case <-d.queue.Wait():
			// New work, a stale coalesced token, or a closed queue. Only the
			// last one, once drained, ends the loop; anything else goes back
			// through TryDequeue.
			if d.queue.Closed() && d.queue.Len() == 0 {
				d.logger.Info("dispatcher stopping", "reason", "queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue, which causes Run to return after the current item.
// Thread-safe and idempotent.
func (d *Dispatcher) Stop() {
	d.queue.Close()
}

// Drain synchronously processes everything currently queued. It exists for
// tests and the CLI, where spinning up the Run goroutine for a handful of
// items is ceremony; production callers use Run.
func (d *Dispatcher) Drain() {
	for {
		it, ok := d.queue.TryDequeue()
		if !ok {
			return
		}
		d.process(it)
	}
}

func (d *Dispatcher) process(it workItem) {
	switch it.kind {
	case workEvent:
		it.target.Dispatch(it.event)
	case workSet:
		d.state.Set(it.field, it.value)
	}
	if err := d.rt.TakeError(); err != nil {
		d.logger.Error("reactive fault", "error", err, "kind", it.kind)
	}
}
