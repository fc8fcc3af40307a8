package js

import (
	"sync"

	"github.com/dop251/goja"
)

// task represents a queued callback in the event loop.
type task struct {
	callback goja.Callable
	args     []goja.Value
}

// eventLoop holds the microtask queue. Timers are the only macrotask source.
type eventLoop struct {
	microtasks []task
	mu         sync.Mutex
}

func newEventLoop() *eventLoop {
	return &eventLoop{}
}

// queueMicrotask adds a microtask. Microtasks run before the next macrotask.
func (el *eventLoop) queueMicrotask(callback goja.Callable, args []goja.Value) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.microtasks = append(el.microtasks, task{callback: callback, args: args})
}

// runOnce drains the microtasks, then runs due timers, draining again after
// each so timer callbacks see their microtasks settled.
// Returns true if there are more events to process.
func (el *eventLoop) runOnce(r *Runtime) bool {
	el.drainMicrotasks(r)
	r.timers.process(r, func() { el.drainMicrotasks(r) })
	return el.hasPending() || r.timers.hasPending()
}

func (el *eventLoop) drainMicrotasks(r *Runtime) {
	for {
		el.mu.Lock()
		if len(el.microtasks) == 0 {
			el.mu.Unlock()
			return
		}
		t := el.microtasks[0]
		el.microtasks = el.microtasks[1:]
		el.mu.Unlock()
		r.call(t.callback, t.args)
	}
}

func (el *eventLoop) hasPending() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return len(el.microtasks) > 0
}

func (el *eventLoop) clear() {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.microtasks = nil
}
