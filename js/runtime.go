// Package js exposes dom nodes to script through the goja JavaScript engine
// (pure Go ES5.1+ implementation).
package js

import (
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chrisuehlinger/vibedom/dom"
	"github.com/chrisuehlinger/vibedom/gc"
)

// Runtime wraps a goja JavaScript runtime bound to one document on one heap.
// The runtime roots its document until Close.
type Runtime struct {
	vm        *goja.Runtime
	heap      *gc.Heap
	binder    *DOMBinder
	document  *gc.Root[*dom.Document]
	logger    *zap.Logger
	timers    *timerManager
	eventLoop *eventLoop

	mu           sync.Mutex
	errors       []error
	onError      func(error)
	scriptLoader ScriptLoader
	terminated   error
	closed       bool
}

// NewRuntime creates a runtime with a fresh document on h.
func NewRuntime(h *gc.Heap, logger *zap.Logger) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runtime{
		vm:        goja.New(),
		heap:      h,
		logger:    logger.Named("js"),
		timers:    newTimerManager(),
		eventLoop: newEventLoop(),
	}
	r.binder = newDOMBinder(r)
	r.document = dom.NewDocument(h, r.binder)
	r.logger = r.logger.With(zap.Stringer("document", r.document.Get().ID()))

	r.vm.Set("document", r.binder.value(r.document.Get()))
	r.vm.Set("window", r.vm.GlobalObject())
	r.setupConsole()
	r.setupTimers()
	return r
}

// Heap returns the heap the runtime allocates nodes on.
func (r *Runtime) Heap() *gc.Heap {
	return r.heap
}

// Binder returns the runtime's DOM binder.
func (r *Runtime) Binder() *DOMBinder {
	return r.binder
}

// Document returns a root over the runtime's document, or nil once the
// runtime is closed. The caller releases it.
func (r *Runtime) Document() *gc.Root[*dom.Document] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	return r.document.Clone()
}

// SetOnError sets a callback for JavaScript errors.
func (r *Runtime) SetOnError(handler func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = handler
}

// Execute runs JavaScript code and returns the result.
func (r *Runtime) Execute(code string) (goja.Value, error) {
	return r.ExecuteScript(code, "")
}

// ExecuteScript compiles and runs code; src names it in stack traces.
// Once the heap has been exhausted every call returns ErrContextTerminated.
func (r *Runtime) ExecuteScript(code, src string) (result goja.Value, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.usable(); err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			result, err = nil, r.recovered(p)
		}
	}()

	program, err := goja.Compile(src, code, false)
	if err != nil {
		return nil, r.report(errors.Wrap(err, "compile"))
	}
	result, err = r.vm.RunProgram(program)
	if err != nil {
		return nil, r.report(err)
	}
	return result, nil
}

// Errors returns all errors that occurred during execution.
func (r *Runtime) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error{}, r.errors...)
}

// ClearErrors clears the error list.
func (r *Runtime) ClearErrors() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = r.errors[:0]
}

// Terminated returns the termination error, or nil while the runtime is usable.
func (r *Runtime) Terminated() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.terminated
}

// RunEventLoop runs due timers and queued tasks once.
// Returns true if there are more events to process.
func (r *Runtime) RunEventLoop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.usable() != nil {
		return false
	}
	defer func() {
		if p := recover(); p != nil {
			r.recovered(p)
		}
	}()
	return r.eventLoop.runOnce(r)
}

// HasPendingWork returns true if there are timers or callbacks waiting.
func (r *Runtime) HasPendingWork() bool {
	return r.timers.hasPending() || r.eventLoop.hasPending()
}

// NextTimer returns how long until the next timer is due.
func (r *Runtime) NextTimer() time.Duration {
	return r.timers.nextDueTime()
}

// Close drops pending work, unpins every node script has seen and releases
// the document. It is safe to call more than once.
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.timers.clear()
	r.eventLoop.clear()
	r.binder.release()
	r.document.Release()
	r.logger.Debug("runtime closed")
}

func (r *Runtime) usable() error {
	if r.closed {
		return ErrRuntimeClosed
	}
	return r.terminated
}

// terminate marks the runtime dead, drops queued work and interrupts the
// running script. Only the first cause is kept.
func (r *Runtime) terminate(cause error) {
	if r.terminated != nil {
		return
	}
	r.terminated = errors.Wrap(ErrContextTerminated, cause.Error())
	r.timers.clear()
	r.eventLoop.clear()
	r.logger.Error("script context terminated", zap.Error(cause), zap.Int("live", r.heap.Len()))
	r.vm.Interrupt(r.terminated)
}

// recovered converts a panic that escaped the VM into an error. Heap
// exhaustion terminates the runtime.
func (r *Runtime) recovered(p any) error {
	err, ok := p.(error)
	if !ok {
		err = errors.Errorf("%v", p)
	}
	if errors.Is(err, gc.ErrHeapExhausted) {
		r.terminate(err)
		return r.report(r.terminated)
	}
	return r.report(errors.Wrap(err, "script execution panic"))
}

func (r *Runtime) report(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) && r.terminated != nil {
		err = r.terminated
	}
	r.errors = append(r.errors, err)
	if r.onError != nil {
		r.onError(err)
	}
	if !errors.Is(err, ErrContextTerminated) {
		r.logger.Warn("script error", zap.Error(err))
	}
	return err
}

// setupConsole creates the console object. Output goes to the runtime's logger.
func (r *Runtime) setupConsole() {
	console := r.vm.NewObject()
	log := r.logger.Named("console")

	levels := map[string]func(string, ...zap.Field){
		"log":   log.Info,
		"info":  log.Info,
		"warn":  log.Warn,
		"error": log.Error,
		"debug": log.Debug,
		"trace": log.Debug,
	}
	for name, write := range levels {
		console.Set(name, func(call goja.FunctionCall) goja.Value {
			write(formatArgs(call.Arguments))
			return goja.Undefined()
		})
	}

	console.Set("assert", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 || !call.Arguments[0].ToBoolean() {
			msg := "Assertion failed"
			if len(call.Arguments) > 1 {
				msg = formatArgs(call.Arguments[1:])
			}
			log.Error(msg)
		}
		return goja.Undefined()
	})

	counts := make(map[string]int)
	console.Set("count", func(call goja.FunctionCall) goja.Value {
		label := "default"
		if len(call.Arguments) > 0 {
			label = call.Arguments[0].String()
		}
		counts[label]++
		log.Info(label, zap.Int("count", counts[label]))
		return goja.Undefined()
	})

	r.vm.Set("console", console)
}

// setupTimers creates setTimeout, setInterval, clearTimeout, clearInterval and queueMicrotask.
func (r *Runtime) setupTimers() {
	schedule := func(repeat bool) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			callback, ok := goja.AssertFunction(call.Argument(0))
			if !ok {
				return goja.Undefined()
			}
			delay := call.Argument(1).ToInteger()
			if delay < 0 {
				delay = 0
			}
			var args []goja.Value
			if len(call.Arguments) > 2 {
				args = call.Arguments[2:]
			}
			id := r.timers.schedule(callback, time.Duration(delay)*time.Millisecond, repeat, args)
			return r.vm.ToValue(id)
		}
	}
	clearTimer := func(call goja.FunctionCall) goja.Value {
		r.timers.clearTimer(int(call.Argument(0).ToInteger()))
		return goja.Undefined()
	}

	r.vm.Set("setTimeout", schedule(false))
	r.vm.Set("setInterval", schedule(true))
	r.vm.Set("clearTimeout", clearTimer)
	r.vm.Set("clearInterval", clearTimer)
	r.vm.Set("queueMicrotask", func(call goja.FunctionCall) goja.Value {
		callback, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(r.vm.NewTypeError("Failed to execute 'queueMicrotask': parameter 1 is not of type 'Function'."))
		}
		r.eventLoop.queueMicrotask(callback, nil)
		return goja.Undefined()
	})
}

// call runs a queued callback, reporting any exception it throws.
func (r *Runtime) call(callback goja.Callable, args []goja.Value) {
	if r.terminated != nil {
		return
	}
	if _, err := callback(goja.Undefined(), args...); err != nil {
		r.report(err)
	}
}

func formatArgs(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = formatValue(arg)
	}
	return strings.Join(parts, " ")
}

func formatValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	return v.String()
}
