package js

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chrisuehlinger/vibedom/gc"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestRuntime(t *testing.T, cfg gc.Config) *Runtime {
	t.Helper()
	r := NewRuntime(gc.NewHeap(cfg, nil), nil)
	t.Cleanup(r.Close)
	return r
}

func TestRuntimeExecute(t *testing.T) {
	r := newTestRuntime(t, gc.Config{})

	result, err := r.Execute("1 + 2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.ToInteger())

	result, err = r.Execute("typeof document + ' ' + (window.document === document)")
	require.NoError(t, err)
	assert.Equal(t, "object true", result.String())
}

func TestRuntimeErrors(t *testing.T) {
	r := newTestRuntime(t, gc.Config{})
	var reported []error
	r.SetOnError(func(err error) { reported = append(reported, err) })

	_, err := r.Execute("throw new Error('boom')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, err = r.ExecuteScript("var = ;", "broken.js")
	require.Error(t, err)

	assert.Len(t, r.Errors(), 2)
	assert.Len(t, reported, 2)
	r.ClearErrors()
	assert.Empty(t, r.Errors())

	_, err = r.Execute("1")
	assert.NoError(t, err, "errors do not terminate the runtime")
	assert.NoError(t, r.Terminated())
}

func TestRuntimeConsole(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := NewRuntime(gc.NewHeap(gc.Config{}, nil), zap.New(core))
	defer r.Close()

	_, err := r.Execute(`console.log("hello", 42, null); console.warn("careful"); console.assert(false, "nope")`)
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("hello 42 null").Len())
	assert.Equal(t, 1, logs.FilterMessage("careful").FilterLevelExact(zap.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("nope").FilterLevelExact(zap.ErrorLevel).Len())
}

func TestRuntimeTimers(t *testing.T) {
	r := newTestRuntime(t, gc.Config{})
	now := time.Unix(0, 0)
	r.timers.now = func() time.Time { return now }

	_, err := r.Execute(`
		var order = [];
		setTimeout(function() { order.push("late"); }, 20);
		setTimeout(function(x) { order.push(x); queueMicrotask(function() { order.push("micro"); }); }, 10, "early");
		var id = setTimeout(function() { order.push("cleared"); }, 5);
		clearTimeout(id);
		var ticks = 0;
		var iv = setInterval(function() { if (++ticks == 2) clearInterval(iv); }, 10);
	`)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, r.NextTimer())

	now = now.Add(10 * time.Millisecond)
	assert.True(t, r.RunEventLoop())
	now = now.Add(10 * time.Millisecond)
	assert.False(t, r.RunEventLoop())
	assert.False(t, r.HasPendingWork())

	result, err := r.Execute(`order.join(",") + " " + ticks`)
	require.NoError(t, err)
	assert.Equal(t, "early,micro,late 2", result.String())
}

func TestRuntimeHeapExhaustionTerminates(t *testing.T) {
	r := newTestRuntime(t, gc.Config{MaxSlots: 16})
	before := r.Heap().Stats().Collections

	_, err := r.Execute(`
		var kept = [];
		for (;;) { kept.push(document.createElement("video")); }
	`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContextTerminated), "got %v", err)
	assert.True(t, errors.Is(r.Terminated(), ErrContextTerminated))
	assert.Equal(t, before+1, r.Heap().Stats().Collections, "exactly one forced collection")

	_, err = r.Execute("1")
	assert.True(t, errors.Is(err, ErrContextTerminated))
	assert.False(t, r.RunEventLoop())
}

func TestRuntimeTerminationDropsQueuedWork(t *testing.T) {
	r := newTestRuntime(t, gc.Config{MaxSlots: 20})
	now := time.Unix(0, 0)
	r.timers.now = func() time.Time { return now }

	_, err := r.Execute(`
		setTimeout(function() {
			var kept = [];
			for (;;) { kept.push(document.createElement("audio")); }
		}, 0);
		setTimeout(function() {}, 60000);
		queueMicrotask(function() {});
	`)
	require.NoError(t, err)
	require.True(t, r.HasPendingWork())

	assert.False(t, r.RunEventLoop())
	assert.True(t, errors.Is(r.Terminated(), ErrContextTerminated))
	assert.False(t, r.HasPendingWork())
	assert.Zero(t, r.NextTimer())
}

func TestEscapedNodesStayPinnedUntilClose(t *testing.T) {
	h := gc.NewHeap(gc.Config{MaxSlots: 200}, nil)
	r := NewRuntime(h, nil)
	defer r.Close()

	_, err := r.Execute(`for (var i = 0; i < 1000; i++) document.createElement("div");`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContextTerminated))
	assert.Equal(t, 200, h.Len(), "dropped nodes were handed to script and stay pinned")

	r.Close()
	h.Collect()
	assert.Zero(t, h.Len())
}

func TestRuntimeClose(t *testing.T) {
	h := gc.NewHeap(gc.Config{}, nil)
	r := NewRuntime(h, nil)

	_, err := r.Execute(`
		var v = document.createElement("video");
		v.setAttribute("src", "a.webm");
		setTimeout(function() {}, 1000);
	`)
	require.NoError(t, err)
	h.Collect()
	assert.Equal(t, 3, h.Len(), "document, video and its attribute")

	r.Close()
	r.Close()
	assert.False(t, r.HasPendingWork())
	h.Collect()
	assert.Zero(t, h.Len())
	assert.Empty(t, r.binder.natives)

	_, err = r.Execute("1")
	assert.True(t, errors.Is(err, ErrRuntimeClosed))
}
