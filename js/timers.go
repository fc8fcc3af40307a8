package js

import (
	"sort"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// timer is a scheduled setTimeout or setInterval callback.
type timer struct {
	id       int
	callback goja.Callable
	args     []goja.Value
	dueTime  time.Time
	interval time.Duration // 0 for setTimeout
}

// timerManager manages setTimeout and setInterval timers. Timers only fire
// from Runtime.RunEventLoop; nothing runs in the background.
type timerManager struct {
	timers map[int]*timer
	nextID int
	now    func() time.Time
	mu     sync.Mutex
}

func newTimerManager() *timerManager {
	return &timerManager{
		timers: make(map[int]*timer),
		nextID: 1,
		now:    time.Now,
	}
}

func (tm *timerManager) schedule(callback goja.Callable, delay time.Duration, repeat bool, args []goja.Value) int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	id := tm.nextID
	tm.nextID++
	t := &timer{
		id:       id,
		callback: callback,
		args:     args,
		dueTime:  tm.now().Add(delay),
	}
	if repeat {
		// A zero interval would spin the loop.
		t.interval = max(delay, time.Millisecond)
	}
	tm.timers[id] = t
	return id
}

func (tm *timerManager) clearTimer(id int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	delete(tm.timers, id)
}

// process runs every due timer, earliest first. Ties run in scheduling order.
// after runs after each callback.
func (tm *timerManager) process(r *Runtime, after func()) {
	tm.mu.Lock()
	now := tm.now()
	var due []*timer
	for _, t := range tm.timers {
		if !t.dueTime.After(now) {
			due = append(due, t)
		}
	}
	tm.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if !due[i].dueTime.Equal(due[j].dueTime) {
			return due[i].dueTime.Before(due[j].dueTime)
		}
		return due[i].id < due[j].id
	})

	for _, t := range due {
		tm.mu.Lock()
		_, live := tm.timers[t.id]
		tm.mu.Unlock()
		if !live {
			continue
		}

		r.call(t.callback, t.args)
		after()

		tm.mu.Lock()
		if _, live := tm.timers[t.id]; live {
			if t.interval > 0 {
				t.dueTime = tm.now().Add(t.interval)
			} else {
				delete(tm.timers, t.id)
			}
		}
		tm.mu.Unlock()
	}
}

func (tm *timerManager) hasPending() bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return len(tm.timers) > 0
}

// nextDueTime returns the time until the next timer is due.
// Returns 0 if no timers are pending, or if a timer is already due.
func (tm *timerManager) nextDueTime() time.Duration {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	var next time.Duration = -1
	now := tm.now()
	for _, t := range tm.timers {
		d := t.dueTime.Sub(now)
		if d <= 0 {
			return 0
		}
		if next < 0 || d < next {
			next = d
		}
	}
	return max(next, 0)
}

func (tm *timerManager) clear() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	clear(tm.timers)
}
