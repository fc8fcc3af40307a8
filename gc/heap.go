package gc

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Config controls heap sizing and collection scheduling.
type Config struct {
	// MaxSlots bounds the number of live slots. Zero means unbounded.
	MaxSlots int `mapstructure:"max_slots"`
	// CollectEvery runs a collection after that many allocations. Zero disables it.
	CollectEvery int `mapstructure:"collect_every"`
	// Stress collects before every allocation.
	Stress bool `mapstructure:"stress"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{MaxSlots: 1 << 20}
}

// Stats is a snapshot of heap counters.
type Stats struct {
	Slots       int           `json:"slots"`
	Live        int           `json:"live"`
	Rooted      int           `json:"rooted"`
	Allocations int           `json:"allocations"`
	Collections int           `json:"collections"`
	Freed       int           `json:"freed"`
	LastPause   time.Duration `json:"last_pause"`
}

type slot struct {
	value  Object
	gen    uint32
	roots  int
	marked bool
}

// Heap is an arena of traced slots. It is owned by one script context and is
// not safe for concurrent use.
type Heap struct {
	cfg    Config
	logger *zap.Logger

	slots      []slot
	free       []uint32
	live       int
	sinceGC    int
	collecting bool

	sources    []func(*Tracer)
	finalizers []func(Ref, Object)

	stats Stats
}

// NewHeap creates an empty heap. A nil logger disables logging.
func NewHeap(cfg Config, logger *zap.Logger) *Heap {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Heap{
		cfg:    cfg,
		logger: logger.Named("gc"),
	}
}

// Config returns the heap configuration.
func (h *Heap) Config() Config { return h.cfg }

// AddRootSource registers a function that marks extra roots at every collection.
func (h *Heap) AddRootSource(fn func(*Tracer)) {
	h.sources = append(h.sources, fn)
}

// OnFinalize registers a function called for each slot freed by a collection.
// It runs after the sweep and must not allocate.
func (h *Heap) OnFinalize(fn func(Ref, Object)) {
	h.finalizers = append(h.finalizers, fn)
}

// Alloc places v on the heap and returns a root over it.
func Alloc[T Object](h *Heap, v T) *Root[T] {
	ref := h.allocate(v)
	return newRoot(h, ref, v)
}

func (h *Heap) allocate(v Object) Ref {
	a := v.anchor()
	if a.heap != nil {
		panic(errors.Wrapf(ErrAlreadyAllocated, "%T at %v", v, a.self))
	}

	if h.cfg.Stress || (h.cfg.CollectEvery > 0 && h.sinceGC >= h.cfg.CollectEvery) {
		h.collect(v)
	}
	if h.full() {
		h.collect(v)
		if h.full() {
			h.logger.Error("heap exhausted",
				zap.String("type", typeName(v)),
				zap.Int("live", h.live),
				zap.Int("max_slots", h.cfg.MaxSlots))
			panic(errors.Wrapf(ErrHeapExhausted, "allocating %T with %d live slots", v, h.live))
		}
	}

	var idx uint32
	if n := len(h.free); n > 0 {
		idx = h.free[n-1]
		h.free = h.free[:n-1]
	} else {
		h.slots = append(h.slots, slot{gen: 1})
		idx = uint32(len(h.slots) - 1)
	}
	s := &h.slots[idx]
	s.value = v
	ref := Ref{index: idx + 1, gen: s.gen}
	a.heap, a.self = h, ref

	h.live++
	h.sinceGC++
	h.stats.Allocations++
	return ref
}

func (h *Heap) full() bool {
	return h.cfg.MaxSlots > 0 && h.live >= h.cfg.MaxSlots
}

// Collect runs a full collection and returns the number of slots freed.
func (h *Heap) Collect() int {
	return h.collect(nil)
}

// collect marks from pinned slots, root sources and the value being allocated
// (which has no slot yet but may hold references), then sweeps.
func (h *Heap) collect(pending Object) int {
	if h.collecting {
		return 0
	}
	h.collecting = true
	defer func() { h.collecting = false }()

	start := time.Now()
	t := &Tracer{heap: h}
	rooted := 0
	for i := range h.slots {
		s := &h.slots[i]
		if s.value != nil && s.roots > 0 {
			rooted++
			if !s.marked {
				s.marked = true
				t.gray = append(t.gray, uint32(i))
			}
		}
	}
	if pending != nil {
		pending.Trace(t)
	}
	for _, src := range h.sources {
		src(t)
	}
	t.drain()

	type dead struct {
		ref   Ref
		value Object
	}
	var freed []dead
	for i := range h.slots {
		s := &h.slots[i]
		if s.value == nil {
			continue
		}
		if s.marked {
			s.marked = false
			continue
		}
		freed = append(freed, dead{ref: Ref{index: uint32(i) + 1, gen: s.gen}, value: s.value})
		s.value = nil
		s.gen++
		h.free = append(h.free, uint32(i))
		h.live--
	}
	for _, d := range freed {
		for _, fn := range h.finalizers {
			fn(d.ref, d.value)
		}
	}

	h.sinceGC = 0
	h.stats.Collections++
	h.stats.Freed += len(freed)
	h.stats.LastPause = time.Since(start)
	h.logger.Debug("collection",
		zap.Int("live", h.live),
		zap.Int("freed", len(freed)),
		zap.Int("roots", rooted),
		zap.Duration("duration", h.stats.LastPause))
	return len(freed)
}

// Live reports whether r still points at the slot generation it was made for.
func (h *Heap) Live(r Ref) bool {
	_, ok := h.slotFor(r)
	return ok
}

// RootCount returns the number of roots currently pinning r.
func (h *Heap) RootCount(r Ref) int {
	if s, ok := h.slotFor(r); ok {
		return s.roots
	}
	return 0
}

// Len returns the number of live slots.
func (h *Heap) Len() int { return h.live }

// Stats returns a snapshot of the heap counters.
func (h *Heap) Stats() Stats {
	st := h.stats
	st.Slots = len(h.slots)
	st.Live = h.live
	for i := range h.slots {
		if h.slots[i].value != nil && h.slots[i].roots > 0 {
			st.Rooted++
		}
	}
	return st
}

func (h *Heap) slotFor(r Ref) (*slot, bool) {
	if r.IsNull() || int(r.index) > len(h.slots) {
		return nil, false
	}
	s := &h.slots[r.index-1]
	if s.value == nil || s.gen != r.gen {
		return nil, false
	}
	return s, true
}

func (h *Heap) mustSlot(r Ref) *slot {
	s, ok := h.slotFor(r)
	if !ok {
		panic(errors.Wrapf(ErrStaleRef, "%v", r))
	}
	return s
}

func (h *Heap) pin(r Ref) *Pin {
	h.mustSlot(r).roots++
	return &Pin{heap: h, ref: r}
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
