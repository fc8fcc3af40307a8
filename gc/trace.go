// Package gc implements the traced heap that DOM objects live on.
//
// Values are placed into indexed slots of a Heap. A slot stays alive while it
// is pinned by a Root or reachable from a pinned slot through strong
// references (Ref) reported by Trace. Weak references (WeakRef) are never
// followed by the collector; resolving one whose target was collected yields
// nothing rather than a dangling value.
//
// Allocation and rooting are one step: Alloc and Reflect return a Root, and no
// function hands out a freshly allocated value without one.
package gc

import (
	"fmt"

	"github.com/pkg/errors"
)

// Ref is a strong reference to a heap slot. The zero Ref is null.
type Ref struct {
	index uint32 // slot index + 1
	gen   uint32
}

// IsNull reports whether the reference points nowhere.
func (r Ref) IsNull() bool { return r.index == 0 }

// Weak returns a weak reference to the same slot.
func (r Ref) Weak() WeakRef { return WeakRef{ref: r} }

func (r Ref) String() string {
	if r.IsNull() {
		return "Ref(null)"
	}
	return fmt.Sprintf("Ref(%d@%d)", r.index-1, r.gen)
}

// WeakRef is a reference the collector does not follow.
type WeakRef struct {
	ref Ref
}

// IsNull reports whether the reference points nowhere.
func (w WeakRef) IsNull() bool { return w.ref.IsNull() }

// Is reports whether w refers to the same slot generation as r.
func (w WeakRef) Is(r Ref) bool { return w.ref == r }

func (w WeakRef) String() string { return "Weak" + w.ref.String() }

// Traceable is implemented by every heap value. Trace reports each strong
// reference the value holds; a type embedding another traceable type traces
// its own fields and then delegates to the embedded one.
type Traceable interface {
	Trace(t *Tracer)
}

// Object is a value that can live on a Heap. It is satisfied only by types
// embedding Anchor.
type Object interface {
	Traceable
	anchor() *Anchor
}

// Anchor ties a value to its slot and to its script-side reflector. It must be
// embedded, by value, at the bottom of every heap type.
type Anchor struct {
	heap      *Heap
	self      Ref
	reflector any
}

func (a *Anchor) anchor() *Anchor { return a }

// Heap returns the heap the value was allocated on, or nil before allocation.
func (a *Anchor) Heap() *Heap { return a.heap }

// Self returns the value's own slot reference.
func (a *Anchor) Self() Ref { return a.self }

// Reflector returns the script object linked to the value, if any.
func (a *Anchor) Reflector() any { return a.reflector }

// IsReflected reports whether Link has been called for the value.
func (a *Anchor) IsReflected() bool { return a.reflector != nil }

// Pin roots the value's own slot. Methods that allocate pin their receiver
// first so the receiver survives any collection the allocation triggers.
func (a *Anchor) Pin() *Pin {
	if a.heap == nil {
		panic(errors.WithStack(ErrNotAllocated))
	}
	return a.heap.pin(a.self)
}

// Tracer accumulates the slots reached during a collection.
type Tracer struct {
	heap *Heap
	gray []uint32
}

// Trace marks the slot r points to as reachable.
func (t *Tracer) Trace(r Ref) {
	if r.IsNull() {
		return
	}
	s := t.heap.mustSlot(r)
	if s.marked {
		return
	}
	s.marked = true
	t.gray = append(t.gray, r.index-1)
}

// TraceAll marks every reference in refs.
func (t *Tracer) TraceAll(refs []Ref) {
	for _, r := range refs {
		t.Trace(r)
	}
}

func (t *Tracer) drain() {
	for len(t.gray) > 0 {
		i := t.gray[len(t.gray)-1]
		t.gray = t.gray[:len(t.gray)-1]
		t.heap.slots[i].value.Trace(t)
	}
}
