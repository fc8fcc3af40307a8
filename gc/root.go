package gc

import "github.com/pkg/errors"

// Pin keeps one slot alive until Release. Pins over the same slot are counted;
// the slot becomes collectable once every pin over it is released.
type Pin struct {
	heap     *Heap
	ref      Ref
	released bool
}

// Ref returns the pinned slot.
func (p *Pin) Ref() Ref { return p.ref }

// Heap returns the heap the pinned slot lives on.
func (p *Pin) Heap() *Heap { return p.heap }

// Released reports whether Release has been called.
func (p *Pin) Released() bool { return p.released }

// Release drops the pin. Releasing twice, or releasing a nil pin, is a no-op.
func (p *Pin) Release() {
	if p == nil || p.released {
		return
	}
	p.released = true
	if s, ok := p.heap.slotFor(p.ref); ok {
		s.roots--
	}
}

// Root is a typed Pin. It is the only way code outside this package holds a
// heap value across a point where a collection may run.
type Root[T Object] struct {
	Pin
	value T
}

func newRoot[T Object](h *Heap, ref Ref, v T) *Root[T] {
	h.mustSlot(ref).roots++
	return &Root[T]{Pin: Pin{heap: h, ref: ref}, value: v}
}

// Get returns the rooted value.
func (r *Root[T]) Get() T {
	if r.released {
		panic(errors.Wrapf(ErrReleasedRoot, "%v", r.ref))
	}
	return r.value
}

// Clone returns a second, independent root over the same slot.
func (r *Root[T]) Clone() *Root[T] {
	return newRoot(r.heap, r.ref, r.Get())
}

// Cast converts r into a root of another static type over the same slot,
// releasing r.
func Cast[U Object, T Object](r *Root[T]) *Root[U] {
	if r == nil {
		return nil
	}
	u, ok := any(r.Get()).(U)
	if !ok {
		panic(errors.Wrapf(ErrTypeMismatch, "%T is not %T", r.value, *new(U)))
	}
	out := newRoot(r.heap, r.ref, u)
	r.Release()
	return out
}

// Fetch roots the slot a strong reference points to. It returns nil for a
// null reference.
func Fetch[T Object](h *Heap, r Ref) *Root[T] {
	if r.IsNull() {
		return nil
	}
	v := Borrow[T](h, r)
	return newRoot(h, r, v)
}

// Upgrade roots the target of a weak reference. It returns nil when the
// reference is null or its target has been collected.
func Upgrade[T Object](h *Heap, w WeakRef) *Root[T] {
	if !h.Live(w.ref) {
		return nil
	}
	return Fetch[T](h, w.ref)
}

// Borrow returns the value r points to without rooting it. The result must
// not be used after anything that can allocate.
func Borrow[T Object](h *Heap, r Ref) T {
	var zero T
	if r.IsNull() {
		return zero
	}
	s := h.mustSlot(r)
	v, ok := s.value.(T)
	if !ok {
		panic(errors.Wrapf(ErrTypeMismatch, "%v holds %T, not %T", r, s.value, zero))
	}
	return v
}

// BorrowWeak is Borrow for a weak reference. The second result is false when
// the target is gone.
func BorrowWeak[T Object](h *Heap, w WeakRef) (T, bool) {
	if !h.Live(w.ref) {
		var zero T
		return zero, false
	}
	return Borrow[T](h, w.ref), true
}
