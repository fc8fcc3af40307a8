package gc

import "github.com/pkg/errors"

// WrapFunc creates the script object for a freshly allocated native value,
// links the two with Link and returns a root over the native value. Each
// concrete type has its own wrap function.
type WrapFunc[T Object] func(native *Root[T]) *Root[T]

// Reflect allocates v, roots it and pairs it with a script object through
// wrap. The native value is rooted for the whole call, so wrap may allocate.
// If wrap panics the root is released and the panic continues.
func Reflect[T Object](h *Heap, v T, wrap WrapFunc[T]) *Root[T] {
	root := Alloc(h, v)
	defer func() {
		if p := recover(); p != nil {
			root.Release()
			panic(p)
		}
	}()
	out := wrap(root)
	if !v.anchor().IsReflected() {
		if out != root {
			out.Release()
		}
		panic(errors.Wrapf(ErrNotReflected, "%T at %v", v, root.ref))
	}
	if out != root {
		root.Release()
	}
	return out
}

// Link records object as the reflector of native. It may be called once per
// value; the link is never repointed.
func Link(native Object, object any) {
	if object == nil {
		panic(errors.New("gc: nil reflector"))
	}
	a := native.anchor()
	if a.reflector != nil {
		panic(errors.Wrapf(ErrAlreadyReflected, "%T at %v", native, a.self))
	}
	a.reflector = object
}

// ReflectorOf returns the script object linked to o, or nil.
func ReflectorOf(o Object) any {
	return o.anchor().reflector
}

// SelfOf returns the slot o was allocated into.
func SelfOf(o Object) Ref {
	return o.anchor().self
}
