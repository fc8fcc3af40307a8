package dom

import "github.com/chrisuehlinger/vibedom/gc"

// ScriptContext is the scripting runtime a document's nodes are reflected
// into. Wrap resolves the wrap function for a leaf type; the function must
// create the script object, gc.Link it to the native node and return a root.
type ScriptContext interface {
	Wrap(tag TypeTag) gc.WrapFunc[Noder]
}

// reflectNode allocates v on the document's heap and reflects it into the
// document's script context. doc is pinned for the duration.
func reflectNode[T Noder](v T, doc *Document) *gc.Root[T] {
	pin := doc.Pin()
	defer pin.Release()
	return reflectInto(doc.Heap(), doc.script, v)
}

func reflectInto[T Noder](h *gc.Heap, cx ScriptContext, v T) *gc.Root[T] {
	wrap := cx.Wrap(v.AsNode().tag)
	return gc.Reflect(h, v, func(native *gc.Root[T]) *gc.Root[T] {
		wrap(gc.Cast[Noder](native.Clone())).Release()
		return native
	})
}

// InertReflector stands in for a script object in documents that have no
// script runtime.
type InertReflector struct {
	Tag    TypeTag
	Native gc.Ref
}

// InertContext reflects nodes into InertReflector values.
type InertContext struct{}

// Wrap implements ScriptContext.
func (InertContext) Wrap(tag TypeTag) gc.WrapFunc[Noder] {
	return func(native *gc.Root[Noder]) *gc.Root[Noder] {
		gc.Link(native.Get(), &InertReflector{Tag: tag, Native: native.Ref()})
		return native
	}
}
