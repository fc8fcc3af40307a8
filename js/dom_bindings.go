package js

import (
	"github.com/dop251/goja"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chrisuehlinger/vibedom/dom"
	"github.com/chrisuehlinger/vibedom/gc"
	"github.com/chrisuehlinger/vibedom/html"
)

// domExceptionCode returns the legacy exception code for a DOMException name.
func domExceptionCode(name string) int {
	codes := map[string]int{
		"IndexSizeError":        1,
		"HierarchyRequestError": 3,
		"WrongDocumentError":    4,
		"InvalidCharacterError": 5,
		"NotFoundError":         8,
		"NotSupportedError":     9,
		"InvalidStateError":     11,
	}
	return codes[name]
}

// DOMBinder reflects dom nodes into goja objects. It implements
// dom.ScriptContext: every node constructed for the runtime's document gets
// exactly one script object, created with the prototype of its leaf type.
//
// Nodes whose script object has been handed to script are kept alive until
// the runtime is closed, since the heap cannot see references held by the VM.
// The escape set only grows: live slots are bounded below by the number of
// distinct nodes script has touched, so a script that keeps creating and
// dropping nodes exhausts a heap with MaxSlots set and terminates the runtime.
type DOMBinder struct {
	runtime *Runtime
	natives map[*goja.Object]gc.Ref
	escaped map[gc.Ref]struct{}
	protos  map[dom.TypeTag]*goja.Object

	nodeProto         *goja.Object
	elementProto      *goja.Object
	domExceptionProto *goja.Object
}

func newDOMBinder(r *Runtime) *DOMBinder {
	b := &DOMBinder{
		runtime: r,
		natives: make(map[*goja.Object]gc.Ref),
		escaped: make(map[gc.Ref]struct{}),
		protos:  make(map[dom.TypeTag]*goja.Object),
	}
	b.setupPrototypes()
	r.heap.AddRootSource(b.traceEscaped)
	r.heap.OnFinalize(b.finalize)
	return b
}

// Wrap implements dom.ScriptContext.
func (b *DOMBinder) Wrap(tag dom.TypeTag) gc.WrapFunc[dom.Noder] {
	proto, ok := b.protos[tag]
	if !ok {
		panic(errors.Errorf("js: no prototype for %v", tag))
	}
	return func(native *gc.Root[dom.Noder]) *gc.Root[dom.Noder] {
		obj := b.runtime.vm.NewObject()
		obj.SetPrototype(proto)
		gc.Link(native.Get(), obj)
		b.natives[obj] = native.Ref()
		return native
	}
}

// NativeOf returns the node reflected by obj.
func (b *DOMBinder) NativeOf(obj *goja.Object) (gc.Ref, bool) {
	ref, ok := b.natives[obj]
	return ref, ok
}

// ScriptObjectOf returns the script object of a live node.
func (b *DOMBinder) ScriptObjectOf(ref gc.Ref) (*goja.Object, bool) {
	if !b.runtime.heap.Live(ref) {
		return nil, false
	}
	obj, ok := gc.ReflectorOf(gc.Borrow[dom.Noder](b.runtime.heap, ref)).(*goja.Object)
	return obj, ok
}

// Escaped reports whether script has been handed the node's object.
func (b *DOMBinder) Escaped(ref gc.Ref) bool {
	_, ok := b.escaped[ref]
	return ok
}

func (b *DOMBinder) traceEscaped(t *gc.Tracer) {
	for ref := range b.escaped {
		t.Trace(ref)
	}
}

func (b *DOMBinder) finalize(_ gc.Ref, o gc.Object) {
	if obj, ok := gc.ReflectorOf(o).(*goja.Object); ok {
		delete(b.natives, obj)
	}
}

func (b *DOMBinder) release() {
	b.runtime.logger.Debug("releasing script-held nodes", zap.Int("count", len(b.escaped)))
	clear(b.escaped)
}

// value returns the script object of n and marks it escaped.
func (b *DOMBinder) value(n dom.Noder) goja.Value {
	if n == nil {
		return goja.Null()
	}
	b.escaped[gc.SelfOf(n)] = struct{}{}
	return gc.ReflectorOf(n).(*goja.Object)
}

// rootValue is value over a root, which it releases.
func rootValue[T dom.Noder](b *DOMBinder, r *gc.Root[T]) goja.Value {
	if r == nil {
		return goja.Null()
	}
	defer r.Release()
	return b.value(r.Get())
}

func (b *DOMBinder) nodes(roots []*gc.Root[dom.Noder], keep func(dom.Noder) bool) goja.Value {
	items := make([]interface{}, 0, len(roots))
	for _, r := range roots {
		if keep == nil || keep(r.Get()) {
			items = append(items, b.value(r.Get()))
		}
		r.Release()
	}
	return b.runtime.vm.NewArray(items...)
}

// allocating runs fn, converting heap exhaustion into termination of the
// runtime. The script is interrupted before its next instruction.
func (b *DOMBinder) allocating(fn func() goja.Value) (result goja.Value) {
	defer func() {
		if p := recover(); p != nil {
			err, ok := p.(error)
			if !ok || !errors.Is(err, gc.ErrHeapExhausted) {
				panic(p)
			}
			b.runtime.terminate(err)
			result = goja.Undefined()
		}
	}()
	return fn()
}

// this resolves the receiver of a native call to its node.
func (b *DOMBinder) this(call goja.FunctionCall) dom.Noder {
	if obj, ok := call.This.(*goja.Object); ok {
		if ref, ok := b.natives[obj]; ok {
			return gc.Borrow[dom.Noder](b.runtime.heap, ref)
		}
	}
	panic(b.runtime.vm.NewTypeError("Illegal invocation"))
}

func (b *DOMBinder) thisElement(call goja.FunctionCall) *dom.Element {
	if el, ok := b.this(call).(dom.Elem); ok {
		return el.AsElement()
	}
	panic(b.runtime.vm.NewTypeError("Illegal invocation"))
}

func (b *DOMBinder) thisMedia(call goja.FunctionCall) *dom.MediaElement {
	if m, ok := b.this(call).(dom.Media); ok {
		return m.AsMediaElement()
	}
	panic(b.runtime.vm.NewTypeError("Illegal invocation"))
}

func (b *DOMBinder) thisDocument(call goja.FunctionCall) *dom.Document {
	if d, ok := b.this(call).(*dom.Document); ok {
		return d
	}
	panic(b.runtime.vm.NewTypeError("Illegal invocation"))
}

// nodeArg returns argument i as a node, or nil for null when nullable.
func (b *DOMBinder) nodeArg(call goja.FunctionCall, i int, method string, nullable bool) dom.Noder {
	v := call.Argument(i)
	if nullable && (goja.IsNull(v) || goja.IsUndefined(v)) {
		return nil
	}
	if obj, ok := v.(*goja.Object); ok {
		if ref, ok := b.natives[obj]; ok {
			return gc.Borrow[dom.Noder](b.runtime.heap, ref)
		}
	}
	panic(b.runtime.vm.NewTypeError("Failed to execute '%s' on 'Node': parameter %d is not of type 'Node'.", method, i+1))
}

// createDOMException creates a DOMException object using the global constructor.
func (b *DOMBinder) createDOMException(name, message string) *goja.Object {
	vm := b.runtime.vm
	exc := vm.NewObject()
	exc.SetPrototype(b.domExceptionProto)
	exc.Set("name", name)
	exc.Set("message", message)
	exc.Set("code", domExceptionCode(name))
	return exc
}

// throw raises err in script: DOM errors as DOMException, anything else as a
// Go error.
func (b *DOMBinder) throw(err error) {
	var domErr *dom.DOMError
	if errors.As(err, &domErr) {
		panic(b.createDOMException(domErr.Name, domErr.Message))
	}
	panic(b.runtime.vm.NewGoError(err))
}

// defineInterface creates the prototype and the global constructor for a DOM
// interface. Constructors exist for instanceof and cannot be called.
func (b *DOMBinder) defineInterface(name string, parent *goja.Object) *goja.Object {
	vm := b.runtime.vm
	proto := vm.NewObject()
	if parent != nil {
		proto.SetPrototype(parent)
	}
	ctor := vm.ToValue(func(call goja.ConstructorCall) *goja.Object {
		panic(vm.NewTypeError("Illegal constructor"))
	}).ToObject(vm)
	ctor.Set("prototype", proto)
	proto.Set("constructor", ctor)
	vm.Set(name, ctor)
	return proto
}

func (b *DOMBinder) accessor(proto *goja.Object, name string, get, set func(goja.FunctionCall) goja.Value) {
	vm := b.runtime.vm
	var setter goja.Value
	if set != nil {
		setter = vm.ToValue(set)
	}
	proto.DefineAccessorProperty(name, vm.ToValue(get), setter, goja.FLAG_TRUE, goja.FLAG_TRUE)
}

// setupPrototypes creates the prototype chain for DOM interfaces.
// This enables instanceof checks to work correctly.
func (b *DOMBinder) setupPrototypes() {
	vm := b.runtime.vm

	b.domExceptionProto = b.defineInterface("DOMException", vm.Get("Error").ToObject(vm).Get("prototype").ToObject(vm))

	b.nodeProto = b.defineInterface("Node", nil)
	b.bindNode(b.nodeProto)
	nodeCtor := vm.Get("Node").ToObject(vm)
	nodeCtor.Set("ELEMENT_NODE", int(dom.ElementNode))
	nodeCtor.Set("ATTRIBUTE_NODE", int(dom.AttributeNode))
	nodeCtor.Set("TEXT_NODE", int(dom.TextNode))
	nodeCtor.Set("DOCUMENT_NODE", int(dom.DocumentNode))

	b.elementProto = b.defineInterface("Element", b.nodeProto)
	b.bindElement(b.elementProto)

	htmlElementProto := b.defineInterface("HTMLElement", b.elementProto)
	mediaProto := b.defineInterface("HTMLMediaElement", htmlElementProto)
	b.bindMedia(mediaProto)
	videoProto := b.defineInterface("HTMLVideoElement", mediaProto)
	b.accessor(videoProto, "poster", func(call goja.FunctionCall) goja.Value {
		v, _ := b.thisElement(call).GetAttribute("poster")
		return vm.ToValue(v)
	}, nil)
	audioProto := b.defineInterface("HTMLAudioElement", mediaProto)

	textProto := b.defineInterface("Text", b.nodeProto)
	b.bindText(textProto)
	attrProto := b.defineInterface("Attr", b.nodeProto)
	b.bindAttr(attrProto)
	documentProto := b.defineInterface("Document", b.nodeProto)
	b.bindDocument(documentProto)

	b.protos[dom.TagDocument] = documentProto
	b.protos[dom.TagText] = textProto
	b.protos[dom.TagAttr] = attrProto
	b.protos[dom.TagHTMLElement] = htmlElementProto
	b.protos[dom.TagMedia] = mediaProto
	b.protos[dom.TagAudio] = audioProto
	b.protos[dom.TagVideo] = videoProto
}

func (b *DOMBinder) bindNode(proto *goja.Object) {
	vm := b.runtime.vm

	b.accessor(proto, "nodeType", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(int(b.this(call).AsNode().NodeType()))
	}, nil)
	b.accessor(proto, "nodeName", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(b.this(call).NodeName())
	}, nil)
	b.accessor(proto, "ownerDocument", func(call goja.FunctionCall) goja.Value {
		return rootValue(b, b.this(call).AsNode().OwnerDocument())
	}, nil)
	b.accessor(proto, "parentNode", func(call goja.FunctionCall) goja.Value {
		return rootValue(b, b.this(call).AsNode().ParentNode())
	}, nil)
	b.accessor(proto, "firstChild", func(call goja.FunctionCall) goja.Value {
		return rootValue(b, b.this(call).AsNode().FirstChild())
	}, nil)
	b.accessor(proto, "lastChild", func(call goja.FunctionCall) goja.Value {
		return rootValue(b, b.this(call).AsNode().LastChild())
	}, nil)
	b.accessor(proto, "previousSibling", func(call goja.FunctionCall) goja.Value {
		return rootValue(b, b.this(call).AsNode().PreviousSibling())
	}, nil)
	b.accessor(proto, "nextSibling", func(call goja.FunctionCall) goja.Value {
		return rootValue(b, b.this(call).AsNode().NextSibling())
	}, nil)
	b.accessor(proto, "childNodes", func(call goja.FunctionCall) goja.Value {
		return b.nodes(b.this(call).AsNode().Children(), nil)
	}, nil)
	b.accessor(proto, "children", func(call goja.FunctionCall) goja.Value {
		return b.nodes(b.this(call).AsNode().Children(), func(n dom.Noder) bool {
			_, ok := n.(dom.Elem)
			return ok
		})
	}, nil)
	b.accessor(proto, "textContent", func(call goja.FunctionCall) goja.Value {
		switch n := b.this(call).(type) {
		case *dom.Document:
			return goja.Null()
		case *dom.Text:
			return vm.ToValue(n.Data())
		case *dom.Attr:
			return vm.ToValue(n.Value())
		default:
			return vm.ToValue(n.AsNode().TextContent())
		}
	}, nil)

	proto.Set("hasChildNodes", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(b.this(call).AsNode().HasChildNodes())
	})
	proto.Set("contains", func(call goja.FunctionCall) goja.Value {
		other := b.nodeArg(call, 0, "contains", true)
		return vm.ToValue(b.this(call).AsNode().Contains(other))
	})
	proto.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		child := b.nodeArg(call, 0, "appendChild", false)
		if err := b.this(call).AsNode().AppendChild(child); err != nil {
			b.throw(err)
		}
		return call.Argument(0)
	})
	proto.Set("insertBefore", func(call goja.FunctionCall) goja.Value {
		child := b.nodeArg(call, 0, "insertBefore", false)
		ref := b.nodeArg(call, 1, "insertBefore", true)
		if err := b.this(call).AsNode().InsertBefore(child, ref); err != nil {
			b.throw(err)
		}
		return call.Argument(0)
	})
	proto.Set("removeChild", func(call goja.FunctionCall) goja.Value {
		child := b.nodeArg(call, 0, "removeChild", false)
		if err := b.this(call).AsNode().RemoveChild(child); err != nil {
			b.throw(err)
		}
		return call.Argument(0)
	})
}

func (b *DOMBinder) bindElement(proto *goja.Object) {
	vm := b.runtime.vm

	b.accessor(proto, "localName", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(string(b.thisElement(call).LocalName()))
	}, nil)
	b.accessor(proto, "tagName", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(b.thisElement(call).TagName())
	}, nil)
	b.accessor(proto, "prefix", func(call goja.FunctionCall) goja.Value {
		p := b.thisElement(call).Prefix()
		if p.IsNone() {
			return goja.Null()
		}
		return vm.ToValue(string(p))
	}, nil)
	b.accessor(proto, "namespaceURI", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(b.thisElement(call).NamespaceURI())
	}, nil)
	b.accessor(proto, "outerHTML", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(b.thisElement(call).OuterHTML())
	}, nil)
	b.accessor(proto, "innerHTML", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(b.thisElement(call).InnerHTML())
	}, nil)

	proto.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		v, ok := b.thisElement(call).GetAttribute(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})
	proto.Set("hasAttribute", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(b.thisElement(call).HasAttribute(call.Argument(0).String()))
	})
	proto.Set("getAttributeNames", func(call goja.FunctionCall) goja.Value {
		names := b.thisElement(call).AttributeNames()
		items := make([]interface{}, len(names))
		for i, n := range names {
			items[i] = n
		}
		return vm.NewArray(items...)
	})
	proto.Set("getAttributeNode", func(call goja.FunctionCall) goja.Value {
		return rootValue(b, b.thisElement(call).AttributeNode(call.Argument(0).String()))
	})
	proto.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		el := b.thisElement(call)
		return b.allocating(func() goja.Value {
			if err := el.SetAttribute(call.Argument(0).String(), call.Argument(1).String()); err != nil {
				b.throw(err)
			}
			return goja.Undefined()
		})
	})
	proto.Set("removeAttribute", func(call goja.FunctionCall) goja.Value {
		b.thisElement(call).RemoveAttribute(call.Argument(0).String())
		return goja.Undefined()
	})
}

func (b *DOMBinder) bindMedia(proto *goja.Object) {
	vm := b.runtime.vm

	ctor := vm.Get("HTMLMediaElement").ToObject(vm)
	for _, c := range []struct {
		name  string
		value int
	}{
		{"NETWORK_EMPTY", int(dom.NetworkEmpty)},
		{"NETWORK_IDLE", int(dom.NetworkIdle)},
		{"NETWORK_LOADING", int(dom.NetworkLoading)},
		{"NETWORK_NO_SOURCE", int(dom.NetworkNoSource)},
		{"HAVE_NOTHING", int(dom.HaveNothing)},
		{"HAVE_METADATA", int(dom.HaveMetadata)},
		{"HAVE_CURRENT_DATA", int(dom.HaveCurrentData)},
		{"HAVE_FUTURE_DATA", int(dom.HaveFutureData)},
		{"HAVE_ENOUGH_DATA", int(dom.HaveEnoughData)},
	} {
		ctor.Set(c.name, c.value)
		proto.Set(c.name, c.value)
	}

	b.accessor(proto, "src", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(b.thisMedia(call).Src())
	}, func(call goja.FunctionCall) goja.Value {
		m := b.thisMedia(call)
		return b.allocating(func() goja.Value {
			if err := m.SetSrc(call.Argument(0).String()); err != nil {
				b.throw(err)
			}
			return goja.Undefined()
		})
	})
	b.accessor(proto, "currentSrc", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(b.thisMedia(call).CurrentSrc())
	}, nil)
	b.accessor(proto, "paused", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(b.thisMedia(call).Paused())
	}, nil)
	b.accessor(proto, "muted", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(b.thisMedia(call).Muted())
	}, func(call goja.FunctionCall) goja.Value {
		b.thisMedia(call).SetMuted(call.Argument(0).ToBoolean())
		return goja.Undefined()
	})
	b.accessor(proto, "volume", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(b.thisMedia(call).Volume())
	}, func(call goja.FunctionCall) goja.Value {
		if err := b.thisMedia(call).SetVolume(call.Argument(0).ToFloat()); err != nil {
			b.throw(err)
		}
		return goja.Undefined()
	})
	b.accessor(proto, "networkState", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(int(b.thisMedia(call).NetworkState()))
	}, nil)
	b.accessor(proto, "readyState", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(int(b.thisMedia(call).ReadyState()))
	}, nil)

	proto.Set("play", func(call goja.FunctionCall) goja.Value {
		b.thisMedia(call).Play()
		return goja.Undefined()
	})
	proto.Set("pause", func(call goja.FunctionCall) goja.Value {
		b.thisMedia(call).Pause()
		return goja.Undefined()
	})
}

func (b *DOMBinder) bindText(proto *goja.Object) {
	vm := b.runtime.vm
	text := func(call goja.FunctionCall) *dom.Text {
		if t, ok := b.this(call).(*dom.Text); ok {
			return t
		}
		panic(vm.NewTypeError("Illegal invocation"))
	}

	b.accessor(proto, "data", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(text(call).Data())
	}, func(call goja.FunctionCall) goja.Value {
		text(call).SetData(call.Argument(0).String())
		return goja.Undefined()
	})
	b.accessor(proto, "length", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(text(call).Length())
	}, nil)
}

func (b *DOMBinder) bindAttr(proto *goja.Object) {
	vm := b.runtime.vm
	attr := func(call goja.FunctionCall) *dom.Attr {
		if a, ok := b.this(call).(*dom.Attr); ok {
			return a
		}
		panic(vm.NewTypeError("Illegal invocation"))
	}

	b.accessor(proto, "name", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(string(attr(call).Name()))
	}, nil)
	b.accessor(proto, "value", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(attr(call).Value())
	}, func(call goja.FunctionCall) goja.Value {
		attr(call).SetValue(call.Argument(0).String())
		return goja.Undefined()
	})
	b.accessor(proto, "ownerElement", func(call goja.FunctionCall) goja.Value {
		return rootValue(b, attr(call).OwnerElement())
	}, nil)
}

func (b *DOMBinder) bindDocument(proto *goja.Object) {
	vm := b.runtime.vm

	b.accessor(proto, "documentElement", func(call goja.FunctionCall) goja.Value {
		return rootValue(b, b.thisDocument(call).DocumentElement())
	}, nil)
	b.accessor(proto, "URL", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(b.thisDocument(call).URL())
	}, nil)
	b.accessor(proto, "contentType", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(b.thisDocument(call).ContentType())
	}, nil)

	proto.Set("createElement", func(call goja.FunctionCall) goja.Value {
		doc := b.thisDocument(call)
		return b.allocating(func() goja.Value {
			el, err := html.CreateElement(doc, call.Argument(0).String())
			if err != nil {
				b.throw(err)
			}
			return rootValue(b, el)
		})
	})
	proto.Set("createElementNS", func(call goja.FunctionCall) goja.Value {
		doc := b.thisDocument(call)
		return b.allocating(func() goja.Value {
			el, err := html.CreateElementNS(doc, call.Argument(0).String(), call.Argument(1).String())
			if err != nil {
				b.throw(err)
			}
			return rootValue(b, el)
		})
	})
	proto.Set("createTextNode", func(call goja.FunctionCall) goja.Value {
		doc := b.thisDocument(call)
		return b.allocating(func() goja.Value {
			return rootValue(b, doc.CreateTextNode(call.Argument(0).String()))
		})
	})
	proto.Set("createAttribute", func(call goja.FunctionCall) goja.Value {
		doc := b.thisDocument(call)
		return b.allocating(func() goja.Value {
			a, err := doc.CreateAttribute(call.Argument(0).String())
			if err != nil {
				b.throw(err)
			}
			return rootValue(b, a)
		})
	})
}
