package js

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisuehlinger/vibedom/dom"
	"github.com/chrisuehlinger/vibedom/gc"
)

func mustExecute(t *testing.T, r *Runtime, code string) goja.Value {
	t.Helper()
	v, err := r.Execute(code)
	require.NoError(t, err)
	return v
}

func TestCreateElementFromScript(t *testing.T) {
	r := newTestRuntime(t, gc.Config{})

	v := mustExecute(t, r, `
		var v = document.createElement("VIDEO");
		[v.localName, v.tagName, String(v.prefix), v.ownerDocument === document,
		 v instanceof HTMLVideoElement, v instanceof HTMLMediaElement,
		 v instanceof HTMLElement, v instanceof Element, v instanceof Node,
		 v instanceof HTMLAudioElement, v.nodeType === Node.ELEMENT_NODE].join(",")
	`)
	assert.Equal(t, "video,VIDEO,null,true,true,true,true,true,true,false,true", v.String())

	v = mustExecute(t, r, `
		var d = document.createElement("div");
		[d instanceof HTMLElement, d instanceof HTMLMediaElement, d.paused === undefined].join(",")
	`)
	assert.Equal(t, "true,false,true", v.String())
}

func TestNativeScriptRoundTrip(t *testing.T) {
	r := newTestRuntime(t, gc.Config{})

	obj, ok := mustExecute(t, r, `document.createElement("audio")`).(*goja.Object)
	require.True(t, ok)

	ref, ok := r.Binder().NativeOf(obj)
	require.True(t, ok)
	back, ok := r.Binder().ScriptObjectOf(ref)
	require.True(t, ok)
	assert.Same(t, obj, back)
	assert.True(t, r.Binder().Escaped(ref))

	native := gc.Fetch[dom.Noder](r.Heap(), ref)
	defer native.Release()
	assert.Equal(t, dom.TagAudio, native.Get().AsNode().TypeTag())
	assert.Same(t, obj, gc.ReflectorOf(native.Get()))

	same := mustExecute(t, r, `var a = document.createElement("p"); document.appendChild(a); a === document.firstChild`)
	assert.True(t, same.ToBoolean(), "a node always reflects to the same object")
}

func TestReflectTwiceIsRejected(t *testing.T) {
	r := newTestRuntime(t, gc.Config{})
	doc := r.Document()
	defer doc.Release()

	video := dom.NewVideoElement("video", dom.NoPrefix, doc.Get())
	defer video.Release()

	var err error
	func() {
		defer func() {
			if p := recover(); p != nil {
				err, _ = p.(error)
			}
		}()
		r.Binder().Wrap(dom.TagVideo)(gc.Cast[dom.Noder](video.Clone()))
	}()
	require.Error(t, err)
	assert.True(t, errors.Is(err, gc.ErrAlreadyReflected))

	obj, ok := r.Binder().ScriptObjectOf(video.Ref())
	require.True(t, ok)
	ref, _ := r.Binder().NativeOf(obj)
	assert.Equal(t, video.Ref(), ref, "the original link is kept")
}

func TestTreeFromScript(t *testing.T) {
	r := newTestRuntime(t, gc.Config{Stress: true})

	v := mustExecute(t, r, `
		var html = document.createElement("html");
		document.appendChild(html);
		var body = document.createElement("body");
		html.appendChild(body);
		var video = document.createElement("video");
		body.appendChild(video);
		body.insertBefore(document.createTextNode("caption"), video);
		[document.documentElement === html, video.parentNode === body,
		 body.firstChild.nodeName, body.lastChild === video, body.childNodes.length,
		 body.children.length, body.textContent, html.contains(video),
		 video.previousSibling.data].join(",")
	`)
	assert.Equal(t, "true,true,#text,true,2,1,caption,true,caption", v.String())

	v = mustExecute(t, r, `
		body.removeChild(video);
		[video.parentNode, body.childNodes.length].join(",")
	`)
	assert.Equal(t, ",1", v.String())
}

func TestTextLengthMatchesScriptStrings(t *testing.T) {
	r := newTestRuntime(t, gc.Config{})

	v := mustExecute(t, r, `
		var s = "caf\u00e9 \ud83c\udfac";
		[document.createTextNode(s).length, s.length].join(",")
	`)
	assert.Equal(t, "7,7", v.String())
}

func TestDOMExceptions(t *testing.T) {
	r := newTestRuntime(t, gc.Config{})

	v := mustExecute(t, r, `
		function name(fn) {
			try { fn(); return "none"; } catch (e) {
				return (e instanceof DOMException ? "" : "!") + e.name + ":" + e.code;
			}
		}
		var a = document.createElement("div");
		var b = document.createElement("span");
		a.appendChild(b);
		[name(function() { b.appendChild(a); }),
		 name(function() { b.removeChild(a); }),
		 name(function() { document.createElement("1x"); }),
		 name(function() { a.setAttribute("a b", ""); }),
		 name(function() { document.createElement("video").volume = 2; })].join(" ")
	`)
	assert.Equal(t, "HierarchyRequestError:3 NotFoundError:8 InvalidCharacterError:5 InvalidCharacterError:5 IndexSizeError:1", v.String())

	v = mustExecute(t, r, `
		function kind(fn) { try { fn(); return "none"; } catch (e) { return e instanceof TypeError; } }
		[kind(function() { document.appendChild(1); }),
		 kind(function() { document.createElement("p").appendChild({}); }),
		 kind(function() { Node.prototype.appendChild.call({}, document); }),
		 kind(function() { new HTMLVideoElement(); })].join(",")
	`)
	assert.Equal(t, "true,true,true,true", v.String())
}

func TestMediaFromScript(t *testing.T) {
	r := newTestRuntime(t, gc.Config{})

	v := mustExecute(t, r, `
		var m = document.createElement("video");
		var out = [m.paused, m.networkState === HTMLMediaElement.NETWORK_EMPTY, m.volume];
		m.src = "clip.webm";
		out.push(m.getAttribute("src"), m.currentSrc, m.networkState === m.NETWORK_IDLE);
		m.play();
		out.push(m.paused);
		m.pause();
		m.muted = true;
		m.volume = 0.5;
		out.push(m.paused, m.muted, m.volume, m.readyState === HTMLMediaElement.HAVE_NOTHING);
		m.setAttribute("poster", "p.png");
		out.push(m.poster);
		out.join(",")
	`)
	assert.Equal(t, "true,true,1,clip.webm,clip.webm,true,false,true,true,0.5,true,p.png", v.String())
}

func TestAttributesFromScript(t *testing.T) {
	r := newTestRuntime(t, gc.Config{Stress: true})

	v := mustExecute(t, r, `
		var el = document.createElement("div");
		el.setAttribute("ID", "main");
		el.setAttribute("class", "x");
		var attr = el.getAttributeNode("id");
		var out = [el.getAttributeNames().join("+"), el.getAttribute("id"), attr.name, attr.value,
		           attr.ownerElement === el, attr instanceof Attr, el.getAttribute("missing")];
		el.removeAttribute("id");
		out.push(el.hasAttribute("id"), attr.ownerElement);
		out.join(",")
	`)
	assert.Equal(t, "id+class,main,id,main,true,true,,false,", v.String())
}

func TestScriptHeldNodesSurviveCollection(t *testing.T) {
	r := newTestRuntime(t, gc.Config{})

	mustExecute(t, r, `var detached = document.createElement("video"); detached.src = "kept.webm";`)
	r.Heap().Collect()

	v := mustExecute(t, r, `detached.src + " " + detached.paused`)
	assert.Equal(t, "kept.webm true", v.String())
}

func TestSerializationFromScript(t *testing.T) {
	r := newTestRuntime(t, gc.Config{})

	v := mustExecute(t, r, `
		var v = document.createElement("video");
		v.setAttribute("poster", "a&b.png");
		v.appendChild(document.createTextNode("<fallback>"));
		[v.outerHTML, v.innerHTML].join("|");
	`)
	assert.Equal(t, `<video poster="a&amp;b.png">&lt;fallback&gt;</video>|&lt;fallback&gt;`, v.String())
}
