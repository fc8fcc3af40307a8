package dom

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/chrisuehlinger/vibedom/gc"
)

// Document represents the entire HTML document. It owns the node tree and
// carries the heap and script context its nodes are constructed in.
type Document struct {
	Node

	id          uuid.UUID
	url         string
	contentType string
	script      ScriptContext
}

// NewDocument creates a new empty HTML Document on h, reflected into cx.
// A nil cx reflects into an InertContext.
func NewDocument(h *gc.Heap, cx ScriptContext) *gc.Root[*Document] {
	if cx == nil {
		cx = InertContext{}
	}
	d := &Document{
		Node:        newNodeInherited(TagDocument, nil),
		id:          uuid.New(),
		contentType: "text/html",
		script:      cx,
	}
	root := reflectInto(h, cx, d)
	d.document = d.Self().Weak()
	return root
}

// ID returns the document's identity.
func (d *Document) ID() uuid.UUID {
	return d.id
}

// NodeName returns "#document".
func (d *Document) NodeName() string {
	return "#document"
}

// URL returns the document's URL. Defaults to "about:blank".
func (d *Document) URL() string {
	if d.url == "" {
		return "about:blank"
	}
	return d.url
}

// SetURL sets the document's URL.
func (d *Document) SetURL(url string) {
	d.url = url
}

// ContentType returns the MIME type of the document.
func (d *Document) ContentType() string {
	return d.contentType
}

// IsHTML returns true if this is an HTML document.
func (d *Document) IsHTML() bool {
	return d.contentType == "text/html"
}

// ScriptContext returns the context the document's nodes are reflected into.
func (d *Document) ScriptContext() ScriptContext {
	return d.script
}

// DocumentElement returns the root element of the document.
func (d *Document) DocumentElement() *gc.Root[Elem] {
	var ref gc.Ref
	d.ForEachChild(func(c Noder) bool {
		if _, ok := c.(Elem); ok {
			ref = gc.SelfOf(c)
			return false
		}
		return true
	})
	return gc.Fetch[Elem](d.Heap(), ref)
}

type elementConstructor func(LocalName, Prefix, *Document) *gc.Root[Elem]

var elementConstructors = map[TypeTag]elementConstructor{
	TagHTMLElement: func(n LocalName, p Prefix, d *Document) *gc.Root[Elem] {
		return gc.Cast[Elem](NewHTMLElement(n, p, d))
	},
	TagMedia: func(n LocalName, p Prefix, d *Document) *gc.Root[Elem] {
		return gc.Cast[Elem](NewMediaElement(n, p, d))
	},
	TagAudio: func(n LocalName, p Prefix, d *Document) *gc.Root[Elem] {
		return gc.Cast[Elem](NewAudioElement(n, p, d))
	},
	TagVideo: func(n LocalName, p Prefix, d *Document) *gc.Root[Elem] {
		return gc.Cast[Elem](NewVideoElement(n, p, d))
	},
}

// CreateElement constructs an element of the leaf type tag. The name and
// prefix are taken as given; validating them is the caller's job.
func (d *Document) CreateElement(tag TypeTag, localName LocalName, prefix Prefix) (*gc.Root[Elem], error) {
	if !tag.IsElement() {
		return nil, ErrNotSupported(fmt.Sprintf("%v is not an element type.", tag))
	}
	return elementConstructors[tag](localName, prefix, d), nil
}

// CreateTextNode creates a new Text node.
func (d *Document) CreateTextNode(data string) *gc.Root[*Text] {
	return NewText(data, d)
}

// CreateAttribute creates a detached Attr node.
func (d *Document) CreateAttribute(name string) (*gc.Root[*Attr], error) {
	if !IsValidAttributeLocalName(name) {
		return nil, ErrInvalidCharacter("The string contains invalid characters.")
	}
	if d.IsHTML() {
		name = strings.ToLower(name)
	}
	return NewAttr(LocalName(name), "", d), nil
}
