package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html/atom"

	"github.com/chrisuehlinger/vibedom/gc"
)

// HTML namespace URI
const HTMLNamespace = "http://www.w3.org/1999/xhtml"

// LocalName is an element or attribute local name.
type LocalName string

// Atom returns the interned atom for well-known HTML names, or zero.
func (n LocalName) Atom() atom.Atom {
	return atom.Lookup([]byte(n))
}

func (n LocalName) String() string { return string(n) }

// Prefix is a namespace prefix. The empty Prefix means no prefix.
type Prefix string

// NoPrefix is the absent prefix.
const NoPrefix Prefix = ""

// IsNone reports whether the prefix is absent.
func (p Prefix) IsNone() bool { return p == NoPrefix }

// Elem is implemented by every element leaf type.
type Elem interface {
	Noder
	AsElement() *Element
}

// Element is the level shared by all element types. Its local name and
// prefix are fixed at construction.
type Element struct {
	Node

	localName LocalName
	prefix    Prefix
	namespace string
	attrs     []gc.Ref
}

func newElementInherited(tag TypeTag, localName LocalName, prefix Prefix, doc *Document) Element {
	if !tag.IsElement() {
		panic(fmt.Sprintf("dom: %v is not an element type", tag))
	}
	return Element{
		Node:      newNodeInherited(tag, doc),
		localName: localName,
		prefix:    prefix,
		namespace: HTMLNamespace,
	}
}

// AsElement returns the Element level of any element type.
func (e *Element) AsElement() *Element {
	return e
}

// Trace reports the attribute nodes and then the Node level links.
func (e *Element) Trace(t *gc.Tracer) {
	t.TraceAll(e.attrs)
	e.Node.Trace(t)
}

// LocalName returns the local name of the element.
func (e *Element) LocalName() LocalName {
	return e.localName
}

// Prefix returns the namespace prefix of the element.
func (e *Element) Prefix() Prefix {
	return e.prefix
}

// NamespaceURI returns the namespace URI of the element.
func (e *Element) NamespaceURI() string {
	return e.namespace
}

// QualifiedName returns prefix:localName, or the local name when there is no prefix.
func (e *Element) QualifiedName() string {
	if e.prefix.IsNone() {
		return string(e.localName)
	}
	return string(e.prefix) + ":" + string(e.localName)
}

// TagName returns the qualified name, uppercased for HTML elements.
func (e *Element) TagName() string {
	if e.namespace == HTMLNamespace {
		return strings.ToUpper(e.QualifiedName())
	}
	return e.QualifiedName()
}

// NodeName returns the tag name.
func (e *Element) NodeName() string {
	return e.TagName()
}

func (e *Element) normalizeName(name string) LocalName {
	if e.namespace == HTMLNamespace {
		name = strings.ToLower(name)
	}
	return LocalName(name)
}

func (e *Element) attr(name LocalName) *Attr {
	for _, r := range e.attrs {
		if a := gc.Borrow[*Attr](e.Heap(), r); a.name == name {
			return a
		}
	}
	return nil
}

// GetAttribute returns the value of the named attribute and whether it is present.
// For HTML elements the name is lowercased before lookup.
func (e *Element) GetAttribute(name string) (string, bool) {
	if a := e.attr(e.normalizeName(name)); a != nil {
		return a.value, true
	}
	return "", false
}

// HasAttribute reports whether the named attribute is present.
func (e *Element) HasAttribute(name string) bool {
	return e.attr(e.normalizeName(name)) != nil
}

// AttributeCount returns the number of attributes.
func (e *Element) AttributeCount() int {
	return len(e.attrs)
}

// AttributeNames returns the attribute names in insertion order.
func (e *Element) AttributeNames() []string {
	names := make([]string, 0, len(e.attrs))
	for _, r := range e.attrs {
		names = append(names, string(gc.Borrow[*Attr](e.Heap(), r).name))
	}
	return names
}

// AttributeNode returns the Attr node for name, or nil.
func (e *Element) AttributeNode(name string) *gc.Root[*Attr] {
	if a := e.attr(e.normalizeName(name)); a != nil {
		return gc.Fetch[*Attr](e.Heap(), a.Self())
	}
	return nil
}

// SetAttribute sets the value of the named attribute, creating its Attr node
// on first use.
func (e *Element) SetAttribute(name, value string) error {
	if !IsValidAttributeLocalName(name) {
		return ErrInvalidCharacter("The string contains invalid characters.")
	}
	ln := e.normalizeName(name)
	if a := e.attr(ln); a != nil {
		a.value = value
		return nil
	}

	pin := e.Pin()
	defer pin.Release()
	doc := e.OwnerDocument()
	if doc == nil {
		return ErrInvalidState("The element's document is gone.")
	}
	defer doc.Release()

	a := NewAttr(ln, value, doc.Get())
	defer a.Release()
	a.Get().owner = e.Self().Weak()
	e.attrs = append(e.attrs, a.Ref())
	return nil
}

// RemoveAttribute removes the named attribute. It reports whether one was removed.
func (e *Element) RemoveAttribute(name string) bool {
	ln := e.normalizeName(name)
	for i, r := range e.attrs {
		a := gc.Borrow[*Attr](e.Heap(), r)
		if a.name != ln {
			continue
		}
		a.owner = gc.WeakRef{}
		e.attrs = append(e.attrs[:i], e.attrs[i+1:]...)
		return true
	}
	return false
}

// IsValidAttributeLocalName checks if a string is a valid attribute local name per DOM spec.
// A string is valid if its length is at least 1 and it does not contain:
// - ASCII whitespace (tab, newline, form feed, carriage return, space)
// - U+0000 NULL
// - U+002F (/)
// - U+003D (=)
// - U+003E (>)
func IsValidAttributeLocalName(name string) bool {
	if len(name) == 0 {
		return false
	}
	for _, r := range name {
		// ASCII whitespace
		if r == ' ' || r == '\t' || r == '\n' || r == '\f' || r == '\r' {
			return false
		}
		// NULL, /, =, >
		if r == '\x00' || r == '/' || r == '=' || r == '>' {
			return false
		}
	}
	return true
}
