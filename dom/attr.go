package dom

import "github.com/chrisuehlinger/vibedom/gc"

// Attr represents an attribute of an Element. Attributes are heap nodes of
// their own, held strongly by the element that carries them.
type Attr struct {
	Node
	name  LocalName
	value string
	owner gc.WeakRef
}

// NewAttr constructs and reflects a detached attribute node.
func NewAttr(name LocalName, value string, doc *Document) *gc.Root[*Attr] {
	a := &Attr{
		Node:  newNodeInherited(TagAttr, doc),
		name:  name,
		value: value,
	}
	return reflectNode(a, doc)
}

// NodeName returns the attribute name.
func (a *Attr) NodeName() string {
	return string(a.name)
}

// Name returns the attribute name.
func (a *Attr) Name() LocalName {
	return a.name
}

// Value returns the attribute value.
func (a *Attr) Value() string {
	return a.value
}

// SetValue sets the attribute value.
func (a *Attr) SetValue(value string) {
	a.value = value
}

// OwnerElement returns the element carrying this attribute, or nil.
func (a *Attr) OwnerElement() *gc.Root[Elem] {
	return gc.Upgrade[Elem](a.Heap(), a.owner)
}
