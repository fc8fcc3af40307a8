package dom

import "github.com/chrisuehlinger/vibedom/gc"

// Text represents a text node in the DOM.
type Text struct {
	Node
	data string
}

// NewText constructs and reflects a text node.
func NewText(data string, doc *Document) *gc.Root[*Text] {
	t := &Text{
		Node: newNodeInherited(TagText, doc),
		data: data,
	}
	return reflectNode(t, doc)
}

// NodeName returns "#text".
func (t *Text) NodeName() string {
	return "#text"
}

// Data returns the text content.
func (t *Text) Data() string {
	return t.data
}

// SetData sets the text content.
func (t *Text) SetData(data string) {
	t.data = data
}

// Length returns the length of the text content in UTF-16 code units.
func (t *Text) Length() int {
	return UTF16Length(t.data)
}

// TextContent returns the text content.
func (t *Text) TextContent() string {
	return t.data
}
