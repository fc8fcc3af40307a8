package dom

import "github.com/chrisuehlinger/vibedom/gc"

// HTMLElement is the leaf for HTML elements without a dedicated type.
type HTMLElement struct {
	Element
}

// NewHTMLElement constructs and reflects a generic HTML element.
func NewHTMLElement(localName LocalName, prefix Prefix, doc *Document) *gc.Root[*HTMLElement] {
	el := &HTMLElement{
		Element: newElementInherited(TagHTMLElement, localName, prefix, doc),
	}
	return reflectNode(el, doc)
}
