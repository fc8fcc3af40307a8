package html

import (
	"strings"

	"golang.org/x/net/html/atom"

	"github.com/chrisuehlinger/vibedom/dom"
	"github.com/chrisuehlinger/vibedom/gc"
)

// elementTags maps the HTML elements that have a dedicated type to their tag.
// Everything else is an HTMLElement.
var elementTags = map[atom.Atom]dom.TypeTag{
	atom.Video: dom.TagVideo,
	atom.Audio: dom.TagAudio,
}

// TagFor returns the leaf type for an HTML local name.
func TagFor(localName dom.LocalName) dom.TypeTag {
	if tag, ok := elementTags[localName.Atom()]; ok {
		return tag
	}
	return dom.TagHTMLElement
}

// CreateElement implements document.createElement for HTML documents: the
// name is validated, lowercased and never split into a prefix.
func CreateElement(doc *dom.Document, name string) (*gc.Root[dom.Elem], error) {
	if !isValidName(name) {
		return nil, dom.ErrInvalidCharacter("The string contains invalid characters.")
	}
	if doc.IsHTML() {
		name = strings.ToLower(name)
	}
	localName := dom.LocalName(name)
	return doc.CreateElement(TagFor(localName), localName, dom.NoPrefix)
}

// CreateElementNS implements document.createElementNS for the HTML namespace.
// The qualified name is split into prefix and local name; case is preserved.
func CreateElementNS(doc *dom.Document, namespace, qualifiedName string) (*gc.Root[dom.Elem], error) {
	if namespace != dom.HTMLNamespace {
		return nil, dom.ErrNotSupported("Only the HTML namespace is supported.")
	}
	prefix, localName, err := splitQualifiedName(qualifiedName)
	if err != nil {
		return nil, err
	}
	return doc.CreateElement(TagFor(localName), localName, prefix)
}
