// Package html builds dom trees from markup using golang.org/x/net/html
// as the underlying parser implementation.
package html

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/chrisuehlinger/vibedom/dom"
	"github.com/chrisuehlinger/vibedom/gc"
)

// Parse parses a complete HTML document from a string into doc.
func Parse(doc *dom.Document, htmlContent string) error {
	return ParseReader(doc, strings.NewReader(htmlContent))
}

// ParseReader parses a complete HTML document from r into doc, which must
// not have a document element yet.
func ParseReader(doc *dom.Document, r io.Reader) error {
	netNode, err := html.Parse(r)
	if err != nil {
		return errors.Wrap(err, "parse html")
	}
	pin := doc.Pin()
	defer pin.Release()
	b := builder{doc: doc}
	return b.children(doc.AsNode(), netNode)
}

// ParseFragment parses markup in the context of parent and appends the
// resulting nodes to it.
func ParseFragment(parent dom.Elem, fragment string) error {
	return ParseFragmentReader(parent, strings.NewReader(fragment))
}

// ParseFragmentReader parses a fragment from a reader.
func ParseFragmentReader(parent dom.Elem, r io.Reader) error {
	pin := parent.AsNode().Pin()
	defer pin.Release()
	doc := parent.AsNode().OwnerDocument()
	if doc == nil {
		return dom.ErrInvalidState("The element's document is gone.")
	}
	defer doc.Release()

	el := parent.AsElement()
	contextNode := &html.Node{
		Type:     html.ElementNode,
		Data:     string(el.LocalName()),
		DataAtom: el.LocalName().Atom(),
	}
	netNodes, err := html.ParseFragment(r, contextNode)
	if err != nil {
		return errors.Wrap(err, "parse html fragment")
	}
	b := builder{doc: doc.Get()}
	for _, nn := range netNodes {
		if err := b.build(el.AsNode(), nn); err != nil {
			return err
		}
	}
	return nil
}

// builder converts golang.org/x/net/html nodes into dom nodes. Every node it
// creates stays rooted until it has been linked into its parent, which the
// caller keeps rooted.
type builder struct {
	doc *dom.Document
}

func (b *builder) children(parent *dom.Node, n *html.Node) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := b.build(parent, c); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) build(parent *dom.Node, n *html.Node) error {
	switch n.Type {
	case html.ElementNode:
		el, err := b.element(n)
		if err != nil {
			return err
		}
		defer el.Release()
		if err := parent.AppendChild(el.Get()); err != nil {
			return err
		}
		for _, attr := range n.Attr {
			// The tokenizer accepts names setAttribute would reject.
			if !dom.IsValidAttributeLocalName(attr.Key) {
				continue
			}
			if err := el.Get().AsElement().SetAttribute(attr.Key, attr.Val); err != nil {
				return err
			}
		}
		return b.children(el.Get().AsNode(), n)
	case html.TextNode:
		text := b.doc.CreateTextNode(n.Data)
		defer text.Release()
		return parent.AppendChild(text.Get())
	case html.DocumentNode:
		return b.children(parent, n)
	default:
		// Comments and doctypes have no node type here.
		return nil
	}
}

func (b *builder) element(n *html.Node) (*gc.Root[dom.Elem], error) {
	localName := dom.LocalName(n.Data)
	tag := dom.TagHTMLElement
	if n.Namespace == "" {
		if t, ok := elementTags[n.DataAtom]; ok {
			tag = t
		}
	}
	return b.doc.CreateElement(tag, localName, dom.NoPrefix)
}
