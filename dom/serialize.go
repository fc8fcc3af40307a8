package dom

import (
	"strings"

	"golang.org/x/net/html/atom"

	"github.com/chrisuehlinger/vibedom/gc"
)

// OuterHTML serializes the element and its subtree.
func (e *Element) OuterHTML() string {
	var sb strings.Builder
	serializeElement(e, &sb)
	return sb.String()
}

// InnerHTML serializes the node's children.
func (n *Node) InnerHTML() string {
	raw := false
	if n.nodeType == ElementNode {
		raw = isRawText(gc.Borrow[Elem](n.Heap(), n.Self()).AsElement().localName)
	}
	var sb strings.Builder
	serializeChildren(n, raw, &sb)
	return sb.String()
}

// Serialize returns the HTML serialization of n. Documents serialize their
// children; attributes serialize to nothing.
func Serialize(n Noder) string {
	switch v := n.(type) {
	case Elem:
		return v.AsElement().OuterHTML()
	case *Text:
		return escapeText(v.data)
	case *Document:
		return v.InnerHTML()
	}
	return ""
}

func serializeChildren(n *Node, raw bool, sb *strings.Builder) {
	n.ForEachChild(func(c Noder) bool {
		switch v := c.(type) {
		case *Text:
			if raw {
				sb.WriteString(v.data)
			} else {
				sb.WriteString(escapeText(v.data))
			}
		case Elem:
			serializeElement(v.AsElement(), sb)
		}
		return true
	})
}

func serializeElement(e *Element, sb *strings.Builder) {
	sb.WriteByte('<')
	sb.WriteString(e.QualifiedName())
	for _, r := range e.attrs {
		a := gc.Borrow[*Attr](e.Heap(), r)
		sb.WriteByte(' ')
		sb.WriteString(string(a.name))
		sb.WriteString(`="`)
		sb.WriteString(escapeAttrValue(a.value))
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
	if isVoid(e.localName) {
		return
	}
	serializeChildren(&e.Node, isRawText(e.localName), sb)
	sb.WriteString("</")
	sb.WriteString(e.QualifiedName())
	sb.WriteByte('>')
}

func isVoid(name LocalName) bool {
	switch name.Atom() {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Link, atom.Meta, atom.Source, atom.Track, atom.Wbr:
		return true
	}
	return false
}

func isRawText(name LocalName) bool {
	switch name.Atom() {
	case atom.Script, atom.Style, atom.Xmp, atom.Iframe, atom.Noembed, atom.Noframes:
		return true
	}
	return false
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "\u00a0", "&nbsp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "\u00a0", "&nbsp;", `"`, "&quot;")
)

func escapeText(s string) string      { return textEscaper.Replace(s) }
func escapeAttrValue(s string) string { return attrEscaper.Replace(s) }
