// Package dom provides the DOM node types of the engine and the chain of
// embedded levels they are built from:
//
//	Node → Element → MediaElement → VideoElement / AudioElement
//	Node → Element → HTMLElement
//	Node → Text, Attr, Document
//
// Every node lives on a gc.Heap and is reflected into the document's script
// context when it is constructed.
// https://dom.spec.whatwg.org/
package dom

// NodeType represents the type of a Node as defined in the DOM specification.
type NodeType uint16

const (
	// ElementNode represents an Element node.
	ElementNode NodeType = 1
	// AttributeNode represents an Attr node.
	AttributeNode NodeType = 2
	// TextNode represents a Text node.
	TextNode NodeType = 3
	// DocumentNode represents a Document node.
	DocumentNode NodeType = 9
)

// String returns the string representation of the NodeType.
func (nt NodeType) String() string {
	switch nt {
	case ElementNode:
		return "ELEMENT_NODE"
	case AttributeNode:
		return "ATTRIBUTE_NODE"
	case TextNode:
		return "TEXT_NODE"
	case DocumentNode:
		return "DOCUMENT_NODE"
	default:
		return "UNKNOWN_NODE"
	}
}

// TypeTag identifies the concrete leaf type of a node. It selects the
// constructor used by Document.CreateElement and the wrap function used to
// reflect the node.
type TypeTag uint8

const (
	TagUnknown TypeTag = iota
	TagDocument
	TagText
	TagAttr
	TagHTMLElement
	TagMedia
	TagAudio
	TagVideo
)

// String returns the interface name of the tag.
func (t TypeTag) String() string {
	switch t {
	case TagDocument:
		return "Document"
	case TagText:
		return "Text"
	case TagAttr:
		return "Attr"
	case TagHTMLElement:
		return "HTMLElement"
	case TagMedia:
		return "HTMLMediaElement"
	case TagAudio:
		return "HTMLAudioElement"
	case TagVideo:
		return "HTMLVideoElement"
	default:
		return "Unknown"
	}
}

// NodeType returns the DOM node type of nodes carrying the tag.
func (t TypeTag) NodeType() NodeType {
	switch t {
	case TagDocument:
		return DocumentNode
	case TagText:
		return TextNode
	case TagAttr:
		return AttributeNode
	case TagHTMLElement, TagMedia, TagAudio, TagVideo:
		return ElementNode
	default:
		return 0
	}
}

// IsElement reports whether the tag names an element type.
func (t TypeTag) IsElement() bool { return t.NodeType() == ElementNode }

// IsMedia reports whether the tag names a media element type.
func (t TypeTag) IsMedia() bool {
	return t == TagMedia || t == TagAudio || t == TagVideo
}

// ElementTags lists the tags Document.CreateElement accepts.
func ElementTags() []TypeTag {
	return []TypeTag{TagHTMLElement, TagMedia, TagAudio, TagVideo}
}
