package dom

import (
	"strings"

	"github.com/chrisuehlinger/vibedom/gc"
)

// Noder is implemented by every node type. Tree links resolve to it.
type Noder interface {
	gc.Object
	AsNode() *Node
	NodeName() string
}

// Node is the bottom level of every node type.
//
// Forward links (first child, next sibling) are strong and traced; links
// pointing back up or left (parent, previous sibling, last child) and the
// owner document are weak, so liveness is decided by the document→tree
// direction alone.
type Node struct {
	gc.Anchor

	nodeType NodeType
	tag      TypeTag
	document gc.WeakRef

	parent      gc.WeakRef
	firstChild  gc.Ref
	lastChild   gc.WeakRef
	prevSibling gc.WeakRef
	nextSibling gc.Ref
	childCount  int
}

func newNodeInherited(tag TypeTag, doc *Document) Node {
	n := Node{
		nodeType: tag.NodeType(),
		tag:      tag,
	}
	if doc != nil {
		n.document = doc.Self().Weak()
	}
	return n
}

// AsNode returns the Node level of any node type.
func (n *Node) AsNode() *Node {
	return n
}

// Trace reports the node's strong links.
func (n *Node) Trace(t *gc.Tracer) {
	t.Trace(n.firstChild)
	t.Trace(n.nextSibling)
}

// NodeType returns the type of the node.
func (n *Node) NodeType() NodeType {
	return n.nodeType
}

// TypeTag returns the concrete leaf type the node was constructed as.
func (n *Node) TypeTag() TypeTag {
	return n.tag
}

// NodeName returns the name of the node. Element and the other leaf levels
// override it.
func (n *Node) NodeName() string {
	switch n.nodeType {
	case TextNode:
		return "#text"
	case DocumentNode:
		return "#document"
	default:
		return n.tag.String()
	}
}

// OwnerDocument returns the Document the node was constructed for. It never
// changes. For Document nodes, and once the document has been collected, this
// returns nil.
func (n *Node) OwnerDocument() *gc.Root[*Document] {
	if n.nodeType == DocumentNode {
		return nil
	}
	return gc.Upgrade[*Document](n.Heap(), n.document)
}

// ParentNode returns the parent of this node.
func (n *Node) ParentNode() *gc.Root[Noder] {
	return gc.Upgrade[Noder](n.Heap(), n.parent)
}

// FirstChild returns the first child node, or nil if there are no children.
func (n *Node) FirstChild() *gc.Root[Noder] {
	return gc.Fetch[Noder](n.Heap(), n.firstChild)
}

// LastChild returns the last child node, or nil if there are no children.
func (n *Node) LastChild() *gc.Root[Noder] {
	return gc.Upgrade[Noder](n.Heap(), n.lastChild)
}

// PreviousSibling returns the previous sibling node, or nil if this is the first child.
func (n *Node) PreviousSibling() *gc.Root[Noder] {
	return gc.Upgrade[Noder](n.Heap(), n.prevSibling)
}

// NextSibling returns the next sibling node, or nil if this is the last child.
func (n *Node) NextSibling() *gc.Root[Noder] {
	return gc.Fetch[Noder](n.Heap(), n.nextSibling)
}

// HasChildNodes returns true if this node has any child nodes.
func (n *Node) HasChildNodes() bool {
	return !n.firstChild.IsNull()
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int {
	return n.childCount
}

// ForEachChild calls fn for each child in order until fn returns false.
// fn must not allocate.
func (n *Node) ForEachChild(fn func(Noder) bool) {
	for r := n.firstChild; !r.IsNull(); {
		c := gc.Borrow[Noder](n.Heap(), r)
		r = c.AsNode().nextSibling
		if !fn(c) {
			return
		}
	}
}

// Children returns a root over each child. The caller releases them.
func (n *Node) Children() []*gc.Root[Noder] {
	roots := make([]*gc.Root[Noder], 0, n.childCount)
	for r := n.firstChild; !r.IsNull(); {
		c := gc.Fetch[Noder](n.Heap(), r)
		roots = append(roots, c)
		r = c.Get().AsNode().nextSibling
	}
	return roots
}

// Contains returns true if other is this node or one of its descendants.
func (n *Node) Contains(other Noder) bool {
	if other == nil {
		return false
	}
	for cur := other.AsNode(); cur != nil; cur = cur.weakNode(cur.parent) {
		if cur == n {
			return true
		}
	}
	return false
}

// TextContent returns the concatenated data of all descendant Text nodes.
func (n *Node) TextContent() string {
	var sb strings.Builder
	n.collectText(&sb)
	return sb.String()
}

func (n *Node) collectText(sb *strings.Builder) {
	n.ForEachChild(func(c Noder) bool {
		if t, ok := c.(*Text); ok {
			sb.WriteString(t.data)
		} else {
			c.AsNode().collectText(sb)
		}
		return true
	})
}

// AppendChild adds a node to the end of the list of children of this node.
func (n *Node) AppendChild(child Noder) error {
	return n.InsertBefore(child, nil)
}

// InsertBefore inserts a node before a reference child node.
// If refChild is nil, the node is appended to the end.
// A node is moved, never adopted: its owner document must be this node's.
func (n *Node) InsertBefore(newChild, refChild Noder) error {
	if newChild == nil {
		return ErrHierarchyRequest("The node to be inserted is null.")
	}
	c := newChild.AsNode()
	var ref *Node
	if refChild != nil {
		ref = refChild.AsNode()
	}
	if err := n.validatePreInsertion(c, ref); err != nil {
		return err
	}
	if c == ref {
		return nil
	}

	c.detach()

	self := n.Self()
	c.parent = self.Weak()
	if ref == nil {
		last := n.weakNode(n.lastChild)
		c.prevSibling = n.lastChild
		if last != nil {
			last.nextSibling = c.Self()
		} else {
			n.firstChild = c.Self()
		}
		n.lastChild = c.Self().Weak()
	} else {
		prev := n.weakNode(ref.prevSibling)
		c.prevSibling = ref.prevSibling
		c.nextSibling = ref.Self()
		if prev != nil {
			prev.nextSibling = c.Self()
		} else {
			n.firstChild = c.Self()
		}
		ref.prevSibling = c.Self().Weak()
	}
	n.childCount++
	return nil
}

// RemoveChild removes a child node from this node.
func (n *Node) RemoveChild(child Noder) error {
	if child == nil || !child.AsNode().parent.Is(n.Self()) {
		return ErrNotFound("The node to be removed is not a child of this node.")
	}
	child.AsNode().detach()
	return nil
}

// validatePreInsertion implements the pre-insertion validity checks.
// https://dom.spec.whatwg.org/#concept-node-ensure-pre-insertion-validity
func (n *Node) validatePreInsertion(node, child *Node) error {
	if node.Heap() != n.Heap() || node.document != n.document {
		return ErrWrongDocument("The node was created for a different document.")
	}
	if n.nodeType != DocumentNode && n.nodeType != ElementNode {
		return ErrHierarchyRequest("The operation would yield an incorrect node tree.")
	}
	if node.nodeType != ElementNode && node.nodeType != TextNode {
		return ErrHierarchyRequest("The operation would yield an incorrect node tree.")
	}
	if node.Contains(n) {
		return ErrHierarchyRequest("The new child element contains the parent.")
	}
	if child != nil && !child.parent.Is(n.Self()) {
		return ErrNotFound("The node before which the new node is to be inserted is not a child of this node.")
	}
	if n.nodeType == DocumentNode {
		if node.nodeType == TextNode {
			return ErrHierarchyRequest("Cannot insert Text node as a direct child of Document.")
		}
		hasElement := false
		n.ForEachChild(func(c Noder) bool {
			if c.AsNode() != node && c.AsNode().nodeType == ElementNode {
				hasElement = true
				return false
			}
			return true
		})
		if hasElement {
			return ErrHierarchyRequest("Document already has a document element.")
		}
	}
	return nil
}

// detach unlinks the node from its parent and siblings. It tolerates a
// parent or previous sibling that has already been collected.
func (n *Node) detach() {
	parent := n.weakNode(n.parent)
	prev := n.weakNode(n.prevSibling)
	next := n.node(n.nextSibling)

	if prev != nil {
		prev.nextSibling = n.nextSibling
	} else if parent != nil {
		parent.firstChild = n.nextSibling
	}
	if next != nil {
		next.prevSibling = n.prevSibling
	} else if parent != nil {
		parent.lastChild = n.prevSibling
	}
	if parent != nil {
		parent.childCount--
	}
	n.parent = gc.WeakRef{}
	n.prevSibling = gc.WeakRef{}
	n.nextSibling = gc.Ref{}
}

func (n *Node) node(r gc.Ref) *Node {
	if r.IsNull() {
		return nil
	}
	return gc.Borrow[Noder](n.Heap(), r).AsNode()
}

func (n *Node) weakNode(w gc.WeakRef) *Node {
	v, ok := gc.BorrowWeak[Noder](n.Heap(), w)
	if !ok {
		return nil
	}
	return v.AsNode()
}
