package dom

import (
	"strings"

	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/gc"
)

// NodeType is the variant of a Node.
type NodeType uint8

const (
	ElementNode          NodeType = 1
	TextNode             NodeType = 3
	CommentNode          NodeType = 8
	DocumentNode         NodeType = 9
	DocumentFragmentNode NodeType = 11
)

// Namespaces recognised when creating elements.
const (
	HTMLNamespace   = "http://www.w3.org/1999/xhtml"
	SVGNamespace    = "http://www.w3.org/2000/svg"
	MathMLNamespace = "http://www.w3.org/1998/Math/MathML"
)

func (t NodeType) kind() binding.Kind {
	switch t {
	case ElementNode:
		return binding.KindElement
	case TextNode:
		return binding.KindText
	case CommentNode:
		return binding.KindComment
	case DocumentNode:
		return binding.KindDocument
	case DocumentFragmentNode:
		return binding.KindFragment
	}
	return binding.KindInvalid
}

// Node is any node of the tree. Which fields are meaningful depends on Type.
// Children are owned; the parent is held as a handle and resolved through
// the context's table, so a node never keeps its parent alive.
type Node struct {
	doc    *Document
	handle binding.Handle
	typ    NodeType

	parent   binding.Handle
	children []*Node

	// elements
	localName string
	qualified string
	namespace string
	attrs     *Attributes
	style     *Style
	classList *TokenList
	dataset   *StringMap
	content   *Node

	// text and comments
	data string

	disposed bool
}

func (n *Node) Handle() binding.Handle   { return n.handle }
func (n *Node) Type() NodeType           { return n.typ }
func (n *Node) OwnerDocument() *Document { return n.doc }
func (n *Node) LocalName() string        { return n.localName }
func (n *Node) NamespaceURI() string     { return n.namespace }

// Disposed reports whether the collector has reclaimed n.
func (n *Node) Disposed() bool { return n.disposed }

// NodeName is the tag name for elements and a #-prefixed name otherwise.
func (n *Node) NodeName() string {
	switch n.typ {
	case ElementNode:
		return n.TagName()
	case TextNode:
		return "#text"
	case CommentNode:
		return "#comment"
	case DocumentNode:
		return "#document"
	case DocumentFragmentNode:
		return "#document-fragment"
	}
	return ""
}

// TagName upper-cases HTML element names and keeps others as created.
func (n *Node) TagName() string {
	if n.typ != ElementNode {
		return ""
	}
	if n.namespace == HTMLNamespace {
		return strings.ToUpper(n.qualified)
	}
	return n.qualified
}

// ParentNode resolves the parent through the handle table.
func (n *Node) ParentNode() *Node {
	if n.parent.IsZero() {
		return nil
	}
	p, _ := n.doc.Lookup(n.parent)
	return p
}

// ChildNodes returns a copy of the child list.
func (n *Node) ChildNodes() []*Node {
	return append([]*Node(nil), n.children...)
}

func (n *Node) FirstChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[0]
}

func (n *Node) LastChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[len(n.children)-1]
}

func (n *Node) NextSibling() *Node     { return n.sibling(1) }
func (n *Node) PreviousSibling() *Node { return n.sibling(-1) }

func (n *Node) sibling(delta int) *Node {
	p := n.ParentNode()
	if p == nil {
		return nil
	}
	i := p.indexOf(n) + delta
	if i < 0 || i >= len(p.children) {
		return nil
	}
	return p.children[i]
}

func (n *Node) indexOf(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// Contains reports whether other is an inclusive descendant of n.
func (n *Node) Contains(other *Node) bool {
	for p := other; p != nil; p = p.ParentNode() {
		if p == n {
			return true
		}
	}
	return false
}

// IsConnected reports whether n is in its document's tree.
func (n *Node) IsConnected() bool {
	return n.doc.node.Contains(n)
}

// Data returns the character data of a text or comment node.
func (n *Node) Data() string { return n.data }

// Trace visits the owned edges of n: lazily created sub-objects, template
// content and children. The parent and siblings are not edges.
func (n *Node) Trace(v gc.Visitor) {
	if n.attrs != nil {
		v.Visit(n.attrs)
	}
	if n.style != nil {
		v.Visit(n.style)
	}
	if n.classList != nil {
		v.Visit(n.classList)
	}
	if n.dataset != nil {
		v.Visit(n.dataset)
	}
	if n.content != nil {
		v.Visit(n.content)
	}
	for _, c := range n.children {
		v.Visit(c)
	}
}

// Finalize runs when the collector sweeps n. The handle is released and
// the host is told to drop its mirror.
func (n *Node) Finalize() {
	n.disposed = true
	n.doc.ctx.Dispose(n.handle)
}

func (n *Node) isElement() bool { return n.typ == ElementNode }

func (n *Node) isTemplate() bool {
	return n.typ == ElementNode && n.namespace == HTMLNamespace && n.localName == "template"
}

// Content returns the contents fragment of a template, creating it on
// first use. It returns nil for other nodes.
func (n *Node) Content() (*Node, error) {
	if !n.isTemplate() {
		return nil, nil
	}
	if n.content == nil {
		frag, err := n.doc.CreateDocumentFragment()
		if err != nil {
			return nil, err
		}
		n.content = frag
	}
	return n.content, nil
}

func (n *Node) track(t gc.Traceable) {
	n.doc.ctx.Heap().Track(t)
}
