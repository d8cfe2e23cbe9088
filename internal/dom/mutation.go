package dom

import (
	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/command"
)

func (n *Node) canHaveChildren() bool {
	switch n.typ {
	case ElementNode, DocumentNode, DocumentFragmentNode:
		return true
	}
	return false
}

// validateInsert checks that child may become a child of n before ref.
func (n *Node) validateInsert(child, ref *Node) error {
	switch {
	case child == nil:
		return exception(HierarchyRequestError, "cannot insert a null node")
	case child.doc != n.doc:
		return exception(WrongDocumentError, "the node belongs to another document")
	case child.disposed || n.disposed:
		return exception(InvalidStateError, "the node has been disposed")
	case !n.canHaveChildren():
		return exception(HierarchyRequestError, "%s cannot have children", n.NodeName())
	case child.typ == DocumentNode:
		return exception(HierarchyRequestError, "a document cannot be inserted")
	case child.Contains(n):
		return exception(HierarchyRequestError, "the new child is an ancestor of the parent")
	case n.typ == DocumentNode && child.typ == TextNode:
		return exception(HierarchyRequestError, "text cannot be a child of a document")
	case ref != nil && ref.parent != n.handle:
		return exception(NotFoundError, "the reference node is not a child of this node")
	}
	if n.typ == DocumentNode && child.typ == DocumentFragmentNode {
		for _, c := range child.children {
			if c.typ == TextNode {
				return exception(HierarchyRequestError, "text cannot be a child of a document")
			}
		}
	}
	return nil
}

// AppendChild inserts child as the last child of n.
func (n *Node) AppendChild(child *Node) error {
	return n.InsertBefore(child, nil)
}

// InsertBefore inserts child before ref, or last when ref is nil. A child
// that already has a parent is moved with a single insert record; a
// fragment moves its children with a single record addressed by the
// fragment.
func (n *Node) InsertBefore(child, ref *Node) error {
	if err := n.validateInsert(child, ref); err != nil {
		return err
	}

	var err error
	if ref == nil {
		err = n.doc.ctx.EmitAux(command.OpInsertAdjacentNode, n.handle, child.handle, command.BeforeEnd)
	} else {
		err = n.doc.ctx.EmitAux(command.OpInsertAdjacentNode, ref.handle, child.handle, command.BeforeBegin)
	}
	if err != nil {
		return err
	}

	if ref == child {
		ref = child.NextSibling()
	}
	nodes := []*Node{child}
	if child.typ == DocumentFragmentNode {
		nodes = child.ChildNodes()
	}
	for _, c := range nodes {
		c.detach()
		n.attach(c, ref)
	}
	return nil
}

// attach links an unparented c into n before ref.
func (n *Node) attach(c, ref *Node) {
	i := len(n.children)
	if ref != nil {
		i = n.indexOf(ref)
	}
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = c
	c.parent = n.handle
	if n.IsConnected() {
		n.doc.connected(c, true)
	}
}

// detach unlinks n from its parent without emitting a record.
func (n *Node) detach() {
	p := n.ParentNode()
	if p == nil {
		return
	}
	if p.IsConnected() {
		n.doc.connected(n, false)
	}
	if i := p.indexOf(n); i >= 0 {
		p.children = append(p.children[:i], p.children[i+1:]...)
	}
	n.parent = binding.Handle{}
}

// RemoveChild removes child from n.
func (n *Node) RemoveChild(child *Node) error {
	if child == nil || child.parent != n.handle {
		return exception(NotFoundError, "the node to be removed is not a child of this node")
	}
	if err := n.doc.ctx.Emit(command.OpRemoveNode, child.handle); err != nil {
		return err
	}
	child.detach()
	return nil
}

// Remove removes n from its parent. It does nothing for a parentless node.
func (n *Node) Remove() error {
	p := n.ParentNode()
	if p == nil {
		return nil
	}
	return p.RemoveChild(n)
}

// ReplaceChild puts child in place of old: an insert before old followed
// by the removal of old.
func (n *Node) ReplaceChild(child, old *Node) error {
	if old == nil || old.parent != n.handle {
		return exception(NotFoundError, "the node to be replaced is not a child of this node")
	}
	if child == old {
		return nil
	}
	if err := n.InsertBefore(child, old); err != nil {
		return err
	}
	return n.RemoveChild(old)
}

// SetData replaces the character data of a text or comment node.
func (n *Node) SetData(data string) error {
	if n.typ != TextNode && n.typ != CommentNode {
		return exception(InvalidNodeTypeError, "%s has no character data", n.NodeName())
	}
	if err := n.doc.ctx.Emit(command.OpSetData, n.handle, data); err != nil {
		return err
	}
	n.data = data
	return nil
}

// SetTextContent replaces the children of an element or fragment with a
// single text node, or sets the data of a text or comment node.
func (n *Node) SetTextContent(text string) error {
	switch n.typ {
	case TextNode, CommentNode:
		return n.SetData(text)
	case DocumentNode:
		return nil
	}
	if err := n.removeChildren(); err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	t, err := n.doc.CreateTextNode(text)
	if err != nil {
		return err
	}
	return n.AppendChild(t)
}

func (n *Node) removeChildren() error {
	for len(n.children) > 0 {
		if err := n.RemoveChild(n.children[0]); err != nil {
			return err
		}
	}
	return nil
}

// CloneNode copies n. An element copy is created first and then paired
// with its original by a CloneNode record, from which the host copies
// attributes and style. Deep clones also copy descendants and template
// contents.
func (n *Node) CloneNode(deep bool) (*Node, error) {
	var (
		c   *Node
		err error
	)
	switch n.typ {
	case ElementNode:
		c, err = n.cloneElement()
	case TextNode:
		c, err = n.doc.CreateTextNode(n.data)
	case CommentNode:
		c, err = n.doc.CreateComment(n.data)
	case DocumentFragmentNode:
		c, err = n.doc.CreateDocumentFragment()
	default:
		return nil, exception(NotSupportedError, "%s cannot be cloned", n.NodeName())
	}
	if err != nil || !deep {
		return c, err
	}

	if n.content != nil {
		content, err := n.content.CloneNode(true)
		if err != nil {
			return nil, err
		}
		c.content = content
	}
	for _, child := range n.children {
		cc, err := child.CloneNode(true)
		if err != nil {
			return nil, err
		}
		if err := c.AppendChild(cc); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (n *Node) cloneElement() (*Node, error) {
	var (
		c   *Node
		err error
	)
	if n.namespace == HTMLNamespace {
		c, err = n.doc.CreateElement(n.localName)
	} else {
		c, err = n.doc.CreateElementNS(n.namespace, n.qualified)
	}
	if err != nil {
		return nil, err
	}
	if err := n.doc.ctx.EmitAux(command.OpCloneNode, n.handle, c.handle); err != nil {
		return nil, err
	}
	if n.attrs != nil && n.attrs.Len() > 0 {
		c.Attributes().list = n.attrs.Items()
	}
	if n.style != nil && n.style.Len() > 0 {
		c.Style().decls = append([]declaration(nil), n.style.decls...)
	}
	return c, nil
}
