package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SetInnerHTML replaces the children of an element or fragment with the
// parsed markup. For a template the markup becomes its contents. When the
// document has a sanitizer the markup is filtered first.
func (n *Node) SetInnerHTML(markup string) error {
	if n.typ != ElementNode && n.typ != DocumentFragmentNode {
		return exception(InvalidNodeTypeError, "%s has no inner HTML", n.NodeName())
	}
	if n.doc.sanitizer != nil {
		markup = n.doc.sanitizer.Sanitize(markup)
	}

	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	if n.isElement() && n.namespace == HTMLNamespace {
		context.Data = n.localName
		context.DataAtom = atom.Lookup([]byte(n.localName))
	}
	parsed, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return exception(SyntaxError, "cannot parse markup: %v", err)
	}

	target := n
	if n.isTemplate() {
		if target, err = n.Content(); err != nil {
			return err
		}
	}

	// The new subtrees are built detached; the old children stay in place
	// until every node has been created.
	nodes := make([]*Node, 0, len(parsed))
	for _, hn := range parsed {
		c, err := n.doc.importHTML(hn)
		if err != nil {
			return err
		}
		if c != nil {
			nodes = append(nodes, c)
		}
	}
	if err := target.removeChildren(); err != nil {
		return err
	}
	for _, c := range nodes {
		if err := target.AppendChild(c); err != nil {
			return err
		}
	}
	return nil
}

// importHTML creates the node for hn and its subtree, detached. Node types
// without a counterpart give nil.
func (d *Document) importHTML(hn *html.Node) (*Node, error) {
	var (
		c   *Node
		err error
	)
	switch hn.Type {
	case html.TextNode:
		c, err = d.CreateTextNode(hn.Data)
	case html.CommentNode:
		c, err = d.CreateComment(hn.Data)
	case html.ElementNode:
		c, err = d.importElement(hn)
	default:
		return nil, nil
	}
	if err != nil || hn.Type != html.ElementNode {
		return c, err
	}

	parent := c
	if c.isTemplate() {
		if parent, err = c.Content(); err != nil {
			return nil, err
		}
	}
	for child := hn.FirstChild; child != nil; child = child.NextSibling {
		cc, err := d.importHTML(child)
		if err != nil {
			return nil, err
		}
		if cc == nil {
			continue
		}
		if err := parent.AppendChild(cc); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (d *Document) importElement(hn *html.Node) (*Node, error) {
	var (
		el  *Node
		err error
	)
	switch hn.Namespace {
	case "":
		el, err = d.newElement(hn.Data)
	case "svg":
		el, err = d.newElementNS(SVGNamespace, hn.Data, hn.Data)
	case "math":
		el, err = d.newElementNS(MathMLNamespace, hn.Data, hn.Data)
	default:
		el, err = d.newElementNS(hn.Namespace, hn.Data, hn.Data)
	}
	if err != nil {
		return nil, err
	}
	for _, a := range hn.Attr {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		if err := el.setAttribute(name, a.Val); err != nil {
			return nil, err
		}
	}
	return el, nil
}
