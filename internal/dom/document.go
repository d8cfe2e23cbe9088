package dom

import (
	"strings"
	"unicode"

	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/bridge"
	"github.com/linsmod/webf/internal/command"
	"github.com/microcosm-cc/bluemonday"
)

// AttributeObserver is notified after an attribute of an element changed.
// old and value are "" for an absent attribute.
type AttributeObserver func(n *Node, name, old, value string)

// Document is the root of one execution context's tree.
type Document struct {
	ctx       *bridge.Context
	node      *Node
	ids       map[string][]*Node
	observers []AttributeObserver
	sanitizer *bluemonday.Policy
}

// Option configures a Document.
type Option func(*Document)

// WithSanitizer filters markup passed to SetInnerHTML through p.
func WithSanitizer(p *bluemonday.Policy) Option {
	return func(d *Document) { d.sanitizer = p }
}

// NewDocument creates the document of c. The document node is a root of
// the heap for the lifetime of the context.
func NewDocument(c *bridge.Context, opts ...Option) (*Document, error) {
	d := &Document{ctx: c, ids: make(map[string][]*Node)}
	if c.Config().SanitizeHTML {
		d.sanitizer = bluemonday.UGCPolicy()
	}
	for _, opt := range opts {
		opt(d)
	}

	n, err := d.create(DocumentNode, command.OpCreateDocument)
	if err != nil {
		return nil, err
	}
	d.node = n
	c.Heap().Retain(n)
	return d, nil
}

// Node returns the document node.
func (d *Document) Node() *Node { return d.node }

// Context returns the execution context the document belongs to.
func (d *Document) Context() *bridge.Context { return d.ctx }

// Lookup resolves a handle of this context to its node.
func (d *Document) Lookup(h binding.Handle) (*Node, bool) {
	obj, ok := d.ctx.Table().Lookup(h)
	if !ok {
		return nil, false
	}
	n, ok := obj.(*Node)
	return n, ok
}

// Observe registers fn for every attribute change in the document.
func (d *Document) Observe(fn AttributeObserver) {
	d.observers = append(d.observers, fn)
}

// create allocates a node, registers it and emits its creation record.
func (d *Document) create(typ NodeType, op command.Opcode, args ...string) (*Node, error) {
	n := &Node{doc: d, typ: typ}
	n.handle = d.ctx.Register(n, typ.kind())
	if err := d.ctx.Emit(op, n.handle, args...); err != nil {
		return nil, err
	}
	return n, nil
}

// CreateElement creates an HTML element. The name is lower-cased.
func (d *Document) CreateElement(name string) (*Node, error) {
	if !validName(name) {
		return nil, exception(InvalidCharacterError, "%q is not a valid element name", name)
	}
	return d.newElement(name)
}

func (d *Document) newElement(name string) (*Node, error) {
	name = strings.ToLower(name)
	n, err := d.create(ElementNode, command.OpCreateElement, name)
	if err != nil {
		return nil, err
	}
	n.localName, n.qualified, n.namespace = name, name, HTMLNamespace
	return n, nil
}

// CreateElementNS creates an element in namespace ns. SVG elements use the
// dedicated creation record.
func (d *Document) CreateElementNS(ns, qualified string) (*Node, error) {
	if !validName(qualified) {
		return nil, exception(InvalidCharacterError, "%q is not a valid element name", qualified)
	}
	prefix, local, found := strings.Cut(qualified, ":")
	if !found {
		local = prefix
	} else if prefix == "" || local == "" || strings.Contains(local, ":") {
		return nil, exception(InvalidCharacterError, "%q is not a valid qualified name", qualified)
	}
	if ns == "" || ns == HTMLNamespace && !found {
		return d.newElement(qualified)
	}
	return d.newElementNS(ns, qualified, local)
}

func (d *Document) newElementNS(ns, qualified, local string) (*Node, error) {
	var (
		n   *Node
		err error
	)
	if ns == SVGNamespace {
		n, err = d.create(ElementNode, command.OpCreateSVGElement, local)
	} else {
		n, err = d.create(ElementNode, command.OpCreateElementNS, ns, qualified)
	}
	if err != nil {
		return nil, err
	}
	n.localName, n.qualified, n.namespace = local, qualified, ns
	return n, nil
}

func (d *Document) CreateTextNode(data string) (*Node, error) {
	n, err := d.create(TextNode, command.OpCreateTextNode, data)
	if err != nil {
		return nil, err
	}
	n.data = data
	return n, nil
}

func (d *Document) CreateComment(data string) (*Node, error) {
	n, err := d.create(CommentNode, command.OpCreateComment, data)
	if err != nil {
		return nil, err
	}
	n.data = data
	return n, nil
}

func (d *Document) CreateDocumentFragment() (*Node, error) {
	return d.create(DocumentFragmentNode, command.OpCreateDocumentFragment)
}

// GetElementByID returns the first connected element indexed under id.
func (d *Document) GetElementByID(id string) *Node {
	if nodes := d.ids[id]; len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

// DocumentElement returns the first element child of the document.
func (d *Document) DocumentElement() *Node {
	for _, c := range d.node.children {
		if c.isElement() {
			return c
		}
	}
	return nil
}

func (d *Document) index(id string, n *Node) {
	if id == "" {
		return
	}
	d.ids[id] = append(d.ids[id], n)
}

func (d *Document) unindex(id string, n *Node) {
	nodes := d.ids[id]
	for i, c := range nodes {
		if c == n {
			nodes = append(nodes[:i], nodes[i+1:]...)
			break
		}
	}
	if len(nodes) == 0 {
		delete(d.ids, id)
		return
	}
	d.ids[id] = nodes
}

// connected updates the id index for every element of the subtree at n.
func (d *Document) connected(n *Node, connect bool) {
	if n.isElement() {
		if id, ok := n.GetAttribute("id"); ok {
			if connect {
				d.index(id, n)
			} else {
				d.unindex(id, n)
			}
		}
	}
	for _, c := range n.children {
		d.connected(c, connect)
	}
}

// validName accepts XML names, which is what element and attribute names
// must be.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == ':' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)):
		default:
			return false
		}
	}
	return true
}
