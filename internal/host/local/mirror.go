package local

import (
	"bytes"
	"strings"
	"sync"

	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/command"
	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/shared/id"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// op is a record copied out of the bridge's log.
type op struct {
	seq    uint64
	code   command.Opcode
	target binding.Handle
	aux    binding.Handle
	args   [2]string
}

func copyRecords(records []command.Record) []op {
	ops := make([]op, len(records))
	for i, r := range records {
		ops[i] = op{
			seq:    r.Seq,
			code:   r.Op,
			target: r.TargetHandle(),
			aux:    r.AuxHandle(),
			args:   [2]string{r.Arg(0), r.Arg(1)},
		}
	}
	return ops
}

type entry struct {
	handle  binding.Handle
	node    *html.Node
	style   declarations
	scrollX float64
	scrollY float64
	clicks  int
}

// Mirror is the host-side copy of one context's tree.
type Mirror struct {
	id id.ContextID

	mu            sync.Mutex
	nodes         map[uint64]*entry
	byNode        map[*html.Node]*entry
	document      *html.Node
	lastSeq       uint64
	notifications int

	applying bool
}

func newMirror(ctxID id.ContextID) *Mirror {
	return &Mirror{
		id:     ctxID,
		nodes:  make(map[uint64]*entry),
		byNode: make(map[*html.Node]*entry),
	}
}

func (m *Mirror) lookup(h binding.Handle) (*entry, bool) {
	e, ok := m.nodes[h.ID]
	if !ok || e.handle.Kind != h.Kind {
		return nil, false
	}
	return e, true
}

func (m *Mirror) protocolError(o op, h binding.Handle, reason string) error {
	return &host.ProtocolError{Context: m.id, Seq: o.seq, Handle: h, Op: o.code.String(), Reason: reason}
}

func (m *Mirror) define(o op, n *html.Node) error {
	if _, exists := m.nodes[o.target.ID]; exists {
		return m.protocolError(o, o.target, "handle already defined")
	}
	e := &entry{handle: o.target, node: n}
	m.nodes[o.target.ID] = e
	m.byNode[n] = e
	return nil
}

func element(name, namespace string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: name, Namespace: namespace}
	if namespace == "" {
		n.DataAtom = atom.Lookup([]byte(name))
	}
	return n
}

func (m *Mirror) apply(o op) error {
	switch o.code {
	case command.OpCreateDocument:
		n := &html.Node{Type: html.DocumentNode}
		if err := m.define(o, n); err != nil {
			return err
		}
		if m.document == nil {
			m.document = n
		}
		return nil
	case command.OpCreateElement:
		return m.define(o, element(o.args[0], ""))
	case command.OpCreateSVGElement:
		return m.define(o, element(o.args[0], "svg"))
	case command.OpCreateElementNS:
		return m.define(o, element(localName(o.args[1]), namespaceTag(o.args[0])))
	case command.OpCreateTextNode:
		return m.define(o, &html.Node{Type: html.TextNode, Data: o.args[0]})
	case command.OpCreateComment:
		return m.define(o, &html.Node{Type: html.CommentNode, Data: o.args[0]})
	case command.OpCreateDocumentFragment:
		return m.define(o, &html.Node{Type: html.DocumentNode})
	case command.OpDisposeBindingObject:
		if e, ok := m.lookup(o.target); ok {
			delete(m.nodes, o.target.ID)
			delete(m.byNode, e.node)
		}
		return nil
	}

	target, ok := m.lookup(o.target)
	if !ok {
		return m.protocolError(o, o.target, "")
	}

	switch o.code {
	case command.OpInsertAdjacentNode:
		return m.insert(o, target)
	case command.OpRemoveNode:
		detach(target.node)
	case command.OpCloneNode:
		clone, ok := m.lookup(o.aux)
		if !ok {
			return m.protocolError(o, o.aux, "")
		}
		clone.node.Attr = append([]html.Attribute(nil), target.node.Attr...)
		clone.style = append(declarations(nil), target.style...)
	case command.OpSetAttribute:
		if o.args[0] == "style" {
			target.style = parseDeclarations(o.args[1])
		}
		setAttr(target.node, o.args[0], o.args[1])
	case command.OpRemoveAttribute:
		if o.args[0] == "style" {
			target.style = nil
		}
		removeAttr(target.node, o.args[0])
	case command.OpSetStyle:
		target.style = target.style.set(o.args[0], o.args[1])
		if len(target.style) == 0 {
			removeAttr(target.node, "style")
		} else {
			setAttr(target.node, "style", target.style.String())
		}
	case command.OpSetData:
		if t := target.node.Type; t != html.TextNode && t != html.CommentNode {
			return m.protocolError(o, o.target, "not character data")
		}
		target.node.Data = o.args[0]
	default:
		return m.protocolError(o, o.target, "unsupported opcode")
	}
	return nil
}

func (m *Mirror) insert(o op, anchor *entry) error {
	moved, ok := m.lookup(o.aux)
	if !ok {
		return m.protocolError(o, o.aux, "")
	}

	var parent, ref *html.Node
	switch o.args[0] {
	case command.BeforeBegin:
		parent, ref = anchor.node.Parent, anchor.node
	case command.AfterBegin:
		parent, ref = anchor.node, anchor.node.FirstChild
	case command.BeforeEnd:
		parent = anchor.node
	case command.AfterEnd:
		parent, ref = anchor.node.Parent, anchor.node.NextSibling
	default:
		return m.protocolError(o, o.target, "invalid position "+o.args[0])
	}
	if parent == nil {
		return m.protocolError(o, o.target, "anchor has no parent")
	}

	nodes := []*html.Node{moved.node}
	if moved.handle.Kind == binding.KindFragment {
		nodes = nodes[:0]
		for c := moved.node.FirstChild; c != nil; c = c.NextSibling {
			nodes = append(nodes, c)
		}
	}
	for _, n := range nodes {
		if contains(n, parent) {
			return m.protocolError(o, o.aux, "insertion would create a cycle")
		}
	}
	for _, n := range nodes {
		if n == ref {
			ref = n.NextSibling
		}
		detach(n)
		if ref == nil {
			parent.AppendChild(n)
		} else {
			parent.InsertBefore(n, ref)
		}
	}
	return nil
}

// contains reports whether n is an inclusive ancestor of other.
func contains(n, other *html.Node) bool {
	for p := other; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func localName(qname string) string {
	if i := strings.IndexByte(qname, ':'); i >= 0 {
		return qname[i+1:]
	}
	return qname
}

func namespaceTag(uri string) string {
	switch uri {
	case "http://www.w3.org/2000/svg":
		return "svg"
	case "http://www.w3.org/1998/Math/MathML":
		return "math"
	case "http://www.w3.org/1999/xhtml":
		return ""
	}
	return uri
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// Render serializes the first document the context created.
func (m *Mirror) Render() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.document == nil {
		return ""
	}
	return render(m.document)
}

// RenderNode serializes one mirrored node.
func (m *Mirror) RenderNode(h binding.Handle) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(h)
	if !ok {
		return "", false
	}
	return render(e.node), true
}

func render(n *html.Node) string {
	var buf bytes.Buffer
	if n.Type == html.DocumentNode {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			_ = html.Render(&buf, c)
		}
		return buf.String()
	}
	_ = html.Render(&buf, n)
	return buf.String()
}

// Attribute returns an attribute of a mirrored element.
func (m *Mirror) Attribute(h binding.Handle, name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(h)
	if !ok {
		return "", false
	}
	return attr(e.node, name)
}

// Style returns an inline style property, "" when unset.
func (m *Mirror) Style(h binding.Handle, property string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.lookup(h); ok {
		return e.style.get(property)
	}
	return ""
}

// Clicks returns how many clicks h received.
func (m *Mirror) Clicks(h binding.Handle) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.lookup(h); ok {
		return e.clicks
	}
	return 0
}

// ScrollOffset returns h's scroll position.
func (m *Mirror) ScrollOffset(h binding.Handle) (x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.lookup(h); ok {
		return e.scrollX, e.scrollY
	}
	return 0, 0
}

// Notifications returns the number of schedule-update notifications received.
func (m *Mirror) Notifications() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifications
}

// Len returns the number of live handles.
func (m *Mirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.nodes)
}

// LastSeq returns the sequence number of the last applied record.
func (m *Mirror) LastSeq() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSeq
}

// Has reports whether the host still knows h.
func (m *Mirror) Has(h binding.Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(h)
	return ok
}
