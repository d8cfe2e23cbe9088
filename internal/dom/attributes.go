package dom

import (
	"strings"

	"github.com/linsmod/webf/internal/command"
	"github.com/linsmod/webf/internal/gc"
)

// Attr is one attribute of an element.
type Attr struct {
	Name  string
	Value string
}

// Attributes is the ordered attribute table of an element. The style
// attribute is kept by the element's Style instead.
type Attributes struct {
	list []Attr
}

func (a *Attributes) Trace(gc.Visitor) {}

// Len returns the number of attributes.
func (a *Attributes) Len() int { return len(a.list) }

// Items returns a copy of the attributes in insertion order.
func (a *Attributes) Items() []Attr { return append([]Attr(nil), a.list...) }

func (a *Attributes) get(name string) (string, bool) {
	for _, attr := range a.list {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

func (a *Attributes) set(name, value string) {
	for i := range a.list {
		if a.list[i].Name == name {
			a.list[i].Value = value
			return
		}
	}
	a.list = append(a.list, Attr{Name: name, Value: value})
}

func (a *Attributes) remove(name string) {
	for i, attr := range a.list {
		if attr.Name == name {
			a.list = append(a.list[:i], a.list[i+1:]...)
			return
		}
	}
}

// Attributes returns the attribute table of an element, created on first use.
func (n *Node) Attributes() *Attributes {
	if !n.isElement() {
		return nil
	}
	if n.attrs == nil {
		n.attrs = &Attributes{}
		n.track(n.attrs)
	}
	return n.attrs
}

func (n *Node) attrName(name string) string {
	if n.namespace == HTMLNamespace {
		return strings.ToLower(name)
	}
	return name
}

// GetAttribute returns the value of an attribute and whether it is present.
func (n *Node) GetAttribute(name string) (string, bool) {
	if !n.isElement() {
		return "", false
	}
	name = n.attrName(name)
	if name == "style" {
		if n.style == nil || n.style.Len() == 0 {
			return "", false
		}
		return n.style.CSSText(), true
	}
	if n.attrs == nil {
		return "", false
	}
	return n.attrs.get(name)
}

// HasAttribute reports whether an attribute is present.
func (n *Node) HasAttribute(name string) bool {
	_, ok := n.GetAttribute(name)
	return ok
}

// ID returns the id attribute.
func (n *Node) ID() string {
	id, _ := n.GetAttribute("id")
	return id
}

// ClassName returns the class attribute.
func (n *Node) ClassName() string {
	class, _ := n.GetAttribute("class")
	return class
}

// SetAttribute sets an attribute. Names of HTML elements are lower-cased.
func (n *Node) SetAttribute(name, value string) error {
	if !n.isElement() {
		return exception(InvalidNodeTypeError, "%s has no attributes", n.NodeName())
	}
	if !validName(name) {
		return exception(InvalidCharacterError, "%q is not a valid attribute name", name)
	}
	return n.setAttribute(name, value)
}

// setAttribute skips name validation. Markup parsed by the HTML tokenizer
// may carry names such as "@click" that SetAttribute rejects.
func (n *Node) setAttribute(name, value string) error {
	name = n.attrName(name)
	old, _ := n.GetAttribute(name)

	if err := n.doc.ctx.Emit(command.OpSetAttribute, n.handle, name, value); err != nil {
		return err
	}
	if name == "style" {
		n.Style().parse(value)
	} else {
		n.Attributes().set(name, value)
	}
	n.didModifyAttribute(name, old, value)
	return nil
}

// RemoveAttribute removes an attribute. Removing an absent attribute does
// nothing and appends no record.
func (n *Node) RemoveAttribute(name string) error {
	if !n.isElement() {
		return exception(InvalidNodeTypeError, "%s has no attributes", n.NodeName())
	}
	name = n.attrName(name)
	old, ok := n.GetAttribute(name)
	if !ok {
		return nil
	}

	if err := n.doc.ctx.Emit(command.OpRemoveAttribute, n.handle, name); err != nil {
		return err
	}
	if name == "style" {
		n.style.decls = nil
	} else {
		n.attrs.remove(name)
	}
	n.didModifyAttribute(name, old, "")
	return nil
}

// didModifyAttribute runs after every attribute change. It keeps the id
// index and the class list in step and notifies observers; it never
// appends records.
func (n *Node) didModifyAttribute(name, old, value string) {
	switch name {
	case "id":
		if n.IsConnected() && old != value {
			n.doc.unindex(old, n)
			if _, ok := n.GetAttribute("id"); ok {
				n.doc.index(value, n)
			}
		}
	case "class":
		if n.classList != nil {
			n.classList.invalidate()
		}
	}
	for _, fn := range n.doc.observers {
		fn(n, name, old, value)
	}
}
