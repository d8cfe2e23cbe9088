package dom

import (
	"strings"

	"github.com/linsmod/webf/internal/command"
	"github.com/linsmod/webf/internal/gc"
)

type declaration struct {
	property string
	value    string
}

// Style is the inline style of an element. Properties are keyed by their
// camel-cased name, which is also what SetStyle records carry.
type Style struct {
	owner *Node
	decls []declaration
}

func (s *Style) Trace(gc.Visitor) {}

// Style returns the inline style of an element, created on first use.
func (n *Node) Style() *Style {
	if !n.isElement() {
		return nil
	}
	if n.style == nil {
		n.style = &Style{owner: n}
		n.track(n.style)
	}
	return n.style
}

// Owner returns the element the style belongs to.
func (s *Style) Owner() *Node { return s.owner }

// Len returns the number of declarations.
func (s *Style) Len() int { return len(s.decls) }

// Properties returns the camel-cased names of the declarations in order.
func (s *Style) Properties() []string {
	names := make([]string, len(s.decls))
	for i, d := range s.decls {
		names[i] = d.property
	}
	return names
}

// GetPropertyValue accepts camel-cased or CSS property names.
func (s *Style) GetPropertyValue(name string) string {
	name = camel(name)
	for _, d := range s.decls {
		if d.property == name {
			return d.value
		}
	}
	return ""
}

// SetProperty sets a declaration. An empty value removes it.
func (s *Style) SetProperty(name, value string) error {
	name = camel(strings.TrimSpace(name))
	value = strings.TrimSpace(value)
	if name == "" {
		return exception(SyntaxError, "empty style property name")
	}
	if value == "" && s.GetPropertyValue(name) == "" {
		return nil
	}

	old, _ := s.owner.GetAttribute("style")
	if err := s.owner.doc.ctx.Emit(command.OpSetStyle, s.owner.handle, name, value); err != nil {
		return err
	}
	s.set(name, value)
	updated, _ := s.owner.GetAttribute("style")
	s.owner.didModifyAttribute("style", old, updated)
	return nil
}

// RemoveProperty removes a declaration and returns its old value.
func (s *Style) RemoveProperty(name string) (string, error) {
	old := s.GetPropertyValue(name)
	if old == "" {
		return "", nil
	}
	return old, s.SetProperty(name, "")
}

// CSSText serializes the declarations in CSS form.
func (s *Style) CSSText() string {
	parts := make([]string, len(s.decls))
	for i, d := range s.decls {
		parts[i] = kebab(d.property) + ": " + d.value
	}
	return strings.Join(parts, "; ")
}

func (s *Style) set(name, value string) {
	for i, d := range s.decls {
		if d.property != name {
			continue
		}
		if value == "" {
			s.decls = append(s.decls[:i], s.decls[i+1:]...)
		} else {
			s.decls[i].value = value
		}
		return
	}
	if value != "" {
		s.decls = append(s.decls, declaration{property: name, value: value})
	}
}

// parse replaces the declarations with those of a style attribute.
func (s *Style) parse(text string) {
	s.decls = nil
	for _, part := range strings.Split(text, ";") {
		property, value, ok := strings.Cut(part, ":")
		property = strings.ToLower(strings.TrimSpace(property))
		if !ok || property == "" {
			continue
		}
		s.set(camel(property), strings.TrimSpace(value))
	}
}

// camel turns background-color into backgroundColor and -webkit-transform
// into WebkitTransform. Camel-cased input is returned unchanged.
func camel(name string) string {
	if !strings.Contains(name, "-") {
		return name
	}
	var b strings.Builder
	upper := false
	for _, r := range name {
		if r == '-' {
			upper = true
			continue
		}
		if upper && 'a' <= r && r <= 'z' {
			r -= 'a' - 'A'
		}
		upper = false
		b.WriteRune(r)
	}
	return b.String()
}

func kebab(name string) string {
	var b strings.Builder
	for _, r := range name {
		if 'A' <= r && r <= 'Z' {
			b.WriteByte('-')
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
