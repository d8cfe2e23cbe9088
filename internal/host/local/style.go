package local

import "strings"

type declaration struct {
	property string
	value    string
}

// declarations is an inline style in source order.
type declarations []declaration

func (d declarations) get(property string) string {
	for _, decl := range d {
		if decl.property == property {
			return decl.value
		}
	}
	return ""
}

// set replaces property in place, appends it, or removes it for an empty value.
func (d declarations) set(property, value string) declarations {
	property = kebab(strings.TrimSpace(property))
	value = strings.TrimSpace(value)
	for i, decl := range d {
		if decl.property != property {
			continue
		}
		if value == "" {
			return append(d[:i], d[i+1:]...)
		}
		d[i].value = value
		return d
	}
	if value == "" {
		return d
	}
	return append(d, declaration{property: property, value: value})
}

func (d declarations) String() string {
	parts := make([]string, len(d))
	for i, decl := range d {
		parts[i] = decl.property + ": " + decl.value
	}
	return strings.Join(parts, "; ")
}

// parseDeclarations reads a style attribute of the form "a: b; c: d".
func parseDeclarations(s string) declarations {
	var d declarations
	for _, part := range strings.Split(s, ";") {
		property, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		d = d.set(strings.ToLower(property), value)
	}
	return d
}

// kebab turns a camel-cased property name such as backgroundColor into its
// CSS form. Names already in CSS form are only lower-cased.
func kebab(property string) string {
	var b strings.Builder
	for _, r := range property {
		if 'A' <= r && r <= 'Z' {
			b.WriteByte('-')
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
