package dom

import "strings"

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

var rawTextElements = map[string]bool{
	"style": true, "script": true, "xmp": true, "iframe": true,
	"noembed": true, "noframes": true, "plaintext": true,
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "\u00a0", "&nbsp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "\u00a0", "&nbsp;", `"`, "&quot;")
)

// OuterHTML serializes n and its descendants.
func (n *Node) OuterHTML() string {
	var b strings.Builder
	n.serialize(&b, false)
	return b.String()
}

// InnerHTML serializes the children of n. A template serializes its
// contents instead.
func (n *Node) InnerHTML() string {
	var b strings.Builder
	n.serializeChildren(&b)
	return b.String()
}

func (n *Node) serializeChildren(b *strings.Builder) {
	children := n.children
	if n.isTemplate() {
		children = nil
		if n.content != nil {
			children = n.content.children
		}
	}
	raw := n.isElement() && n.namespace == HTMLNamespace && rawTextElements[n.localName]
	for _, c := range children {
		c.serialize(b, raw)
	}
}

func (n *Node) serialize(b *strings.Builder, raw bool) {
	switch n.typ {
	case TextNode:
		if raw {
			b.WriteString(n.data)
		} else {
			b.WriteString(textEscaper.Replace(n.data))
		}
	case CommentNode:
		b.WriteString("<!--")
		b.WriteString(n.data)
		b.WriteString("-->")
	case DocumentNode, DocumentFragmentNode:
		n.serializeChildren(b)
	case ElementNode:
		b.WriteByte('<')
		b.WriteString(n.qualified)
		if n.attrs != nil {
			for _, a := range n.attrs.list {
				writeAttr(b, a.Name, a.Value)
			}
		}
		if n.style != nil && n.style.Len() > 0 {
			writeAttr(b, "style", n.style.CSSText())
		}
		b.WriteByte('>')
		if n.namespace == HTMLNamespace && voidElements[n.localName] {
			return
		}
		n.serializeChildren(b)
		b.WriteString("</")
		b.WriteString(n.qualified)
		b.WriteByte('>')
	}
}

func writeAttr(b *strings.Builder, name, value string) {
	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteString(`="`)
	b.WriteString(attrEscaper.Replace(value))
	b.WriteByte('"')
}

// TextContent concatenates the text of every descendant text node. For
// text and comment nodes it is their data; for the document it is empty.
func (n *Node) TextContent() string {
	switch n.typ {
	case TextNode, CommentNode:
		return n.data
	case DocumentNode:
		return ""
	}
	var b strings.Builder
	n.collectText(&b)
	return b.String()
}

func (n *Node) collectText(b *strings.Builder) {
	for _, c := range n.children {
		switch c.typ {
		case TextNode:
			b.WriteString(c.data)
		case ElementNode, DocumentFragmentNode:
			c.collectText(b)
		}
	}
}
