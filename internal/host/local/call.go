package local

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/bytedance/sonic"
	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/native"
	"golang.org/x/net/html"
)

func (m *Mirror) call(cfg Config, e *entry, method native.Method, args []native.Value) (native.Value, error) {
	fail := func(format string, a ...any) (native.Value, error) {
		return native.Null(), &host.InvocationError{Method: method, Message: fmt.Sprintf(format, a...)}
	}

	switch method {
	case native.GetBoundingClientRect:
		rect := m.layout(cfg)[e.node]
		raw, err := sonic.MarshalString(rect)
		if err != nil {
			return fail("encode rect: %v", err)
		}
		return native.String(raw), nil

	case native.Click:
		e.clicks++
		return native.Null(), nil

	case native.Scroll, native.ScrollBy:
		x, y, err := point(args)
		if err != nil {
			return fail("%v", err)
		}
		if method == native.ScrollBy {
			x, y = e.scrollX+x, e.scrollY+y
		}
		e.scrollX, e.scrollY = max(x, 0), max(y, 0)
		return native.Null(), nil

	case native.QuerySelector, native.QuerySelectorAll, native.Matches:
		selector, err := stringArg(args)
		if err != nil {
			return fail("%v", err)
		}
		matcher, err := cascadia.Compile(selector)
		if err != nil {
			return fail("SyntaxError: '%s' is not a valid selector", selector)
		}
		sel := goquery.NewDocumentFromNode(e.node).Selection
		switch method {
		case native.Matches:
			return native.Bool(e.node.Type == html.ElementNode && sel.IsMatcher(matcher)), nil
		case native.QuerySelector:
			found := m.handlesOf(sel.FindMatcher(matcher).Nodes)
			if len(found) == 0 {
				return native.Null(), nil
			}
			return native.Pointer(found[0]), nil
		default:
			return native.Pointers(m.handlesOf(sel.FindMatcher(matcher).Nodes)), nil
		}

	case native.GetElementsByClassName:
		names, err := stringArg(args)
		if err != nil {
			return fail("%v", err)
		}
		classes := strings.Fields(names)
		if len(classes) == 0 {
			return native.Pointers(nil), nil
		}
		conds := make([]string, len(classes))
		for i, c := range classes {
			conds[i] = fmt.Sprintf("contains(concat(' ', normalize-space(@class), ' '), %s)", xpathLiteral(" "+c+" "))
		}
		return m.xpath(e.node, ".//*["+strings.Join(conds, " and ")+"]", fail)

	case native.GetElementsByTagName:
		tag, err := stringArg(args)
		if err != nil {
			return fail("%v", err)
		}
		if tag == "*" {
			return m.xpath(e.node, ".//*", fail)
		}
		return m.xpath(e.node, fmt.Sprintf(".//*[local-name()=%s]", xpathLiteral(strings.ToLower(tag))), fail)
	}
	return fail("unsupported method")
}

func (m *Mirror) xpath(root *html.Node, expr string, fail func(string, ...any) (native.Value, error)) (native.Value, error) {
	nodes, err := htmlquery.QueryAll(root, expr)
	if err != nil {
		return fail("SyntaxError: %v", err)
	}
	return native.Pointers(m.handlesOf(nodes)), nil
}

func (m *Mirror) handlesOf(nodes []*html.Node) []binding.Handle {
	out := make([]binding.Handle, 0, len(nodes))
	for _, n := range nodes {
		if e, ok := m.byNode[n]; ok {
			out = append(out, e.handle)
		}
	}
	return out
}

func point(args []native.Value) (x, y float64, err error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("want 2 arguments, have %d", len(args))
	}
	if x, err = args[0].AsNumber(); err != nil {
		return 0, 0, err
	}
	if y, err = args[1].AsNumber(); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func stringArg(args []native.Value) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("want 1 argument, have %d", len(args))
	}
	return args[0].AsString()
}

// xpathLiteral quotes s for an XPath 1.0 expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}
