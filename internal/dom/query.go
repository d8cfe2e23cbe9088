package dom

import (
	"context"

	"github.com/linsmod/webf/internal/async"
	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/blob"
	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/native"
)

// BoundingClientRect asks the host for the layout box of n.
func (n *Node) BoundingClientRect(ctx context.Context) (native.Rect, error) {
	return n.doc.ctx.Channel().BoundingClientRect(ctx, n.handle)
}

func (n *Node) Click(ctx context.Context) error {
	return n.doc.ctx.Channel().Click(ctx, n.handle)
}

func (n *Node) Scroll(ctx context.Context, x, y float64) error {
	return n.doc.ctx.Channel().Scroll(ctx, n.handle, x, y)
}

func (n *Node) ScrollBy(ctx context.Context, dx, dy float64) error {
	return n.doc.ctx.Channel().ScrollBy(ctx, n.handle, dx, dy)
}

// QuerySelector returns the first descendant matching selector, or nil.
func (n *Node) QuerySelector(ctx context.Context, selector string) (*Node, error) {
	h, ok, err := n.doc.ctx.Channel().QuerySelector(ctx, n.handle, selector)
	if err != nil || !ok {
		return nil, err
	}
	return n.doc.resolve(h)
}

func (n *Node) QuerySelectorAll(ctx context.Context, selector string) ([]*Node, error) {
	hs, err := n.doc.ctx.Channel().QuerySelectorAll(ctx, n.handle, selector)
	if err != nil {
		return nil, err
	}
	return n.doc.resolveAll(hs)
}

func (n *Node) Matches(ctx context.Context, selector string) (bool, error) {
	return n.doc.ctx.Channel().Matches(ctx, n.handle, selector)
}

func (n *Node) GetElementsByClassName(ctx context.Context, names string) ([]*Node, error) {
	hs, err := n.doc.ctx.Channel().GetElementsByClassName(ctx, n.handle, names)
	if err != nil {
		return nil, err
	}
	return n.doc.resolveAll(hs)
}

func (n *Node) GetElementsByTagName(ctx context.Context, tag string) ([]*Node, error) {
	hs, err := n.doc.ctx.Channel().GetElementsByTagName(ctx, n.handle, tag)
	if err != nil {
		return nil, err
	}
	return n.doc.resolveAll(hs)
}

// ToBlob starts an asynchronous snapshot of n. The future settles on the
// context loop.
func (n *Node) ToBlob(ctx context.Context, devicePixelRatio float64) *async.Future[*blob.Blob] {
	if devicePixelRatio <= 0 {
		devicePixelRatio = 1
	}
	return n.doc.ctx.Snapshot(ctx, n.handle, devicePixelRatio)
}

func (d *Document) resolve(h binding.Handle) (*Node, error) {
	n, ok := d.Lookup(h)
	if !ok {
		return nil, &host.ProtocolError{Handle: h, Reason: "result references unknown handle"}
	}
	return n, nil
}

func (d *Document) resolveAll(hs []binding.Handle) ([]*Node, error) {
	out := make([]*Node, 0, len(hs))
	for _, h := range hs {
		n, err := d.resolve(h)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
