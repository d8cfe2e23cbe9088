package dom

import (
	"context"
	"testing"
	"time"

	"github.com/linsmod/webf/internal/async"
	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueriesFlushFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	root := e.doc.Node()
	require.NoError(t, root.AppendChild(e.element(t, "main")))
	main := root.FirstChild()
	require.NoError(t, main.SetInnerHTML(`<p class="a b">1</p><p class="a">2</p><span class="b"></span>`))
	require.NotZero(t, e.ctx.Scheduler().Pending())

	first, err := root.QuerySelector(ctx, "p.a")
	require.NoError(t, err)
	assert.Zero(t, e.ctx.Scheduler().Pending())
	assert.Same(t, main.FirstChild(), first)

	none, err := root.QuerySelector(ctx, "table")
	require.NoError(t, err)
	assert.Nil(t, none)

	all, err := root.QuerySelectorAll(ctx, ".b")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	ok, err := first.Matches(ctx, "main > p")
	require.NoError(t, err)
	assert.True(t, ok)

	byClass, err := main.GetElementsByClassName(ctx, "a b")
	require.NoError(t, err)
	assert.Equal(t, []*Node{first}, byClass)

	byTag, err := root.GetElementsByTagName(ctx, "p")
	require.NoError(t, err)
	assert.Len(t, byTag, 2)

	_, err = root.QuerySelector(ctx, "p[")
	var ierr *host.InvocationError
	require.ErrorAs(t, err, &ierr)
	assert.Contains(t, ierr.Message, "SyntaxError")
}

func TestLayoutQueries(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	root := e.doc.Node()

	a, b := e.element(t, "div"), e.element(t, "div")
	require.NoError(t, a.Style().SetProperty("height", "30px"))
	require.NoError(t, b.Style().SetProperty("height", "10px"))
	require.NoError(t, b.Style().SetProperty("width", "50px"))
	require.NoError(t, root.AppendChild(a))
	require.NoError(t, root.AppendChild(b))

	rect, err := b.BoundingClientRect(ctx)
	require.NoError(t, err)
	assert.Equal(t, native.Rect{X: 0, Y: 30, Width: 50, Height: 10}, rect)

	require.NoError(t, b.Click(ctx))
	require.NoError(t, b.Scroll(ctx, 0, 5))
	require.NoError(t, b.ScrollBy(ctx, 0, 5))
	m := e.flush(t)
	assert.Equal(t, 1, m.Clicks(b.Handle()))
	_, y := m.ScrollOffset(b.Handle())
	assert.Equal(t, 10.0, y)
}

func TestToBlob(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	div := e.element(t, "div")
	require.NoError(t, div.Style().SetProperty("height", "4px"))
	require.NoError(t, e.doc.Node().AppendChild(div))

	future := div.ToBlob(ctx, 0)
	require.NoError(t, e.ctx.Loop().RunUntil(ctx, func() bool { return future.State() != async.Pending }))
	b, err, _ := future.Result()
	require.NoError(t, err)
	assert.Equal(t, "image/png", b.Type())

	detached := e.element(t, "div")
	future = detached.ToBlob(ctx, 1)
	require.NoError(t, e.ctx.Loop().RunUntil(ctx, func() bool { return future.State() != async.Pending }))
	_, err, _ = future.Result()
	var aerr *host.AsyncHostError
	assert.ErrorAs(t, err, &aerr)
}
