package invoke

import (
	"context"
	"errors"
	"testing"

	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/gc"
	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/infrastructure/monitoring"
	"github.com/linsmod/webf/internal/native"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type obj struct{ _ int }

func (*obj) Trace(gc.Visitor) {}

type flushFunc func(ctx context.Context) error

func (f flushFunc) Flush(ctx context.Context) error { return f(ctx) }

type harness struct {
	events []string
	table  *binding.Table
	el     binding.Handle
	flush  error
	reply  func(method native.Method, args []native.Value) (native.Value, error)
	ch     *Channel
}

func newHarness(opts ...Option) *harness {
	h := &harness{table: binding.NewTable()}
	h.el = h.table.Allocate(&obj{}, binding.KindElement)
	h.ch = New(
		flushFunc(func(context.Context) error {
			h.events = append(h.events, "flush")
			return h.flush
		}),
		CallerFunc(func(_ context.Context, target binding.Handle, method native.Method, args []native.Value) (native.Value, error) {
			h.events = append(h.events, "call:"+method.String())
			if h.reply == nil {
				return native.Null(), nil
			}
			return h.reply(method, args)
		}),
		h.table,
		opts...,
	)
	return h
}

func TestBoundingRectFlushesFirst(t *testing.T) {
	h := newHarness()
	h.reply = func(native.Method, []native.Value) (native.Value, error) {
		return native.String(`{"x":8,"y":16,"width":100,"height":50}`), nil
	}

	rect, err := h.ch.BoundingClientRect(context.Background(), h.el)
	require.NoError(t, err)

	assert.Equal(t, []string{"flush", "call:getBoundingClientRect"}, h.events)
	assert.Equal(t, native.Rect{X: 8, Y: 16, Width: 100, Height: 50}, rect)
	assert.Equal(t, 108.0, rect.Right())
}

func TestFlushFailureSkipsCall(t *testing.T) {
	h := newHarness()
	h.flush = &host.TransportError{Op: "flush", Err: errors.New("broken pipe")}

	err := h.ch.Click(context.Background(), h.el)

	var terr *host.TransportError
	assert.ErrorAs(t, err, &terr)
	assert.Equal(t, []string{"flush"}, h.events)
}

func TestUntypedHostErrorBecomesInvocationError(t *testing.T) {
	h := newHarness()
	h.reply = func(native.Method, []native.Value) (native.Value, error) {
		return native.Bool(true), errors.New("element is not scrollable")
	}

	err := h.ch.Scroll(context.Background(), h.el, 0, 10)

	var ierr *host.InvocationError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, native.Scroll, ierr.Method)
	assert.Equal(t, "element is not scrollable", ierr.Message)
}

func TestErrorYieldsNoPartialResult(t *testing.T) {
	h := newHarness()
	h.reply = func(native.Method, []native.Value) (native.Value, error) {
		return native.Pointer(h.el), &host.InvocationError{Method: native.QuerySelector, Message: "SyntaxError"}
	}

	v, err := h.ch.Invoke(context.Background(), h.el, native.QuerySelector, native.String("[["))
	assert.Error(t, err)
	assert.True(t, v.IsNull())
}

func TestUnknownResultHandleIsProtocolError(t *testing.T) {
	h := newHarness()
	h.reply = func(native.Method, []native.Value) (native.Value, error) {
		return native.Pointers([]binding.Handle{h.el, {ID: 404, Kind: binding.KindElement}}), nil
	}

	_, err := h.ch.QuerySelectorAll(context.Background(), h.el, "p")

	var perr *host.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, uint64(404), perr.Handle.ID)
}

func TestQuerySelector(t *testing.T) {
	h := newHarness()
	other := h.table.Allocate(&obj{}, binding.KindElement)

	h.reply = func(_ native.Method, args []native.Value) (native.Value, error) {
		sel, _ := args[0].AsString()
		if sel == ".missing" {
			return native.Null(), nil
		}
		return native.Pointer(other), nil
	}

	got, ok, err := h.ch.QuerySelector(context.Background(), h.el, ".item")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, other, got)

	_, ok, err = h.ch.QuerySelector(context.Background(), h.el, ".missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchesAndLookups(t *testing.T) {
	h := newHarness()
	h.reply = func(m native.Method, args []native.Value) (native.Value, error) {
		switch m {
		case native.Matches:
			return native.Bool(true), nil
		case native.GetElementsByTagName:
			return native.Pointers([]binding.Handle{h.el}), nil
		default:
			return native.Null(), nil
		}
	}

	ok, err := h.ch.Matches(context.Background(), h.el, "div")
	require.NoError(t, err)
	assert.True(t, ok)

	hs, err := h.ch.GetElementsByTagName(context.Background(), h.el, "*")
	require.NoError(t, err)
	assert.Equal(t, []binding.Handle{h.el}, hs)

	hs, err = h.ch.GetElementsByClassName(context.Background(), h.el, "a b")
	require.NoError(t, err)
	assert.Empty(t, hs)
}

func TestWrongResultKind(t *testing.T) {
	h := newHarness()
	h.reply = func(native.Method, []native.Value) (native.Value, error) {
		return native.Number(1), nil
	}

	_, err := h.ch.BoundingClientRect(context.Background(), h.el)
	var ierr *host.InvocationError
	assert.ErrorAs(t, err, &ierr)

	_, err = h.ch.Matches(context.Background(), h.el, "p")
	assert.ErrorAs(t, err, &ierr)
}

func TestInvocationMetrics(t *testing.T) {
	m := monitoring.NewMetrics(prometheus.NewRegistry())
	h := newHarness(WithMetrics(m))

	require.NoError(t, h.ch.Click(context.Background(), h.el))

	h.reply = func(native.Method, []native.Value) (native.Value, error) {
		return native.Null(), errors.New("nope")
	}
	assert.Error(t, h.ch.Click(context.Background(), h.el))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invocations.WithLabelValues("click", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invocations.WithLabelValues("click", "invocation")))
}
