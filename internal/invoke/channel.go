// Package invoke implements the synchronous binding invocation path:
// flush pending mutations, call the host, decode a typed result.
package invoke

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/infrastructure/monitoring"
	"github.com/linsmod/webf/internal/infrastructure/tracing"
	"github.com/linsmod/webf/internal/logging"
	"github.com/linsmod/webf/internal/native"
	"go.uber.org/zap"
)

// Flusher forces pending records to the host.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Caller issues one binding method call on the host.
type Caller interface {
	Call(ctx context.Context, target binding.Handle, method native.Method, args []native.Value) (native.Value, error)
}

// CallerFunc adapts a function to Caller.
type CallerFunc func(ctx context.Context, target binding.Handle, method native.Method, args []native.Value) (native.Value, error)

// Call implements Caller.
func (f CallerFunc) Call(ctx context.Context, target binding.Handle, method native.Method, args []native.Value) (native.Value, error) {
	return f(ctx, target, method, args)
}

// Resolver validates handles coming back from the host.
type Resolver interface {
	Valid(h binding.Handle) bool
}

// Channel is the invocation path of one execution context.
type Channel struct {
	flusher  Flusher
	caller   Caller
	resolver Resolver

	logger  *logging.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
}

// Option configures a Channel.
type Option func(*Channel)

func WithLogger(l *logging.Logger) Option      { return func(c *Channel) { c.logger = l } }
func WithMetrics(m *monitoring.Metrics) Option { return func(c *Channel) { c.metrics = m } }
func WithTracer(t *tracing.Tracer) Option      { return func(c *Channel) { c.tracer = t } }

// New creates a channel.
func New(flusher Flusher, caller Caller, resolver Resolver, opts ...Option) *Channel {
	c := &Channel{
		flusher:  flusher,
		caller:   caller,
		resolver: resolver,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke flushes, calls method on target and validates the result.
// On error the returned value is always null.
func (c *Channel) Invoke(ctx context.Context, target binding.Handle, method native.Method, args ...native.Value) (native.Value, error) {
	start := time.Now()

	var span *tracing.Span
	if c.tracer != nil {
		span, ctx = c.tracer.StartSpan(ctx, "bridge.invoke")
		span.SetTag("method", method.String())
	}

	v, err := c.invoke(ctx, target, method, args)

	result := "ok"
	if err != nil {
		result = errorClass(err)
		c.logger.Debug("invocation failed",
			zap.Stringer("method", method),
			zap.Stringer("target", target),
			zap.Error(err),
		)
	}
	c.metrics.RecordInvocation(method.String(), result, time.Since(start))
	if span != nil {
		c.tracer.End(span, err)
	}
	return v, err
}

func (c *Channel) invoke(ctx context.Context, target binding.Handle, method native.Method, args []native.Value) (native.Value, error) {
	if err := c.flusher.Flush(ctx); err != nil {
		return native.Null(), err
	}

	v, err := c.caller.Call(ctx, target, method, args)
	if err != nil {
		return native.Null(), normalize(method, err)
	}

	for _, h := range v.Handles() {
		if !c.resolver.Valid(h) {
			return native.Null(), &host.ProtocolError{Handle: h, Op: method.String(), Reason: "result references unknown handle"}
		}
	}
	return v, nil
}

// normalize keeps typed host errors and wraps everything the host reported
// without a type as an invocation error. Transport failures pass through.
func normalize(method native.Method, err error) error {
	var (
		perr *host.ProtocolError
		ierr *host.InvocationError
		terr *host.TransportError
	)
	switch {
	case errors.As(err, &perr), errors.As(err, &ierr), errors.As(err, &terr):
		return err
	case errors.Is(err, host.ErrContextClosed), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &host.InvocationError{Method: method, Message: err.Error()}
}

func errorClass(err error) string {
	var (
		perr *host.ProtocolError
		ierr *host.InvocationError
	)
	switch {
	case errors.As(err, &perr):
		return "protocol"
	case errors.As(err, &ierr):
		return "invocation"
	default:
		return "transport"
	}
}

// BoundingClientRect returns target's border box in viewport coordinates.
func (c *Channel) BoundingClientRect(ctx context.Context, target binding.Handle) (native.Rect, error) {
	v, err := c.Invoke(ctx, target, native.GetBoundingClientRect)
	if err != nil {
		return native.Rect{}, err
	}
	raw, err := v.AsString()
	if err != nil {
		return native.Rect{}, &host.InvocationError{Method: native.GetBoundingClientRect, Message: err.Error()}
	}
	var rect native.Rect
	if err := sonic.UnmarshalString(raw, &rect); err != nil {
		return native.Rect{}, &host.InvocationError{Method: native.GetBoundingClientRect, Message: fmt.Sprintf("decode rect: %v", err)}
	}
	return rect, nil
}

// Click dispatches a click on target.
func (c *Channel) Click(ctx context.Context, target binding.Handle) error {
	_, err := c.Invoke(ctx, target, native.Click)
	return err
}

// Scroll sets target's scroll offset.
func (c *Channel) Scroll(ctx context.Context, target binding.Handle, x, y float64) error {
	_, err := c.Invoke(ctx, target, native.Scroll, native.Number(x), native.Number(y))
	return err
}

// ScrollBy moves target's scroll offset.
func (c *Channel) ScrollBy(ctx context.Context, target binding.Handle, dx, dy float64) error {
	_, err := c.Invoke(ctx, target, native.ScrollBy, native.Number(dx), native.Number(dy))
	return err
}

// QuerySelector returns the first descendant of target matching selector.
func (c *Channel) QuerySelector(ctx context.Context, target binding.Handle, selector string) (binding.Handle, bool, error) {
	v, err := c.Invoke(ctx, target, native.QuerySelector, native.String(selector))
	if err != nil || v.IsNull() {
		return binding.Handle{}, false, err
	}
	h, err := v.AsPointer()
	if err != nil {
		return binding.Handle{}, false, &host.InvocationError{Method: native.QuerySelector, Message: err.Error()}
	}
	return h, true, nil
}

// QuerySelectorAll returns every descendant of target matching selector.
func (c *Channel) QuerySelectorAll(ctx context.Context, target binding.Handle, selector string) ([]binding.Handle, error) {
	return c.handles(ctx, target, native.QuerySelectorAll, selector)
}

// Matches reports whether target matches selector.
func (c *Channel) Matches(ctx context.Context, target binding.Handle, selector string) (bool, error) {
	v, err := c.Invoke(ctx, target, native.Matches, native.String(selector))
	if err != nil {
		return false, err
	}
	ok, err := v.AsBool()
	if err != nil {
		return false, &host.InvocationError{Method: native.Matches, Message: err.Error()}
	}
	return ok, nil
}

// GetElementsByClassName returns descendants carrying every class in names.
func (c *Channel) GetElementsByClassName(ctx context.Context, target binding.Handle, names string) ([]binding.Handle, error) {
	return c.handles(ctx, target, native.GetElementsByClassName, names)
}

// GetElementsByTagName returns descendants with the given tag name, or all for "*".
func (c *Channel) GetElementsByTagName(ctx context.Context, target binding.Handle, tag string) ([]binding.Handle, error) {
	return c.handles(ctx, target, native.GetElementsByTagName, tag)
}

func (c *Channel) handles(ctx context.Context, target binding.Handle, method native.Method, arg string) ([]binding.Handle, error) {
	v, err := c.Invoke(ctx, target, method, native.String(arg))
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	hs, err := v.AsPointers()
	if err != nil {
		return nil, &host.InvocationError{Method: method, Message: err.Error()}
	}
	return hs, nil
}
