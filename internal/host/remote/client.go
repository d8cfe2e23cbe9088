// Package remote implements host.Host for a host running in another
// process. Each host operation is one request/reply exchange of wire
// envelopes over a Transport, guarded by a circuit breaker.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/command"
	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/infrastructure/monitoring"
	"github.com/linsmod/webf/internal/infrastructure/resilience"
	"github.com/linsmod/webf/internal/infrastructure/tracing"
	"github.com/linsmod/webf/internal/logging"
	"github.com/linsmod/webf/internal/native"
	"github.com/linsmod/webf/internal/shared/id"
	"github.com/linsmod/webf/internal/wire"
	"go.uber.org/zap"
)

// Transport delivers one request envelope and returns its reply.
type Transport interface {
	RoundTrip(ctx context.Context, env wire.Envelope) (wire.Envelope, error)
	Name() string
	Close() error
}

// Client is a host.Host backed by a Transport.
type Client struct {
	transport Transport
	codec     *wire.Codec
	breaker   *resilience.Breaker
	timeout   time.Duration

	logger  *logging.Logger
	metrics *monitoring.Metrics

	background sync.WaitGroup

	notifyMu  sync.Mutex
	notifying map[id.ContextID]chan struct{}
}

var _ host.Host = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

func WithLogger(l *logging.Logger) Option      { return func(c *Client) { c.logger = l } }
func WithMetrics(m *monitoring.Metrics) Option { return func(c *Client) { c.metrics = m } }
func WithTimeout(d time.Duration) Option       { return func(c *Client) { c.timeout = d } }

// WithBreaker replaces the default breaker settings. IsSuccessful is
// always set so that only transport failures count.
func WithBreaker(s resilience.Settings) Option {
	return func(c *Client) { c.breaker = newBreaker(c.transport.Name(), s) }
}

// BreakerSettings trips after maxFailures consecutive transport failures
// and lets one request through again after openTimeout.
func BreakerSettings(maxFailures uint32, openTimeout time.Duration) resilience.Settings {
	return resilience.Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	}
}

func newBreaker(name string, s resilience.Settings) *resilience.Breaker {
	s.IsSuccessful = func(err error) bool { return !host.IsTransport(err) }
	return resilience.New("host-"+name, s)
}

// NewClient wraps transport. The client owns neither transport nor codec
// until Shutdown, which closes the transport.
func NewClient(transport Transport, codec *wire.Codec, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		codec:     codec,
		timeout:   10 * time.Second,
		logger:    logging.NewNop(),
		notifying: make(map[id.ContextID]chan struct{}),
	}
	c.breaker = newBreaker(transport.Name(), BreakerSettings(5, 30*time.Second))
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Breaker exposes the breaker for health reporting.
func (c *Client) Breaker() *resilience.Breaker { return c.breaker }

func (c *Client) exchange(ctx context.Context, kind wire.Kind, ctxID id.ContextID, payload, out any) (err error) {
	if kind != wire.KindSchedule {
		if err := c.awaitNotification(ctx, kind, ctxID); err != nil {
			return err
		}
	}
	req, err := c.codec.Request(kind, ctxID.String(), string(tracing.GetTraceID(ctx)), payload)
	if err != nil {
		return err
	}

	timer := monitoring.NewTimer(c.metrics, c.transport.Name(), string(kind))
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			if host.IsTransport(err) {
				status = "unavailable"
			}
		}
		timer.Stop(status)
	}()

	reply, err := resilience.Do(c.breaker, func() (wire.Envelope, error) {
		reply, err := c.transport.RoundTrip(ctx, req)
		if err != nil {
			return wire.Envelope{}, &host.TransportError{Op: string(kind), Err: err}
		}
		if reply.ID != req.ID {
			return wire.Envelope{}, &host.TransportError{Op: string(kind), Err: fmt.Errorf("reply %s answers %s", reply.ID, req.ID)}
		}
		return reply, c.codec.AsError(reply)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return &host.TransportError{Op: string(kind), Err: err}
	}
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return c.codec.Unpack(reply, out)
}

// ScheduleUpdate posts the notification without blocking the caller. Every
// later exchange for ctxID waits until the notification has been answered,
// so the host sees it before the flush it announces.
func (c *Client) ScheduleUpdate(ctxID id.ContextID) {
	done := make(chan struct{})
	c.notifyMu.Lock()
	prev := c.notifying[ctxID]
	c.notifying[ctxID] = done
	c.notifyMu.Unlock()

	c.background.Add(1)
	go func() {
		defer c.background.Done()
		defer c.settleNotification(ctxID, done)
		if prev != nil {
			<-prev
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := c.exchange(ctx, wire.KindSchedule, ctxID, nil, nil); err != nil {
			c.logger.Warn("schedule update not delivered", zap.String("context", ctxID.String()), zap.Error(err))
		}
	}()
}

func (c *Client) settleNotification(ctxID id.ContextID, done chan struct{}) {
	c.notifyMu.Lock()
	if c.notifying[ctxID] == done {
		delete(c.notifying, ctxID)
	}
	c.notifyMu.Unlock()
	close(done)
}

// awaitNotification blocks until the latest notification for ctxID has been
// answered or dropped.
func (c *Client) awaitNotification(ctx context.Context, kind wire.Kind, ctxID id.ContextID) error {
	c.notifyMu.Lock()
	done := c.notifying[ctxID]
	c.notifyMu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return &host.TransportError{Op: string(kind), Err: ctx.Err()}
	}
}

func (c *Client) Flush(ctx context.Context, ctxID id.ContextID, records []command.Record) error {
	return c.exchange(ctx, wire.KindFlush, ctxID, wire.FlushRequest{Records: wire.RecordsToDTO(records)}, nil)
}

func (c *Client) Call(ctx context.Context, ctxID id.ContextID, target binding.Handle, method native.Method, args []native.Value) (native.Value, error) {
	req := wire.CallRequest{Target: wire.HandleToDTO(target), Method: method.String()}
	for _, a := range args {
		req.Args = append(req.Args, wire.ValueToDTO(a))
	}
	var resp wire.CallResponse
	if err := c.exchange(ctx, wire.KindCall, ctxID, req, &resp); err != nil {
		return native.Null(), err
	}
	v, err := wire.ValueFromDTO(resp.Value)
	if err != nil {
		return native.Null(), &host.InvocationError{Method: method, Message: err.Error()}
	}
	return v, nil
}

// ToBlob runs the snapshot exchange on its own goroutine.
func (c *Client) ToBlob(ctx context.Context, ctxID id.ContextID, target binding.Handle, params host.SnapshotParams, done host.Completion) {
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		var resp wire.SnapshotResponse
		err := c.exchange(ctx, wire.KindSnapshot, ctxID, wire.SnapshotRequest{Target: wire.HandleToDTO(target), Params: params}, &resp)
		switch {
		case err != nil:
			done(nil, err.Error())
		case resp.Error != "":
			done(nil, resp.Error)
		default:
			done(resp.Data, "")
		}
	}()
}

func (c *Client) Close(ctx context.Context, ctxID id.ContextID) error {
	return c.exchange(ctx, wire.KindClose, ctxID, nil, nil)
}

// Shutdown waits for background exchanges and closes the transport.
func (c *Client) Shutdown() error {
	c.background.Wait()
	return c.transport.Close()
}
