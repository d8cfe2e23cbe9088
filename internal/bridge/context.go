// Package bridge assembles one execution context: the handle table, the
// heap, the command log with its scheduler, the invocation channel and the
// async round trips, all driven from a single Loop.
package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/linsmod/webf/internal/async"
	"github.com/linsmod/webf/internal/batch"
	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/blob"
	"github.com/linsmod/webf/internal/command"
	"github.com/linsmod/webf/internal/gc"
	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/infrastructure/config"
	"github.com/linsmod/webf/internal/infrastructure/monitoring"
	"github.com/linsmod/webf/internal/infrastructure/tracing"
	"github.com/linsmod/webf/internal/invoke"
	"github.com/linsmod/webf/internal/logging"
	"github.com/linsmod/webf/internal/native"
	"github.com/linsmod/webf/internal/shared/id"
	"go.uber.org/zap"
)

// Context is one execution context. Except for Loop().Post, its methods
// must be called from the goroutine driving the loop.
type Context struct {
	id   id.ContextID
	cfg  config.BridgeConfig
	host host.Host
	loop *Loop

	table     *binding.Table
	heap      *gc.Heap
	log       *command.Log
	scheduler *batch.Scheduler
	channel   *invoke.Channel
	tracker   *async.Tracker

	logger  *logging.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer

	closed bool
}

// Option configures a Context.
type Option func(*Context)

func WithLogger(l *logging.Logger) Option      { return func(c *Context) { c.logger = l } }
func WithMetrics(m *monitoring.Metrics) Option { return func(c *Context) { c.metrics = m } }
func WithTracer(t *tracing.Tracer) Option      { return func(c *Context) { c.tracer = t } }

// WithLoop shares an existing loop, typically one a script runtime drives.
func WithLoop(l *Loop) Option { return func(c *Context) { c.loop = l } }

// New opens an execution context on h.
func New(h host.Host, cfg config.BridgeConfig, opts ...Option) *Context {
	c := &Context{
		id:     id.NewContextID(),
		cfg:    cfg,
		host:   h,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.loop == nil {
		c.loop = NewLoop()
	}
	c.logger = c.logger.For(c.id.String())

	c.table = binding.NewTable()
	c.heap = gc.NewHeap(c.logger.Named("gc").Logger)
	c.heap.AddRoots(c.table)
	c.log = command.NewLog()
	c.scheduler = batch.New(c.log,
		batch.NotifierFunc(c.scheduleUpdate),
		batch.SinkFunc(func(ctx context.Context, records []command.Record) error {
			return c.host.Flush(ctx, c.id, records)
		}),
		batch.WithLogger(c.logger.Named("batch")),
		batch.WithMetrics(c.metrics),
		batch.WithTracer(c.tracer),
	)
	c.channel = invoke.New(c,
		invoke.CallerFunc(func(ctx context.Context, target binding.Handle, method native.Method, args []native.Value) (native.Value, error) {
			return c.host.Call(ctx, c.id, target, method, args)
		}),
		c.table,
		invoke.WithLogger(c.logger.Named("invoke")),
		invoke.WithMetrics(c.metrics),
		invoke.WithTracer(c.tracer),
	)
	c.tracker = async.NewTracker(c.loop, c.heap, c, c.table,
		func(ctx context.Context, target binding.Handle, params host.SnapshotParams, done host.Completion) {
			c.host.ToBlob(ctx, c.id, target, params, done)
		},
		c.logger.Named("async"),
		c.metrics,
	)

	c.metrics.ContextOpened()
	c.logger.Debug("context opened",
		zap.Bool("auto_flush", cfg.AutoFlush),
		zap.Bool("notify", cfg.Notify),
	)
	return c
}

func (c *Context) ID() id.ContextID             { return c.id }
func (c *Context) Config() config.BridgeConfig  { return c.cfg }
func (c *Context) Loop() *Loop                  { return c.loop }
func (c *Context) Table() *binding.Table        { return c.table }
func (c *Context) Heap() *gc.Heap               { return c.heap }
func (c *Context) Scheduler() *batch.Scheduler  { return c.scheduler }
func (c *Context) Channel() *invoke.Channel     { return c.channel }
func (c *Context) Tracker() *async.Tracker      { return c.tracker }
func (c *Context) Logger() *logging.Logger      { return c.logger }
func (c *Context) Metrics() *monitoring.Metrics { return c.metrics }
func (c *Context) Closed() bool                 { return c.closed }

// PendingRecords returns a copy of the undrained records.
func (c *Context) PendingRecords() []command.Record { return c.log.Records() }

// scheduleUpdate runs once per opened batch.
func (c *Context) scheduleUpdate() {
	if c.cfg.Notify {
		c.host.ScheduleUpdate(c.id)
	}
	if !c.cfg.AutoFlush {
		return
	}
	c.loop.Post(func() {
		if c.closed {
			return
		}
		if err := c.Flush(context.Background()); err != nil {
			c.logger.Warn("deferred flush failed", zap.Error(err))
		}
	})
}

// Register issues a handle for obj and tracks it on the heap.
func (c *Context) Register(obj gc.Traceable, kind binding.Kind) binding.Handle {
	c.heap.Track(obj)
	return c.table.Allocate(obj, kind)
}

// Append queues r. The record's references are released when the context
// is closed.
func (c *Context) Append(r command.Record) (uint64, error) {
	if c.closed {
		r.Release()
		return 0, host.ErrContextClosed
	}
	return c.scheduler.Append(r), nil
}

// Emit appends a record for op on target, pinning target until the host
// has consumed the record.
func (c *Context) Emit(op command.Opcode, target binding.Handle, args ...string) error {
	return c.EmitAux(op, target, binding.Handle{}, args...)
}

// EmitAux is Emit with an auxiliary node. A zero aux is omitted.
func (c *Context) EmitAux(op command.Opcode, target, aux binding.Handle, args ...string) error {
	if c.closed {
		return host.ErrContextClosed
	}
	ref, err := c.table.Pin(target)
	if err != nil {
		return fmt.Errorf("emit %s: %w", op, err)
	}
	r := command.New(op, ref, args...)
	if !aux.IsZero() {
		auxRef, err := c.table.Pin(aux)
		if err != nil {
			ref.Release()
			return fmt.Errorf("emit %s: %w", op, err)
		}
		r = r.WithAux(auxRef)
	}
	_, err = c.Append(r)
	return err
}

// Dispose releases h and tells the host to drop its mirror. It is called
// when the object behind h has been collected.
func (c *Context) Dispose(h binding.Handle) {
	if err := c.table.Release(h); err != nil {
		c.logger.Warn("dispose", zap.Stringer("handle", h), zap.Error(err))
		return
	}
	if c.closed {
		return
	}
	c.scheduler.Append(command.New(command.OpDisposeBindingObject, binding.Weak(h)))
}

// Flush delivers pending records to the host.
func (c *Context) Flush(ctx context.Context) error {
	if c.closed {
		return host.ErrContextClosed
	}
	return c.scheduler.Flush(ctx)
}

// Invoke runs a synchronous binding call.
func (c *Context) Invoke(ctx context.Context, target binding.Handle, method native.Method, args ...native.Value) (native.Value, error) {
	if c.closed {
		return native.Null(), host.ErrContextClosed
	}
	return c.channel.Invoke(ctx, target, method, args...)
}

// Snapshot starts an async snapshot of target.
func (c *Context) Snapshot(ctx context.Context, target binding.Handle, dpr float64) *async.Future[*blob.Blob] {
	if c.closed {
		f := async.NewFuture[*blob.Blob]()
		f.Reject(host.ErrContextClosed)
		return f
	}
	return c.tracker.Snapshot(ctx, target, host.SnapshotParams{DevicePixelRatio: dpr})
}

// MutationScope defers collections until the returned function runs. A
// collection requested meanwhile runs when the outermost scope closes.
func (c *Context) MutationScope() func() {
	end := c.heap.EnterScope()
	return func() {
		end()
		if !c.heap.InScope() && c.heap.DeferredPending() {
			c.Collect()
		}
	}
}

// Collect runs the collector.
func (c *Context) Collect() gc.Stats {
	stats := c.heap.Collect()
	if !stats.Deferred {
		c.metrics.RecordCollection(stats.Swept)
		c.metrics.SetLiveHandles(c.table.Len())
	}
	return stats
}

// Close flushes what is pending and closes the host side. The context is
// unusable afterwards even when the flush fails.
func (c *Context) Close(ctx context.Context) error {
	if c.closed {
		return host.ErrContextClosed
	}
	flushErr := c.scheduler.Flush(ctx)
	c.closed = true
	c.log.Drain().Release()
	closeErr := c.host.Close(ctx, c.id)
	c.metrics.ContextClosed()
	c.logger.Debug("context closed", zap.Error(flushErr))
	return errors.Join(flushErr, closeErr)
}
