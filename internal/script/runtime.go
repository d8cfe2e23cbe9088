package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"weak"

	"github.com/dop251/goja"
	"github.com/linsmod/webf/internal/bridge"
	"github.com/linsmod/webf/internal/dom"
	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/infrastructure/monitoring"
	"github.com/linsmod/webf/internal/infrastructure/tracing"
	"github.com/linsmod/webf/internal/logging"
	"go.uber.org/zap"
)

// Option configures a Runtime.
type Option func(*Runtime)

func WithLogger(l *logging.Logger) Option      { return func(r *Runtime) { r.logger = l } }
func WithMetrics(m *monitoring.Metrics) Option { return func(r *Runtime) { r.metrics = m } }
func WithTracer(t *tracing.Tracer) Option      { return func(r *Runtime) { r.tracer = t } }

// Runtime is a goja VM bound to one bridge context and its document. It is
// not safe for concurrent use; Execute serializes callers.
type Runtime struct {
	host    host.Host
	config  Config
	logger  *logging.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
	mu      sync.Mutex

	vm       *goja.Runtime
	bctx     *bridge.Context
	doc      *dom.Document
	wrappers map[*dom.Node]weak.Pointer[goja.Object]
	timers   map[int64]*time.Timer
	nextTID  int64

	// exec is the context of the running Execute call.
	exec context.Context

	// Console output
	console   []LogEntry
	consoleMu sync.Mutex
}

// New creates a runtime with a fresh bridge context on h.
func New(h host.Host, config Config, opts ...Option) (*Runtime, error) {
	r := &Runtime{
		host:    h,
		config:  config,
		logger:  logging.NewNop(),
		console: []LogEntry{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.setup(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runtime) setup() error {
	r.bctx = bridge.New(r.host, r.config.Bridge,
		bridge.WithLogger(r.logger),
		bridge.WithMetrics(r.metrics),
		bridge.WithTracer(r.tracer),
	)
	doc, err := dom.NewDocument(r.bctx)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	r.doc = doc
	r.wrappers = make(map[*dom.Node]weak.Pointer[goja.Object])
	r.timers = make(map[int64]*time.Timer)

	r.vm = goja.New()
	if r.config.MaxCallStackSize > 0 {
		r.vm.SetMaxCallStackSize(r.config.MaxCallStackSize)
	}
	return r.setupGlobals()
}

// Context returns the bridge context the runtime currently drives.
func (r *Runtime) Context() *bridge.Context { return r.bctx }

// Document returns the script-visible document.
func (r *Runtime) Document() *dom.Document { return r.doc }

// Execute runs a script, then keeps driving the context loop until its
// pending round trips and timers are done and a returned promise settles.
// Records appended before a failure are still flushed.
func (r *Runtime) Execute(ctx context.Context, script string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vm == nil {
		return nil, ErrClosed
	}

	start := time.Now()
	var span *tracing.Span
	if r.tracer != nil {
		span, ctx = r.tracer.StartSpan(ctx, "script.execute")
	}

	runCtx := ctx
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}
	r.exec = runCtx
	defer func() { r.exec = nil }()

	// Setup interrupt handler
	stop := make(chan struct{})
	watcher := make(chan struct{})
	go func() {
		defer close(watcher)
		select {
		case <-runCtx.Done():
			r.vm.Interrupt(runCtx.Err())
		case <-stop:
		}
	}()

	// Clear console
	r.consoleMu.Lock()
	r.console = []LogEntry{}
	r.consoleMu.Unlock()

	val, err := r.vm.RunString(script)
	if err == nil {
		val, err = r.settle(runCtx, val)
	}

	// Stop interrupt goroutine
	close(stop)
	<-watcher
	r.vm.ClearInterrupt()
	r.stopTimers()

	r.bctx.Collect()
	if flushErr := r.bctx.Flush(context.WithoutCancel(ctx)); flushErr != nil {
		err = errors.Join(err, flushErr)
	}

	result := &Result{
		Duration: time.Since(start),
		HTML:     r.doc.Node().InnerHTML(),
	}
	r.consoleMu.Lock()
	result.Console = append([]LogEntry{}, r.console...)
	r.consoleMu.Unlock()

	outcome := "ok"
	if err != nil {
		outcome = "error"
		result.Error = err
	} else {
		result.Value = exportValue(val)
	}
	if span != nil {
		r.tracer.End(span, err)
	}
	r.metrics.RecordScript(outcome, result.Duration)
	r.logger.Debug("script executed",
		zap.String("result", outcome),
		zap.Duration("duration", result.Duration),
		zap.Int("console", len(result.Console)),
	)
	return result, err
}

// settle drives the loop until val, when it is a promise, settles or until
// nothing that could settle it is left.
func (r *Runtime) settle(ctx context.Context, val goja.Value) (goja.Value, error) {
	var p *goja.Promise
	if val != nil {
		p, _ = val.Export().(*goja.Promise)
	}
	loop := r.bctx.Loop()
	done := func() bool {
		if p != nil && p.State() != goja.PromiseStatePending {
			return true
		}
		return r.bctx.Tracker().Pending() == 0 && len(r.timers) == 0 && loop.Len() == 0
	}
	if err := loop.RunUntil(ctx, done); err != nil {
		return nil, err
	}
	if p == nil {
		return val, nil
	}
	switch p.State() {
	case goja.PromiseStateRejected:
		return nil, r.rejection(p.Result())
	case goja.PromiseStatePending:
		return nil, ErrUnsettled
	}
	return p.Result(), nil
}

// rejection turns a rejected promise value into a Go error.
func (r *Runtime) rejection(v goja.Value) error {
	if obj, ok := v.(*goja.Object); ok {
		if err, ok := obj.Export().(error); ok {
			return err
		}
		name, msg := obj.Get("name"), obj.Get("message")
		if msg != nil && !goja.IsUndefined(msg) {
			if name != nil && !goja.IsUndefined(name) && name.String() != "Error" {
				return &dom.Exception{Name: name.String(), Message: msg.String()}
			}
			return errors.New(msg.String())
		}
	}
	return fmt.Errorf("promise rejected: %v", v)
}

// setupGlobals configures global objects and security
func (r *Runtime) setupGlobals() error {
	// Remove dangerous globals
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		for _, level := range []string{"log", "info", "warn", "error", "debug"} {
			if err := console.Set(level, r.makeConsoleFunc(level)); err != nil {
				return err
			}
		}
		if err := r.vm.Set("console", console); err != nil {
			return err
		}
	}

	globals := map[string]interface{}{
		"window":       r.vm.GlobalObject(),
		"document":     r.wrap(r.doc.Node()),
		"setTimeout":   r.setTimeout,
		"clearTimeout": r.clearTimeout,
	}
	for name, v := range globals {
		if err := r.vm.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

// makeConsoleFunc creates a console function that records the entry and
// logs it through zap.
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: msg,
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		fields := []zap.Field{zap.String("context", r.bctx.ID().String()), zap.String("message", msg)}
		switch level {
		case "error":
			r.logger.Error("console", fields...)
		case "warn":
			r.logger.Warn("console", fields...)
		case "debug":
			r.logger.Debug("console", fields...)
		default:
			r.logger.Info("console", fields...)
		}
		return goja.Undefined()
	}
}

// setTimeout queues fn on the context loop after the delay. Timers only fire
// while Execute is driving the loop.
func (r *Runtime) setTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(r.vm.NewTypeError("setTimeout: callback is not a function"))
	}
	delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
	r.nextTID++
	tid := r.nextTID
	loop := r.bctx.Loop()
	r.timers[tid] = time.AfterFunc(max(delay, 0), func() {
		loop.Post(func() {
			if _, live := r.timers[tid]; !live {
				return
			}
			delete(r.timers, tid)
			if _, err := fn(goja.Undefined()); err != nil {
				r.logger.Warn("timer callback failed", zap.Error(err))
			}
		})
	})
	return r.vm.ToValue(tid)
}

func (r *Runtime) clearTimeout(call goja.FunctionCall) goja.Value {
	tid := call.Argument(0).ToInteger()
	if t, ok := r.timers[tid]; ok {
		t.Stop()
		delete(r.timers, tid)
	}
	return goja.Undefined()
}

func (r *Runtime) stopTimers() {
	for tid, t := range r.timers {
		t.Stop()
		delete(r.timers, tid)
	}
}

// exportValue converts goja value to Go value
func exportValue(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	if obj, ok := val.(*goja.Object); ok {
		if n, ok := obj.Export().(*nodeObject); ok {
			return n.node
		}
	}
	return val.Export()
}

// Reset closes the current bridge context and starts over with a new VM,
// context and document.
func (r *Runtime) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return ErrClosed
	}
	closeErr := r.bctx.Close(ctx)
	r.console = []LogEntry{}
	if err := r.setup(); err != nil {
		return errors.Join(closeErr, err)
	}
	if errors.Is(closeErr, host.ErrContextClosed) {
		return nil
	}
	return closeErr
}

// Close releases resources
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return nil
	}
	r.stopTimers()
	err := r.bctx.Close(ctx)
	r.vm = nil
	r.console = nil
	if errors.Is(err, host.ErrContextClosed) {
		return nil
	}
	return err
}
