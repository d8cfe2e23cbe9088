// Package batch decides when the command log reaches the host.
//
// The first append after a drain opens a batch and sends the host a single
// schedule-update notification; further appends ride on the open batch.
// Flush drains the log and hands the records to the host synchronously.
package batch

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/linsmod/webf/internal/command"
	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/infrastructure/monitoring"
	"github.com/linsmod/webf/internal/infrastructure/tracing"
	"github.com/linsmod/webf/internal/logging"
	"go.uber.org/zap"
)

// Notifier receives the schedule-update notification.
type Notifier interface {
	ScheduleUpdate()
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func()

// ScheduleUpdate implements Notifier.
func (f NotifierFunc) ScheduleUpdate() { f() }

// Sink consumes drained records.
type Sink interface {
	Flush(ctx context.Context, records []command.Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, records []command.Record) error

// Flush implements Sink.
func (f SinkFunc) Flush(ctx context.Context, records []command.Record) error {
	return f(ctx, records)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithTracer enables a span per flush.
func WithTracer(t *tracing.Tracer) Option {
	return func(s *Scheduler) { s.tracer = t }
}

// Scheduler owns the batch state of one execution context.
// It is not safe for concurrent use; re-entrant use from the sink is fine.
type Scheduler struct {
	log      *command.Log
	notifier Notifier
	sink     Sink

	logger  *logging.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer

	open          bool
	depth         int
	deferred      bool
	notifications uint64
	flushes       uint64
}

// New creates a scheduler over log.
func New(log *command.Log, notifier Notifier, sink Sink, opts ...Option) *Scheduler {
	s := &Scheduler{
		log:      log,
		notifier: notifier,
		sink:     sink,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append adds r to the log, opening a batch and notifying the host when
// none is open. It never blocks and never fails.
func (s *Scheduler) Append(r command.Record) uint64 {
	seq := s.log.Append(r)
	s.metrics.RecordAppend(r.Op.String())

	if !s.open {
		s.open = true
		s.notifications++
		s.metrics.RecordNotification()
		s.notifier.ScheduleUpdate()
	}
	return seq
}

// Flush delivers every pending record to the sink. On an empty log it does
// nothing. On failure the undelivered records go back to the log in order.
//
// A nested flush the host refuses with host.ErrBusy keeps its records and
// returns the error; the outermost flush delivers them once its own batch
// has gone through.
func (s *Scheduler) Flush(ctx context.Context) error {
	if s.log.Size() == 0 {
		return nil
	}

	b := s.log.Drain()
	s.open = false
	s.flushes++

	var span *tracing.Span
	if s.tracer != nil {
		span, ctx = s.tracer.StartSpan(ctx, "bridge.flush")
		span.SetTag("records", strconv.Itoa(b.Len()))
	}

	start := time.Now()
	s.depth++
	err := s.sink.Flush(ctx, b.Records)
	s.depth--
	elapsed := time.Since(start)
	n := b.Len()

	retry := s.depth == 0 && s.deferred
	if s.depth == 0 {
		s.deferred = false
	}

	if span != nil {
		s.tracer.End(span, err)
	}

	if err == nil {
		s.metrics.RecordFlush("ok", n, elapsed)
		s.logger.Debug("flush delivered",
			zap.Int("records", n),
			zap.Int("depth", s.depth),
			zap.Duration("elapsed", elapsed),
		)
		b.Release()
		if retry {
			return s.Flush(ctx)
		}
		return nil
	}

	var perr *host.ProtocolError
	if errors.As(err, &perr) {
		consumed, rest := b.Split(perr.Seq)
		consumed.Release()
		s.log.Requeue(rest)
		s.metrics.RecordFlush("protocol", n, elapsed)
		s.logger.Warn("host rejected record",
			zap.Uint64("seq", perr.Seq),
			zap.String("op", perr.Op),
			zap.Stringer("handle", perr.Handle),
			zap.Int("requeued", rest.Len()),
		)
		return err
	}

	s.log.Requeue(b)
	if s.depth > 0 && errors.Is(err, host.ErrBusy) {
		s.deferred = true
	}
	s.metrics.RecordFlush("transport", n, elapsed)
	s.logger.Warn("flush failed, records kept for retry",
		zap.Int("requeued", n),
		zap.Error(err),
	)
	return err
}

// Open reports whether a batch is open.
func (s *Scheduler) Open() bool { return s.open }

// Pending returns the number of undrained records.
func (s *Scheduler) Pending() int { return s.log.Size() }

// Notifications returns how many schedule-update notifications were sent.
func (s *Scheduler) Notifications() uint64 { return s.notifications }

// Flushes returns how many non-empty flushes ran.
func (s *Scheduler) Flushes() uint64 { return s.flushes }

// Depth returns how many deliveries are in progress on the stack.
func (s *Scheduler) Depth() int { return s.depth }
