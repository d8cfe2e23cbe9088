package async

import (
	"context"
	"sync"

	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/blob"
	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/infrastructure/monitoring"
	"github.com/linsmod/webf/internal/logging"
	"github.com/linsmod/webf/internal/shared/id"
	"go.uber.org/zap"
)

// SnapshotType is the MIME type assumed for snapshot bytes that cannot be sniffed.
const SnapshotType = "image/png"

// Poster schedules work on the execution context's goroutine.
type Poster interface {
	Post(fn func())
}

// Scoper opens a heap mutation scope.
type Scoper interface {
	EnterScope() func()
}

// Flusher forces pending records to the host.
type Flusher interface {
	Flush(ctx context.Context) error
}

// SnapshotFunc issues the async host call.
type SnapshotFunc func(ctx context.Context, target binding.Handle, params host.SnapshotParams, done host.Completion)

// RoundTrip is one in-flight async host call.
type RoundTrip struct {
	ID     id.RoundTripID
	Target binding.Handle
	Params host.SnapshotParams

	ref    *binding.Ref
	future *Future[*blob.Blob]
	once   sync.Once
}

// Future returns the future the round trip settles.
func (rt *RoundTrip) Future() *Future[*blob.Blob] { return rt.future }

// Tracker owns the round trips of one execution context and keeps each
// target alive until its round trip settles.
type Tracker struct {
	poster   Poster
	scope    Scoper
	flusher  Flusher
	table    *binding.Table
	snapshot SnapshotFunc

	logger  *logging.Logger
	metrics *monitoring.Metrics

	pending map[id.RoundTripID]*RoundTrip
}

// NewTracker creates a tracker. logger and metrics may be nil.
func NewTracker(poster Poster, scope Scoper, flusher Flusher, table *binding.Table, snapshot SnapshotFunc, logger *logging.Logger, metrics *monitoring.Metrics) *Tracker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tracker{
		poster:   poster,
		scope:    scope,
		flusher:  flusher,
		table:    table,
		snapshot: snapshot,
		logger:   logger,
		metrics:  metrics,
		pending:  make(map[id.RoundTripID]*RoundTrip),
	}
}

// Snapshot starts a snapshot round trip for target. Failures never return
// synchronously: they reject the future.
func (t *Tracker) Snapshot(ctx context.Context, target binding.Handle, params host.SnapshotParams) *Future[*blob.Blob] {
	future := NewFuture[*blob.Blob]()

	if err := t.flusher.Flush(ctx); err != nil {
		future.Reject(err)
		return future
	}

	ref, err := t.table.Pin(target)
	if err != nil {
		future.Reject(&host.ProtocolError{Handle: target, Op: "toBlob", Reason: err.Error()})
		return future
	}

	rt := &RoundTrip{
		ID:     id.NewRoundTripID(),
		Target: target,
		Params: params,
		ref:    ref,
		future: future,
	}
	t.pending[rt.ID] = rt
	t.metrics.RoundTripStarted()

	t.snapshot(ctx, target, params, func(data []byte, errMsg string) {
		first := false
		rt.once.Do(func() { first = true })
		if !first {
			t.logger.Warn("duplicate async completion ignored", zap.String("round_trip", rt.ID.String()))
			return
		}
		t.poster.Post(func() { t.settle(rt, data, errMsg) })
	})
	return future
}

func (t *Tracker) settle(rt *RoundTrip, data []byte, errMsg string) {
	end := t.scope.EnterScope()
	defer end()

	result := "resolved"
	if errMsg != "" {
		result = "rejected"
		rt.future.Reject(&host.AsyncHostError{Message: errMsg})
	} else {
		rt.future.Resolve(blob.Detect(data, SnapshotType))
	}

	rt.ref.Release()
	delete(t.pending, rt.ID)
	t.metrics.RoundTripSettled(result)
	t.logger.Debug("round trip settled",
		zap.String("round_trip", rt.ID.String()),
		zap.String("result", result),
		zap.Int("bytes", len(data)),
	)
}

// Pending returns the number of unsettled round trips.
func (t *Tracker) Pending() int {
	return len(t.pending)
}

// Lookup returns an unsettled round trip.
func (t *Tracker) Lookup(rtID id.RoundTripID) (*RoundTrip, bool) {
	rt, ok := t.pending[rtID]
	return rt, ok
}
