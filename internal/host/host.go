// Package host defines the native UI host as the bridge sees it, and the
// errors that cross back from it.
//
// A host receives three kinds of traffic for each execution context:
// a parameterless "schedule update" notification (at most one per open
// batch), flush deliveries carrying drained records in order, and calls
// (synchronous binding methods, asynchronous snapshots).
package host

import (
	"context"

	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/command"
	"github.com/linsmod/webf/internal/native"
	"github.com/linsmod/webf/internal/shared/id"
)

// SnapshotParams parameterizes an element snapshot.
type SnapshotParams struct {
	DevicePixelRatio float64 `json:"device_pixel_ratio"`
}

// Completion receives the outcome of an async host call exactly once:
// either data, or a non-empty error message.
type Completion func(data []byte, errMsg string)

// Host is the native side of the bridge.
//
// Flush must process records strictly in order and may be re-entered from
// callbacks it makes into the bridge. Records must be copied before Flush
// returns; the bridge releases them afterwards.
type Host interface {
	ScheduleUpdate(ctxID id.ContextID)
	Flush(ctx context.Context, ctxID id.ContextID, records []command.Record) error
	Call(ctx context.Context, ctxID id.ContextID, target binding.Handle, method native.Method, args []native.Value) (native.Value, error)
	ToBlob(ctx context.Context, ctxID id.ContextID, target binding.Handle, params SnapshotParams, done Completion)
	Close(ctx context.Context, ctxID id.ContextID) error
}
