// Package server exposes a host.Host to out-of-process bridges over
// WebSocket, HTTP and gRPC. All three front-ends feed envelopes to one
// Dispatcher.
package server

import (
	"context"
	"fmt"

	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/infrastructure/tracing"
	"github.com/linsmod/webf/internal/logging"
	"github.com/linsmod/webf/internal/native"
	"github.com/linsmod/webf/internal/shared/id"
	"github.com/linsmod/webf/internal/wire"
	"go.uber.org/zap"
)

// Dispatcher applies request envelopes to a host.
type Dispatcher struct {
	host   host.Host
	codec  *wire.Codec
	logger *logging.Logger
}

// NewDispatcher creates a dispatcher. logger may be nil.
func NewDispatcher(h host.Host, codec *wire.Codec, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{host: h, codec: codec, logger: logger}
}

// Handle answers req. Failures are encoded as error envelopes, never returned.
func (d *Dispatcher) Handle(ctx context.Context, req wire.Envelope) wire.Envelope {
	ctx = tracing.WithTraceID(ctx, tracing.TraceID(req.TraceID))
	reply, err := d.handle(ctx, id.ContextID(req.Context), req)
	if err != nil {
		d.logger.Debug("request failed",
			zap.String("context", req.Context),
			zap.String("kind", string(req.Kind)),
			zap.Error(err),
		)
		return d.codec.ErrorReply(req, err)
	}
	return reply
}

func (d *Dispatcher) handle(ctx context.Context, ctxID id.ContextID, req wire.Envelope) (wire.Envelope, error) {
	switch req.Kind {
	case wire.KindSchedule:
		d.host.ScheduleUpdate(ctxID)
		return d.codec.Reply(req, wire.KindResult, nil)

	case wire.KindFlush:
		var body wire.FlushRequest
		if err := d.codec.Unpack(req, &body); err != nil {
			return wire.Envelope{}, err
		}
		records, err := wire.RecordsFromDTO(body.Records)
		if err != nil {
			return wire.Envelope{}, err
		}
		if err := d.host.Flush(ctx, ctxID, records); err != nil {
			return wire.Envelope{}, err
		}
		return d.codec.Reply(req, wire.KindResult, nil)

	case wire.KindCall:
		var body wire.CallRequest
		if err := d.codec.Unpack(req, &body); err != nil {
			return wire.Envelope{}, err
		}
		method, err := native.ParseMethod(body.Method)
		if err != nil {
			return wire.Envelope{}, err
		}
		target, err := wire.HandleFromDTO(body.Target)
		if err != nil {
			return wire.Envelope{}, err
		}
		args := make([]native.Value, len(body.Args))
		for i, a := range body.Args {
			if args[i], err = wire.ValueFromDTO(a); err != nil {
				return wire.Envelope{}, err
			}
		}
		v, err := d.host.Call(ctx, ctxID, target, method, args)
		if err != nil {
			return wire.Envelope{}, err
		}
		return d.codec.Reply(req, wire.KindResult, wire.CallResponse{Value: wire.ValueToDTO(v)})

	case wire.KindSnapshot:
		var body wire.SnapshotRequest
		if err := d.codec.Unpack(req, &body); err != nil {
			return wire.Envelope{}, err
		}
		target, err := wire.HandleFromDTO(body.Target)
		if err != nil {
			return wire.Envelope{}, err
		}
		done := make(chan wire.SnapshotResponse, 1)
		d.host.ToBlob(ctx, ctxID, target, body.Params, func(data []byte, errMsg string) {
			select {
			case done <- wire.SnapshotResponse{Data: data, Error: errMsg}:
			default:
			}
		})
		select {
		case resp := <-done:
			return d.codec.Reply(req, wire.KindResult, resp)
		case <-ctx.Done():
			return wire.Envelope{}, ctx.Err()
		}

	case wire.KindClose:
		if err := d.host.Close(ctx, ctxID); err != nil {
			return wire.Envelope{}, err
		}
		return d.codec.Reply(req, wire.KindResult, nil)
	}
	return wire.Envelope{}, fmt.Errorf("unsupported envelope kind %q", req.Kind)
}
