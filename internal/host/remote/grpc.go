package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/linsmod/webf/internal/infrastructure/tracing"
	"github.com/linsmod/webf/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// GRPC sends envelopes through the unary Exchange method.
type GRPC struct {
	conn *grpc.ClientConn
}

// DialGRPC creates a client connection to addr. Extra options are appended,
// which lets tests dial an in-memory listener.
func DialGRPC(addr string, tracer *tracing.Tracer, extra ...grpc.DialOption) (*GRPC, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                60 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: false,
		}),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(64<<20),
			grpc.MaxCallSendMsgSize(64<<20),
		),
		grpc.WithUnaryInterceptor(tracing.GRPCClientInterceptor(tracer)),
	}
	conn, err := grpc.NewClient(addr, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("dial host %s: %w", addr, err)
	}
	return &GRPC{conn: conn}, nil
}

func (g *GRPC) Name() string { return "grpc" }

func (g *GRPC) RoundTrip(ctx context.Context, env wire.Envelope) (wire.Envelope, error) {
	data, err := wire.Marshal(env)
	if err != nil {
		return wire.Envelope{}, err
	}
	out := new(wrapperspb.BytesValue)
	if err := g.conn.Invoke(ctx, wire.ExchangeMethod, wrapperspb.Bytes(data), out); err != nil {
		return wire.Envelope{}, err
	}
	return wire.Unmarshal(out.GetValue())
}

func (g *GRPC) Close() error {
	return g.conn.Close()
}
