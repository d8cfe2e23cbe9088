package remote

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/command"
	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/host/local"
	"github.com/linsmod/webf/internal/host/server"
	"github.com/linsmod/webf/internal/infrastructure/config"
	"github.com/linsmod/webf/internal/infrastructure/resilience"
	"github.com/linsmod/webf/internal/native"
	"github.com/linsmod/webf/internal/shared/id"
	"github.com/linsmod/webf/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

var (
	doc = binding.Handle{ID: 1, Kind: binding.KindDocument}
	div = binding.Handle{ID: 2, Kind: binding.KindElement}
)

func record(seq uint64, op command.Opcode, target binding.Handle, args ...string) command.Record {
	r := command.New(op, binding.Weak(target), args...)
	r.Seq = seq
	return r
}

func scenario() []command.Record {
	insert := record(5, command.OpInsertAdjacentNode, doc, command.BeforeEnd)
	insert.Aux = binding.Weak(div)
	return []command.Record{
		record(1, command.OpCreateDocument, doc),
		record(2, command.OpCreateElement, div, "div"),
		record(3, command.OpSetAttribute, div, "id", "x"),
		record(4, command.OpSetStyle, div, "height", "10px"),
		insert,
	}
}

type stack struct {
	local  *local.Host
	server *server.Server
	codec  *wire.Codec
}

func newStack(t *testing.T) *stack {
	t.Helper()
	codec, err := wire.NewCodec(256)
	require.NoError(t, err)
	t.Cleanup(codec.Close)

	lh := local.New(local.DefaultConfig())
	t.Cleanup(lh.Wait)
	return &stack{local: lh, server: server.New(config.Default(), lh, codec), codec: codec}
}

func (s *stack) httpServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(s.server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func exercise(t *testing.T, s *stack, client *Client) {
	ctx := context.Background()
	ctxID := id.NewContextID()

	require.NoError(t, client.Flush(ctx, ctxID, scenario()))
	mirror, ok := s.local.Mirror(ctxID)
	require.True(t, ok)
	assert.Equal(t, `<div id="x" style="height: 10px"></div>`, mirror.Render())

	// A retried delivery of the same records is applied once.
	require.NoError(t, client.Flush(ctx, ctxID, scenario()))
	assert.Equal(t, 2, mirror.Len())

	v, err := client.Call(ctx, ctxID, doc, native.QuerySelector, []native.Value{native.String("#x")})
	require.NoError(t, err)
	got, err := v.AsPointer()
	require.NoError(t, err)
	assert.Equal(t, div, got)

	_, err = client.Call(ctx, ctxID, doc, native.QuerySelector, []native.Value{native.String("[")})
	var ierr *host.InvocationError
	require.ErrorAs(t, err, &ierr)
	assert.Contains(t, ierr.Message, "SyntaxError")

	_, err = client.Call(ctx, ctxID, binding.Handle{ID: 77, Kind: binding.KindElement}, native.Click, nil)
	var perr *host.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, resilience.StateClosed, client.Breaker().State(), "host-reported errors do not trip the breaker")

	type outcome struct {
		data []byte
		msg  string
	}
	done := make(chan outcome, 1)
	client.ToBlob(ctx, ctxID, div, host.SnapshotParams{DevicePixelRatio: 1}, func(data []byte, msg string) {
		done <- outcome{data, msg}
	})
	res := <-done
	assert.Empty(t, res.msg)
	assert.True(t, strings.HasPrefix(string(res.data), "\x89PNG"))

	client.ScheduleUpdate(ctxID)
	assert.Eventually(t, func() bool { return mirror.Notifications() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, client.Close(ctx, ctxID))
	assert.ErrorIs(t, client.Flush(ctx, ctxID, scenario()), host.ErrContextClosed)
	assert.Equal(t, resilience.StateClosed, client.Breaker().State())
}

func TestWebSocketTransport(t *testing.T) {
	s := newStack(t)
	ts := s.httpServer(t)

	ws, err := DialWebSocket(context.Background(), "ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/ws", nil, nil)
	require.NoError(t, err)
	client := NewClient(ws, s.codec)
	defer func() { assert.NoError(t, client.Shutdown()) }()

	exercise(t, s, client)
}

func TestHTTPTransport(t *testing.T) {
	s := newStack(t)
	ts := s.httpServer(t)

	client := NewClient(NewHTTP(ts.URL, 5*time.Second), s.codec)
	defer func() { assert.NoError(t, client.Shutdown()) }()

	exercise(t, s, client)
}

func TestGRPCTransport(t *testing.T) {
	s := newStack(t)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.server.GRPC().Serve(lis) }()
	t.Cleanup(s.server.GRPC().Stop)

	g, err := DialGRPC("passthrough:///bufnet", nil, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	client := NewClient(g, s.codec)
	defer func() { assert.NoError(t, client.Shutdown()) }()

	exercise(t, s, client)
}

type brokenTransport struct{ calls int }

func (b *brokenTransport) Name() string { return "broken" }
func (b *brokenTransport) Close() error { return nil }

func (b *brokenTransport) RoundTrip(context.Context, wire.Envelope) (wire.Envelope, error) {
	b.calls++
	return wire.Envelope{}, errors.New("connection refused")
}

func TestBreakerOpensOnTransportFailures(t *testing.T) {
	codec, err := wire.NewCodec(0)
	require.NoError(t, err)
	defer codec.Close()

	transport := &brokenTransport{}
	client := NewClient(transport, codec, WithBreaker(BreakerSettings(2, time.Minute)))
	ctx := context.Background()
	ctxID := id.NewContextID()

	for i := 0; i < 2; i++ {
		err := client.Flush(ctx, ctxID, scenario())
		assert.True(t, host.IsTransport(err))
	}
	err = client.Flush(ctx, ctxID, scenario())
	var terr *host.TransportError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 2, transport.calls)

	done := make(chan string, 1)
	client.ToBlob(ctx, ctxID, div, host.SnapshotParams{}, func(_ []byte, msg string) { done <- msg })
	assert.NotEmpty(t, <-done)
	require.NoError(t, client.Shutdown())
}

// heldTransport answers every request but holds schedule notifications
// until release is closed.
type heldTransport struct {
	codec   *wire.Codec
	release chan struct{}

	mu    sync.Mutex
	kinds []wire.Kind
}

func (h *heldTransport) Name() string { return "held" }
func (h *heldTransport) Close() error { return nil }

func (h *heldTransport) RoundTrip(ctx context.Context, env wire.Envelope) (wire.Envelope, error) {
	if env.Kind == wire.KindSchedule {
		select {
		case <-h.release:
		case <-ctx.Done():
			return wire.Envelope{}, ctx.Err()
		}
	}
	h.mu.Lock()
	h.kinds = append(h.kinds, env.Kind)
	h.mu.Unlock()
	return h.codec.Reply(env, wire.KindResult, nil)
}

func (h *heldTransport) seen() []wire.Kind {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]wire.Kind(nil), h.kinds...)
}

func TestNotificationPrecedesFlush(t *testing.T) {
	codec, err := wire.NewCodec(0)
	require.NoError(t, err)
	defer codec.Close()

	transport := &heldTransport{codec: codec, release: make(chan struct{})}
	client := NewClient(transport, codec)
	ctxID := id.NewContextID()

	client.ScheduleUpdate(ctxID)
	flushed := make(chan error, 1)
	go func() { flushed <- client.Flush(context.Background(), ctxID, scenario()) }()

	select {
	case err := <-flushed:
		t.Fatalf("flush finished before the notification was answered: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Empty(t, transport.seen())

	// Another context is not held behind ctxID's notification.
	require.NoError(t, client.Close(context.Background(), id.NewContextID()))

	close(transport.release)
	require.NoError(t, <-flushed)
	assert.Equal(t, []wire.Kind{wire.KindClose, wire.KindSchedule, wire.KindFlush}, transport.seen())
	require.NoError(t, client.Shutdown())
}

func TestFlushGivesUpWaitingForNotification(t *testing.T) {
	codec, err := wire.NewCodec(0)
	require.NoError(t, err)
	defer codec.Close()

	transport := &heldTransport{codec: codec, release: make(chan struct{})}
	client := NewClient(transport, codec)
	ctxID := id.NewContextID()
	client.ScheduleUpdate(ctxID)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = client.Flush(ctx, ctxID, scenario())
	assert.True(t, host.IsTransport(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, transport.seen())

	close(transport.release)
	require.NoError(t, client.Shutdown())
}
