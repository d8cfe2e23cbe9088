package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/command"
	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/host/local"
	"github.com/linsmod/webf/internal/infrastructure/config"
	"github.com/linsmod/webf/internal/infrastructure/monitoring"
	"github.com/linsmod/webf/internal/shared/id"
	"github.com/linsmod/webf/internal/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, cfg *config.Config) (*Server, *local.Host, *wire.Codec) {
	t.Helper()
	codec, err := wire.NewCodec(0)
	require.NoError(t, err)
	t.Cleanup(codec.Close)
	lh := local.New(local.DefaultConfig())
	t.Cleanup(lh.Wait)
	return New(cfg, lh, codec), lh, codec
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _, _ := newServer(t, config.Default())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["ws_connections"])

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "webf_batch_notifications_total")
}

func TestSharedMetrics(t *testing.T) {
	codec, err := wire.NewCodec(0)
	require.NoError(t, err)
	t.Cleanup(codec.Close)

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	lh := local.New(local.DefaultConfig(), local.WithMetrics(metrics))
	srv := New(config.Default(), lh, codec, WithRegistry(reg), WithMetrics(metrics))
	assert.Same(t, metrics, srv.Metrics())

	require.NoError(t, lh.Flush(context.Background(), id.NewContextID(), nil))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `transport="local"`)
}

func TestExchangeRejectsMalformedBody(t *testing.T) {
	srv, _, _ := newServer(t, config.Default())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/exchange", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExchangeFlushOverHTTP(t *testing.T) {
	srv, lh, codec := newServer(t, config.Default())
	ctxID := id.NewContextID()

	doc := binding.Handle{ID: 1, Kind: binding.KindDocument}
	p := binding.Handle{ID: 2, Kind: binding.KindElement}
	records := []command.Record{
		command.New(command.OpCreateDocument, binding.Weak(doc)),
		command.New(command.OpCreateElement, binding.Weak(p), "p"),
		command.New(command.OpInsertAdjacentNode, binding.Weak(doc), command.BeforeEnd).WithAux(binding.Weak(p)),
	}
	for i := range records {
		records[i].Seq = uint64(i + 1)
	}
	req, err := codec.Request(wire.KindFlush, ctxID.String(), "", wire.FlushRequest{Records: wire.RecordsToDTO(records)})
	require.NoError(t, err)
	data, err := wire.Marshal(req)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	resp, err := http.Post(ts.URL+"/v1/exchange", "application/json", strings.NewReader(string(data)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	reply, err := wire.Unmarshal(out)
	require.NoError(t, err)
	assert.Equal(t, req.ID, reply.ID)
	assert.Equal(t, wire.KindResult, reply.Kind)

	mirror, ok := lh.Mirror(ctxID)
	require.True(t, ok)
	assert.Equal(t, "<p></p>", mirror.Render())
}

func TestDispatcherEncodesErrors(t *testing.T) {
	codec, err := wire.NewCodec(0)
	require.NoError(t, err)
	defer codec.Close()
	lh := local.New(local.DefaultConfig())
	defer lh.Wait()
	d := NewDispatcher(lh, codec, nil)
	ctx := context.Background()

	t.Run("unsupported kind", func(t *testing.T) {
		reply := d.Handle(ctx, wire.Envelope{ID: "1", Kind: wire.KindResult, Context: "c"})
		assert.Equal(t, wire.KindError, reply.Kind)
		assert.Equal(t, "1", reply.ID)
		assert.ErrorContains(t, codec.AsError(reply), "unsupported envelope kind")
	})

	t.Run("protocol error keeps its type", func(t *testing.T) {
		records := []command.Record{
			command.New(command.OpSetAttribute, binding.Weak(binding.Handle{ID: 9, Kind: binding.KindElement}), "id", "x"),
		}
		records[0].Seq = 4
		req, err := codec.Request(wire.KindFlush, "c", "", wire.FlushRequest{Records: wire.RecordsToDTO(records)})
		require.NoError(t, err)

		var perr *host.ProtocolError
		require.ErrorAs(t, codec.AsError(d.Handle(ctx, req)), &perr)
		assert.Equal(t, uint64(4), perr.Seq)
	})

	t.Run("unknown method", func(t *testing.T) {
		req, err := codec.Request(wire.KindCall, "c", "", wire.CallRequest{
			Target: wire.HandleToDTO(binding.Handle{ID: 1, Kind: binding.KindDocument}),
			Method: "focus",
		})
		require.NoError(t, err)
		assert.Error(t, codec.AsError(d.Handle(ctx, req)))
	})
}

func TestRateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1
	srv, _, _ := newServer(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes[1:], http.StatusTooManyRequests)
}
