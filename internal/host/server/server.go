package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/infrastructure/config"
	"github.com/linsmod/webf/internal/infrastructure/monitoring"
	"github.com/linsmod/webf/internal/infrastructure/tracing"
	"github.com/linsmod/webf/internal/logging"
	"github.com/linsmod/webf/internal/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const maxExchangeBody = 64 << 20

// Server runs the HTTP/WebSocket and gRPC front-ends of a host.
type Server struct {
	cfg        *config.Config
	dispatcher *Dispatcher
	codec      *wire.Codec
	router     *gin.Engine
	grpc       *grpc.Server
	http       *http.Server

	logger   *logging.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	registry *prometheus.Registry
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *logging.Logger) Option { return func(s *Server) { s.logger = l } }
func WithTracer(t *tracing.Tracer) Option { return func(s *Server) { s.tracer = t } }

// WithMetrics records server metrics on m instead of creating them. m must
// be registered on the registry passed to WithRegistry.
func WithMetrics(m *monitoring.Metrics) Option { return func(s *Server) { s.metrics = m } }

// WithRegistry serves and records metrics on reg.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// New builds the server around h. Nothing listens until Start.
func New(cfg *config.Config, h host.Host, codec *wire.Codec, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		codec:  codec,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.metrics == nil {
		s.metrics = monitoring.NewMetrics(s.registry)
	}
	s.dispatcher = NewDispatcher(h, codec, s.logger)
	s.router = s.newRouter()
	s.grpc = grpc.NewServer(grpc.ChainUnaryInterceptor(tracing.GRPCUnaryInterceptor(s.tracer)))
	s.grpc.RegisterService(&wire.ServiceDesc, &exchangeService{s: s})
	return s
}

// Metrics returns the metrics the server records.
func (s *Server) Metrics() *monitoring.Metrics { return s.metrics }

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// GRPC returns the gRPC server, for tests serving it on a custom listener.
func (s *Server) GRPC() *grpc.Server { return s.grpc }

func (s *Server) newRouter() *gin.Engine {
	if !s.cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(s.tracer))
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(CORS())
	if s.cfg.RateLimit.Enabled {
		s.logger.Info("rate limiting enabled",
			zap.Int("rps", s.cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", s.cfg.RateLimit.Burst),
		)
		router.Use(RateLimit(s.cfg.RateLimit.RequestsPerSecond, s.cfg.RateLimit.Burst))
	}

	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	router.POST("/v1/exchange", s.exchange)
	router.GET("/v1/ws", s.handleWebSocket)
	return router
}

func (s *Server) health(c *gin.Context) {
	snap := s.metrics.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": snap.UptimeSeconds,
		"ws_connections": snap.WSConnections,
	})
}

func (s *Server) exchange(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxExchangeBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := wire.Unmarshal(data)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TraceID == "" {
		req.TraceID = string(tracing.GetTraceID(c.Request.Context()))
	}
	out, err := wire.Marshal(s.dispatcher.Handle(c.Request.Context(), req))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", out)
}

type exchangeService struct {
	s *Server
}

func (e *exchangeService) Exchange(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	req, err := wire.Unmarshal(in.GetValue())
	if err != nil {
		return nil, err
	}
	out, err := wire.Marshal(e.s.dispatcher.Handle(ctx, req))
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(out), nil
}

// Start listens on the configured HTTP and gRPC ports and serves in the
// background. Serve errors after startup are logged.
func (s *Server) Start() error {
	httpAddr := net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port)
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", httpAddr, err)
	}
	grpcAddr := net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.GRPCPort)
	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		_ = httpLis.Close()
		return fmt.Errorf("listen %s: %w", grpcAddr, err)
	}

	s.http = &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := s.http.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", zap.Error(err))
		}
	}()
	go func() {
		if err := s.grpc.Serve(grpcLis); err != nil {
			s.logger.Error("grpc server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("host server started",
		zap.String("http", httpLis.Addr().String()),
		zap.String("grpc", grpcLis.Addr().String()),
	)
	return nil
}

// Shutdown stops both front-ends, waiting for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down host server")

	stopped := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(stopped)
	}()

	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpc.Stop()
		<-stopped
	}
	return err
}
