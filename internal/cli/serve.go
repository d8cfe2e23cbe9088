package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/linsmod/webf/internal/host/local"
	"github.com/linsmod/webf/internal/host/server"
	"github.com/linsmod/webf/internal/infrastructure/monitoring"
	"github.com/linsmod/webf/internal/infrastructure/tracing"
	"github.com/linsmod/webf/internal/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand returns the command that runs an in-process host behind
// the HTTP, WebSocket and gRPC front-ends.
func NewServeCommand() *cobra.Command {
	var (
		g        globalFlags
		port     string
		grpcPort string
	)
	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Run a bridge host process",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if port != "" {
				cfg.Server.Port = port
			}
			if grpcPort != "" {
				cfg.Server.GRPCPort = grpcPort
			}

			tracer := tracing.New("webf-host", logger.Logger)
			defer tracer.Close()

			codec, err := wire.NewCodec(cfg.Host.CompressThreshold)
			if err != nil {
				return err
			}
			defer codec.Close()

			reg := prometheus.NewRegistry()
			metrics := monitoring.NewMetrics(reg)

			h := local.New(local.Config{
				ViewportWidth:  cfg.Bridge.ViewportWidth,
				ViewportHeight: cfg.Bridge.ViewportHeight,
			}, local.WithLogger(logger.Named("host")), local.WithMetrics(metrics))
			defer h.Wait()

			srv := server.New(cfg, h, codec,
				server.WithLogger(logger.Named("server")),
				server.WithTracer(tracer),
				server.WithRegistry(reg),
				server.WithMetrics(metrics),
			)
			if err := srv.Start(); err != nil {
				return fmt.Errorf("start server: %w", err)
			}

			<-cmd.Context().Done()
			logger.Info("shutdown requested", zap.Error(context.Cause(cmd.Context())))

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	g.register(cmd)
	cmd.Flags().StringVar(&port, "port", "", "HTTP and WebSocket port (overrides PORT)")
	cmd.Flags().StringVar(&grpcPort, "grpc-port", "", "gRPC port (overrides GRPC_PORT)")
	return cmd
}
