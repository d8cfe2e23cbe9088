package cli

import (
	"context"
	"fmt"

	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/host/local"
	"github.com/linsmod/webf/internal/host/remote"
	"github.com/linsmod/webf/internal/infrastructure/config"
	"github.com/linsmod/webf/internal/infrastructure/monitoring"
	"github.com/linsmod/webf/internal/infrastructure/tracing"
	"github.com/linsmod/webf/internal/logging"
	"github.com/linsmod/webf/internal/wire"
)

// dialHost builds the host selected by cfg.Host.Transport. The returned
// function releases it once every context on it is closed.
func dialHost(ctx context.Context, cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics, tracer *tracing.Tracer) (host.Host, func() error, error) {
	if cfg.Host.Transport == config.TransportLocal {
		h := local.New(local.Config{
			ViewportWidth:  cfg.Bridge.ViewportWidth,
			ViewportHeight: cfg.Bridge.ViewportHeight,
		}, local.WithLogger(logger.Named("host")), local.WithMetrics(metrics))
		return h, func() error { h.Wait(); return nil }, nil
	}

	codec, err := wire.NewCodec(cfg.Host.CompressThreshold)
	if err != nil {
		return nil, nil, err
	}

	var transport remote.Transport
	switch cfg.Host.Transport {
	case config.TransportWebSocket:
		transport, err = remote.DialWebSocket(ctx, cfg.Host.Address, nil, logger.Named("ws"))
	case config.TransportGRPC:
		transport, err = remote.DialGRPC(cfg.Host.Address, tracer)
	case config.TransportHTTP:
		transport = remote.NewHTTP(cfg.Host.Address, cfg.Host.Timeout)
	default:
		err = fmt.Errorf("unknown host transport %q", cfg.Host.Transport)
	}
	if err != nil {
		codec.Close()
		return nil, nil, fmt.Errorf("connect to host at %s: %w", cfg.Host.Address, err)
	}

	client := remote.NewClient(transport, codec,
		remote.WithLogger(logger.Named("client")),
		remote.WithMetrics(metrics),
		remote.WithTimeout(cfg.Host.Timeout),
		remote.WithBreaker(remote.BreakerSettings(cfg.Host.MaxFailures, cfg.Host.OpenTimeout)),
	)
	release := func() error {
		defer codec.Close()
		return client.Shutdown()
	}
	return client, release, nil
}
