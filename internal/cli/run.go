package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/linsmod/webf/internal/infrastructure/config"
	"github.com/linsmod/webf/internal/infrastructure/monitoring"
	"github.com/linsmod/webf/internal/infrastructure/tracing"
	"github.com/linsmod/webf/internal/script"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRunCommand returns the command that executes scripts against a local
// or remote host.
func NewRunCommand() *cobra.Command {
	var (
		g         globalFlags
		pattern   string
		transport string
		address   string
		printHTML bool
	)
	cmd := &cobra.Command{
		Use:           "run [file|dir|glob]...",
		Short:         "Run scripts against a bridge host",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if transport != "" {
				cfg.Host.Transport = transport
			}
			if address != "" {
				cfg.Host.Address = address
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			files, err := discover(ctx, args, pattern)
			if err != nil {
				return err
			}

			metrics := monitoring.NewMetrics(prometheus.NewRegistry())
			tracer := tracing.New("webf-runner", logger.Logger)
			defer tracer.Close()

			h, release, err := dialHost(ctx, cfg, logger, metrics, tracer)
			if err != nil {
				return err
			}
			defer func() {
				if err := release(); err != nil {
					logger.Warn("release host", zap.Error(err))
				}
			}()

			pool, err := script.NewPool(h, script.FromConfig(cfg), cfg.Script.PoolSize,
				script.WithLogger(logger.Named("script")),
				script.WithMetrics(metrics),
				script.WithTracer(tracer),
			)
			if err != nil {
				return err
			}
			defer pool.Close(context.WithoutCancel(ctx))

			failed := runScripts(ctx, cmd.OutOrStdout(), pool, files, printHTML, logger)
			if failed > 0 {
				return fmt.Errorf("%d of %d scripts failed", failed, len(files))
			}
			return nil
		},
	}
	g.register(cmd)
	cmd.Flags().StringVar(&pattern, "pattern", "**/*.js", "doublestar pattern for files inside directory arguments")
	cmd.Flags().StringVar(&transport, "transport", "", "host transport: "+config.TransportLocal+", "+config.TransportWebSocket+", "+config.TransportGRPC+" or "+config.TransportHTTP)
	cmd.Flags().StringVar(&address, "addr", "", "remote host address (ws URL, gRPC target or HTTP base URL)")
	cmd.Flags().BoolVar(&printHTML, "html", false, "print the document after each script")
	return cmd
}

type warner interface {
	Warn(msg string, fields ...zap.Field)
}

// runScripts executes files in order and reports each outcome on out. It
// returns the number of failures.
func runScripts(ctx context.Context, out io.Writer, pool *script.Pool, files []string, printHTML bool, log warner) int {
	failed := 0
	for _, file := range files {
		src, charset, err := readScript(file)
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", file, err)
			continue
		}
		if charset != "utf-8" {
			log.Warn("script decoded from legacy charset", zap.String("file", file), zap.String("charset", charset))
		}

		result, err := pool.Execute(ctx, src)
		if result != nil {
			for _, entry := range result.Console {
				fmt.Fprintf(out, "  [%s] %s\n", entry.Level, entry.Message)
			}
		}
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", file, err)
			continue
		}
		fmt.Fprintf(out, "ok   %s (%s)", file, result.Duration.Round(time.Microsecond))
		if result.Value != nil {
			fmt.Fprintf(out, " => %v", result.Value)
		}
		fmt.Fprintln(out)
		if printHTML {
			fmt.Fprintln(out, result.HTML)
		}
	}
	return failed
}
