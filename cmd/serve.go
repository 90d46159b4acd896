package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/rum-replay/internal/observability"
	"github.com/mj1618/rum-replay/internal/rum"
	"github.com/mj1618/rum-replay/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server exposing snapshot, diff and session tools",
	Long: `Start a Model Context Protocol (MCP) server with three tools:

  snapshot         walk a UI tree fixture into replay wireframes
  diff             mutation between two UI tree fixtures
  session_context  the live RUM context, optionally after starting a view

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  rum-replay serve
  rum-replay serve --transport streamable-http --port 8080
  rum-replay serve --metrics-addr :9090 --otlp-endpoint localhost:4317 --otlp-insecure`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	serveCmd.Flags().Int("port", 8080, "HTTP port for streamable-http transport")
	serveCmd.Flags().Int("cache-ttl", 500, "Window cache TTL in milliseconds (0 to disable)")
	serveCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	serveCmd.Flags().String("otlp-endpoint", "", "Export traces to this OTLP gRPC endpoint")
	serveCmd.Flags().Bool("otlp-insecure", false, "Disable TLS for the OTLP exporter")
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")
	cacheTTLMs, _ := cmd.Flags().GetInt("cache-ttl")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	endpoint, _ := cmd.Flags().GetString("otlp-endpoint")
	insecure, _ := cmd.Flags().GetBool("otlp-insecure")
	ctx := cmd.Context()

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		Endpoint: endpoint,
		Insecure: insecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("trace flush failed")
		}
	}()

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", metricsAddr).Msg("metrics server stopped")
			}
		}()
		defer srv.Close()
	}

	p, err := newPipeline(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer p.Close()

	app := rum.NewApplicationScope(cfg.ApplicationID, sessionOptions(cfg, logger, metrics))
	monitor := rum.NewMonitor(app, rum.WriterFunc(func(e rum.Event) {
		logger.Debug().Str("type", string(e.Type)).Str("view_id", e.Context.ViewID).Msg("rum event")
	}), rum.MonitorOptions{
		QueueSize: cfg.EventQueueSize,
		Logger:    logger,
		Metrics:   metrics,
	})
	defer monitor.Close()

	srv, err := server.New(server.Options{
		Traversal: p.traversal,
		Loop:      p.loop,
		Monitor:   monitor,
		Privacy:   p.privacy,
		CacheTTL:  time.Duration(cacheTTLMs) * time.Millisecond,
		ImageWait: cfg.ImageWaitTimeout,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return srv.Serve(transport, fmt.Sprintf(":%d", port))
}
