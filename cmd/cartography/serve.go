package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/cartography/internal/cli"
	httpAdapter "github.com/aretw0/cartography/pkg/adapters/http"
	"github.com/aretw0/cartography/pkg/observability"
	"github.com/aretw0/cartography/pkg/ports"
	"github.com/aretw0/cartography/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves reasoning sessions over HTTP: a JSON API, a live SSE stream of graph
diffs, Mermaid output, the 3D viewer page and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		source, err := cli.BuildSource(cfg.Source, logger)
		if err != nil {
			return err
		}
		archive, closeArchive, err := cli.BuildArchive(ctx, cfg.Archive)
		if err != nil {
			return err
		}
		defer closeArchive()

		streams := httpAdapter.NewStreamManager(logger)
		opts := append(cli.ManagerOptions(cfg, archive, logger),
			session.WithHooks(streams.Hooks()),
			session.WithHooks(observability.LogHooks(logger)),
		)

		handlerOpts := []httpAdapter.Option{httpAdapter.WithLogger(logger)}
		if cfg.Server.Metrics {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics := observability.NewMetrics(reg)
			opts = append(opts, session.WithHooks(metrics.Hooks()))
			handlerOpts = append(handlerOpts, httpAdapter.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
		}
		if archive != nil {
			handlerOpts = append(handlerOpts, httpAdapter.WithArchive(archive))
		}

		sessions := session.NewManager(source, opts...)
		srv := &http.Server{
			Addr:              addr,
			Handler:           httpAdapter.NewHandler(sessions, streams, handlerOpts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("cartography server listening", "address", addr, "source", ports.SourceName(source), "archive", cfg.Archive.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
			logger.Info("shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Stop runs first so SSE handlers see their streams close.
		if err := sessions.Shutdown(shutdownCtx); err != nil {
			logger.Warn("sessions did not stop cleanly", "err", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "err", err)
			return srv.Close()
		}
		logger.Info("cartography server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
}
