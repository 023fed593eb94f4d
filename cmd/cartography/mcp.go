package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/cartography/internal/cli"
	"github.com/aretw0/cartography/pkg/adapters/mcp"
	"github.com/aretw0/cartography/pkg/observability"
	"github.com/aretw0/cartography/pkg/session"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes reasoning sessions as MCP tools so AI agents can start runs and read
their graphs.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

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

		opts := append(cli.ManagerOptions(cfg, archive, logger), session.WithHooks(observability.LogHooks(logger)))
		sessions := session.NewManager(source, opts...)
		defer func() { _ = sessions.Shutdown(context.Background()) }()

		srv := mcp.NewServer(sessions, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			// Logs go to stderr so they never corrupt JSON-RPC on stdout.
			logger.Info("starting cartography MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			logger.Info("starting cartography MCP server (SSE)", "port", port)
			if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP server stopped gracefully")
			return nil
		}
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
