package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aretw0/switchback/internal/cli"
	"github.com/aretw0/switchback/internal/config"
	"github.com/aretw0/switchback/internal/logging"
	"github.com/aretw0/switchback/pkg/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [source]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the router as an MCP server, so AI agents can navigate the
tree through tools (navigate, current_state, list_states) and inspect
it through resources.

Supported transports:
- stdio (default): standard input/output, for local process integration.
- sse: Server-Sent Events over HTTP, for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		source := sourceArg(cmd, args)
		debug, _ := cmd.Flags().GetBool("debug")

		cfg, err := config.Load()
		if err != nil {
			logging.New(slog.LevelError).Error("invalid configuration", "err", err)
			os.Exit(1)
		}

		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		// Logs go to stderr; stdout belongs to the JSON-RPC framing.
		logger := logging.New(level)

		router, err := cli.BuildRouter(cli.RunOptions{Source: source, Debug: debug}, logger)
		if err != nil {
			logger.Error("router initialization failed", "err", err)
			os.Exit(1)
		}

		srv := mcp.NewServer(router, mcp.WithLogger(logger))

		switch cfg.MCPTransport {
		case "stdio":
			logger.Info("starting mcp server (stdio)", "source", source)
			if err := srv.ServeStdio(); err != nil {
				logger.Error("mcp server failed", "err", err)
				os.Exit(1)
			}
		case "sse":
			logger.Info("starting mcp server (sse)", "port", cfg.MCPPort, "source", source)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, cfg.MCPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("mcp server failed", "err", err)
				os.Exit(1)
			}
			logger.Info("mcp server stopped")
		default:
			logger.Error("unknown transport, supported: stdio, sse", "transport", cfg.MCPTransport)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (SSE only)")
	_ = viper.BindPFlag("mcp_transport", mcpCmd.Flags().Lookup("transport"))
	_ = viper.BindPFlag("mcp_port", mcpCmd.Flags().Lookup("port"))
}
