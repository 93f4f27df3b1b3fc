package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/rentdesk"
	"github.com/aretw0/rentdesk/pkg/adapters/mcp"
	"github.com/aretw0/rentdesk/pkg/session"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the wizards as MCP tools so an agent can open a session, fill
fields, search pickers and submit.

Supported transports:
- stdio (default): standard input/output, for local process integration.
- http: streamable HTTP on --addr, path /mcp.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		sessions := session.NewManager(session.WithIdleTTL(cfg.SessionIdleTTL), session.WithLogger(logger))
		go sessions.Run(ctx, time.Minute)
		srv := mcp.NewServer(a.engine, rentdesk.Version, mcp.WithLogger(logger), mcp.WithSessionManager(sessions))

		switch transport {
		case "stdio":
			// Logs must not corrupt JSON-RPC on stdout.
			log.SetOutput(os.Stderr)
			logger.Info("starting MCP server", "transport", transport)
			return srv.ServeStdio()
		case "http":
			return srv.ServeHTTP(ctx, cfg.ListenAddr)
		}
		return fmt.Errorf("unknown transport %q (supported: stdio, http)", transport)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol: stdio or http")
	mcpCmd.Flags().String("addr", "", "Listen address for the http transport (default :8080)")
}
