package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/mobile-cli/internal/automation"
	"github.com/mj1618/mobile-cli/internal/logger"
	"github.com/mj1618/mobile-cli/internal/server"
	"github.com/mj1618/mobile-cli/internal/session"
	"github.com/mj1618/mobile-cli/internal/version"
)

const mcpNone = "none"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the hub apps and clients connect to",
	Long: `Run the WebSocket hub. Apps with the mobile-cli agent connect to it and
register as devices; every other mobile-cli command connects to it to drive
them.

With --mcp the same process also serves the automation tools over the Model
Context Protocol, driving devices in-process.

Supported MCP transports:
  none              Hub only (default)
  stdio             Standard I/O (for MCP clients that spawn the server)
  streamable-http   Streamable HTTP transport on --mcp-port

Examples:
  mobile-cli serve
  mobile-cli serve --port 12400
  mobile-cli serve --mcp stdio`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "", "Interface to listen on (default from config, 127.0.0.1)")
	serveCmd.Flags().Int("port", 0, "Hub port (default from config, 12300)")
	serveCmd.Flags().String("mcp", mcpNone, "MCP transport: none, stdio, streamable-http")
	serveCmd.Flags().Int("mcp-port", 8080, "HTTP port for the streamable-http MCP transport")
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("mcp")
	mcpPort, _ := cmd.Flags().GetInt("mcp-port")
	switch transport {
	case mcpNone, server.TransportStdio, server.TransportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported MCP transport: %s (use none, stdio or streamable-http)", transport)
	}

	reg := session.NewRegistry(cfg.RegistryOptions())
	reg.Start()
	defer reg.Stop()

	hub := session.NewServer(reg, session.ServerOptions{RequestTimeout: cfg.Request.Timeout})
	addr, err := hub.Start(cfg.Hub.Addr())
	if err != nil {
		return fmt.Errorf("failed to start hub: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hub.Shutdown(ctx); err != nil {
			logger.Warn("hub shutdown: %v", err)
		}
	}()
	logger.WithFields(map[string]interface{}{"addr": addr.String(), "mcp": transport}).Info("serving")

	errCh := make(chan error, 1)
	if transport != mcpNone {
		driver := automation.New(reg, automation.Options{
			RequestTimeout: cfg.Request.Timeout,
			ViewportTTL:    cfg.Cache.ViewportTTL,
		})
		srv := server.New(driver, version.Version)
		go func() {
			errCh <- srv.Serve(server.Config{Transport: transport, Port: mcpPort})
		}()
	}

	select {
	case <-cmd.Context().Done():
		return nil
	case err := <-errCh:
		return err
	}
}
