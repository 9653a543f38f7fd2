package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/datalens-mcp/datalens-mcp/internal/catalog"
	"github.com/datalens-mcp/datalens-mcp/internal/config"
	"github.com/datalens-mcp/datalens-mcp/internal/datalens"
	httpsvr "github.com/datalens-mcp/datalens-mcp/internal/http"
	mcpsvr "github.com/datalens-mcp/datalens-mcp/internal/mcp"
)

var (
	version   = "dev"
	gitCommit = ""
	buildTime = ""
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "datalens-mcp",
		Short: "MCP gateway for the DataLens RPC API",
		Long: "datalens-mcp exposes DataLens RPC methods as schema-validated MCP tools.\n" +
			"By default it serves the MCP protocol on stdin/stdout; set DATALENS_MCP_LISTEN\n" +
			"or DATALENS_HTTP_LISTEN to also serve TCP or HTTP clients.",
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "methods",
		Short: "Print the bundled RPC method catalog as JSON",
		RunE:  runMethods,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "datalens-mcp %s (commit %s, built %s)\n", version, gitCommit, buildTime)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	// stdout carries protocol frames, so all logging goes to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg := config.FromEnv(logger)
	cfg.WarnOnStartup(logger)

	logger.Info("effective config",
		"base_url", cfg.BaseURL,
		"api_version", cfg.APIVersion,
		"org_id_set", cfg.OrgID != "",
		"credential_set", cfg.SubjectToken != "",
		"timeout", cfg.Timeout.String(),
		"mcp_listen", cfg.MCPListen,
		"http_listen", cfg.HTTPListen,
	)

	if _, err := catalog.Load(); err != nil {
		logger.Error("method catalog failed to load", "err", err)
		return err
	}

	client := datalens.NewClient(cfg, logger)
	toolset := mcpsvr.NewToolset(client, logger)

	stdioServer := mcpsvr.NewServer("", toolset, logger, version)

	servers := 1
	if cfg.MCPListen != "" {
		servers++
	}
	if cfg.HTTPListen != "" {
		servers++
	}
	errCh := make(chan error, servers)

	stdioCtx, stdioCancel := context.WithCancel(context.Background())
	defer stdioCancel()
	go func() { errCh <- stdioServer.ServeStdio(stdioCtx, os.Stdin, os.Stdout) }()

	var tcpServer *mcpsvr.Server
	if cfg.MCPListen != "" {
		tcpServer = mcpsvr.NewServer(cfg.MCPListen, toolset, logger, version)
		go func() { errCh <- tcpServer.ListenAndServe() }()
	}

	var httpServer *httpsvr.Server
	if cfg.HTTPListen != "" {
		httpServer = httpsvr.NewServer(cfg.HTTPListen, toolset, cfg.HTTPToken, httpsvr.BuildInfo{
			Version:   version,
			GitCommit: gitCommit,
			BuildTime: buildTime,
		}, logger)
		go func() { errCh <- httpServer.ListenAndServe() }()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "err", err)
		} else {
			logger.Info("mcp client disconnected")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	stdioCancel()
	if tcpServer != nil {
		tcpServer.Shutdown(ctx)
	}
	if httpServer != nil {
		httpServer.Shutdown(ctx)
	}
	logger.Info("shutdown complete")
	return nil
}

func runMethods(cmd *cobra.Command, _ []string) error {
	reg, err := catalog.Load()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(reg)
}
