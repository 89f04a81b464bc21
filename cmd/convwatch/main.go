// Command convwatch runs the conversation index daemon: it watches a Claude
// projects directory for session transcripts and serves them over HTTP,
// WebSocket and MCP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"convwatch/internal/browse"
	"convwatch/internal/config"
	"convwatch/internal/index"
	"convwatch/internal/logging"
	"convwatch/internal/mcpserver"
	"convwatch/internal/server"
	"convwatch/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convwatch",
		Short: "Live index over Claude session transcripts",
		Long: "convwatch watches a projects directory of session JSONL files and " +
			"serves a live conversation index over HTTP, WebSocket and MCP. " +
			"Configuration comes from CONVWATCH_* environment variables.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
}

func run() error {
	logger := logging.NewLogger("main")
	cfg := config.Load()

	st, err := store.Open(filepath.Join(cfg.DataDir, "annotations.db"))
	if err != nil {
		// The index works without annotations; log and keep going.
		logger.WithError(err).Warn("annotations store unavailable")
		st = nil
	}

	idx := index.New(cfg.ProjectsDir, cfg.Debounce)
	browser := browse.New(cfg.BrowseRoot, cfg.ShowHidden)

	srv := server.New(idx, browser, st)
	if err := srv.Start(cfg.HTTPAddr); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	var mcp *mcpserver.Service
	if cfg.MCPPort > 0 {
		mcp = mcpserver.New(idx, browser, st, cfg.MCPPort)
		if err := mcp.Start(); err != nil {
			logger.WithError(err).Warn("mcp server unavailable")
			mcp = nil
		}
	}

	logger.WithField("projectsDir", cfg.ProjectsDir).Info("convwatch running")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	if mcp != nil {
		mcp.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("http shutdown error")
	}

	idx.Close()
	if st != nil {
		if err := st.Close(); err != nil {
			logger.WithError(err).Error("store close error")
		}
	}
	return nil
}
