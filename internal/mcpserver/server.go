// Package mcpserver exposes the conversation index to MCP clients over SSE,
// so agents can list, load, browse and rename conversations with the same
// semantics as the HTTP API.
package mcpserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"convwatch/internal/browse"
	"convwatch/internal/index"
	"convwatch/internal/logging"
	"convwatch/internal/store"
)

// Service runs the MCP server on a local port.
type Service struct {
	idx     *index.Index
	browser *browse.Browser
	store   *store.Store
	port    int
	log     *logrus.Entry

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates an MCP service on the given port.
func New(idx *index.Index, browser *browse.Browser, st *store.Store, port int) *Service {
	return &Service{
		idx:     idx,
		browser: browser,
		store:   st,
		port:    port,
		log:     logging.NewLogger("mcp"),
	}
}

// Port returns the SSE port.
func (s *Service) Port() int {
	return s.port
}

// IsRunning reports whether the server is up.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start starts the MCP SSE server.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())

	mcpServer := server.NewMCPServer(
		"convwatch",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(listConversationsTool(), s.handleListConversations)
	mcpServer.AddTool(loadSessionTool(), s.handleLoadSession)
	mcpServer.AddTool(browseDirectoryTool(), s.handleBrowseDirectory)
	mcpServer.AddTool(renameSessionTool(), s.handleRenameSession)

	go func() {
		sseServer := server.NewSSEServer(mcpServer,
			server.WithBaseURL(fmt.Sprintf("http://localhost:%d", s.port)),
		)

		httpServer := &http.Server{
			Addr:    fmt.Sprintf(":%d", s.port),
			Handler: sseServer,
		}

		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.log.WithError(err).Error("mcp server stopped")
			}
		}()

		<-s.ctx.Done()
		httpServer.Close()
	}()

	s.running = true
	s.log.WithField("port", s.port).Info("mcp server started")
	return nil
}

// Stop stops the MCP server.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.running = false
	s.log.Info("mcp server stopped")
}
