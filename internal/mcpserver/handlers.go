package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// handleListConversations returns the current snapshot after a refresh, as a
// JSON array ordered newest first.
func (s *Service) handleListConversations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snapshot, _ := s.idx.Refresh()

	payload, err := json.Marshal(map[string]any{"conversations": snapshot})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode conversations: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// handleLoadSession parses one transcript in full and returns its messages.
func (s *Service) handleLoadSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	project := req.GetString("project", "")

	messages, model := s.idx.LoadSession(sessionID, project)
	if s.store != nil && len(messages) > 0 {
		if err := s.store.Touch(sessionID); err != nil {
			s.log.WithError(err).Debug("cannot record view")
		}
	}

	payload, err := json.Marshal(map[string]any{
		"sessionId": sessionID,
		"model":     model,
		"messages":  messages,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode session: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// handleBrowseDirectory lists subdirectories under the clamp root.
func (s *Service) handleBrowseDirectory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")

	listing := s.browser.List(path)
	payload, err := json.Marshal(listing)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode listing: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// handleRenameSession sets or clears a session's display name.
func (s *Service) handleRenameSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("annotations store is unavailable"), nil
	}

	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	name := req.GetString("name", "")

	if err := s.store.SetName(sessionID, name); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("rename failed: %v", err)), nil
	}
	if name == "" {
		return mcp.NewToolResultText(fmt.Sprintf("Cleared name for session %s", sessionID)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Renamed session %s to %q", sessionID, name)), nil
}
