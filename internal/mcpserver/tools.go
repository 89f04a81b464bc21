package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// listConversationsTool describes the ListConversations tool.
func listConversationsTool() mcp.Tool {
	return mcp.NewTool("ListConversations",
		mcp.WithDescription("List all known conversations, newest first. "+
			"Each entry carries the session id, the project it was recorded under, "+
			"the first user prompt, and the last-updated timestamp."),
	)
}

// loadSessionTool describes the LoadSession tool.
func loadSessionTool() mcp.Tool {
	return mcp.NewTool("LoadSession",
		mcp.WithDescription("Load the full message history of one conversation. "+
			"Returns an empty message list for unknown session ids."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id of the conversation to load"),
		),
		mcp.WithString("project",
			mcp.Description("Project working directory the session was recorded under (speeds up resolution)"),
		),
	)
}

// browseDirectoryTool describes the BrowseDirectory tool.
func browseDirectoryTool() mcp.Tool {
	return mcp.NewTool("BrowseDirectory",
		mcp.WithDescription("List the immediate subdirectories of a path. "+
			"Paths outside the configured browse root are clamped back to it."),
		mcp.WithString("path",
			mcp.Description("Absolute directory path; omit for the browse root"),
		),
	)
}

// renameSessionTool describes the RenameSession tool.
func renameSessionTool() mcp.Tool {
	return mcp.NewTool("RenameSession",
		mcp.WithDescription("Set or clear the custom display name of a conversation."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id of the conversation to rename"),
		),
		mcp.WithString("name",
			mcp.Description("New display name; empty clears the name"),
		),
	)
}
