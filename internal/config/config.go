// Package config resolves convwatch configuration from the environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Default ports are picked from the unassigned range so convwatch can run
// alongside other local dev tooling.
const (
	DefaultHTTPAddr   = "127.0.0.1:8377"
	DefaultMCPPort    = 8378
	DefaultDebounce   = 150 * time.Millisecond
	defaultProjectDir = ".claude/projects"
	defaultDataDir    = ".convwatch"
)

// Config holds all runtime settings.
type Config struct {
	// ProjectsDir is the transcript store root: one subdirectory per project,
	// each holding *.jsonl session files.
	ProjectsDir string
	// BrowseRoot is the clamp root for directory browsing.
	BrowseRoot string
	// ShowHidden includes dot-prefixed directories in browse listings.
	ShowHidden bool
	// Debounce is the watch coalescing window.
	Debounce time.Duration
	// HTTPAddr is the listen address for the HTTP/WebSocket API.
	HTTPAddr string
	// MCPPort is the SSE port for the MCP server; 0 disables it.
	MCPPort int
	// DataDir holds the annotations database.
	DataDir string
}

// Load builds a Config from environment variables, falling back to the
// defaults described in the README.
func Load() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	cfg := Config{
		ProjectsDir: filepath.Join(home, defaultProjectDir),
		BrowseRoot:  home,
		Debounce:    DefaultDebounce,
		HTTPAddr:    DefaultHTTPAddr,
		MCPPort:     DefaultMCPPort,
		DataDir:     filepath.Join(home, defaultDataDir),
	}

	if v := os.Getenv("CONVWATCH_PROJECTS_DIR"); v != "" {
		cfg.ProjectsDir = expandHome(v, home)
	}
	if v := os.Getenv("CONVWATCH_BROWSE_ROOT"); v != "" {
		cfg.BrowseRoot = expandHome(v, home)
	}
	if v := os.Getenv("CONVWATCH_SHOW_HIDDEN"); v != "" {
		cfg.ShowHidden = v == "1" || v == "true"
	}
	if v := os.Getenv("CONVWATCH_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Debounce = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("CONVWATCH_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("CONVWATCH_MCP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MCPPort = port
		}
	}
	if v := os.Getenv("CONVWATCH_DATA_DIR"); v != "" {
		cfg.DataDir = expandHome(v, home)
	}

	return cfg
}

// expandHome expands a leading ~ to the user home directory.
func expandHome(path, home string) string {
	if len(path) > 0 && path[0] == '~' {
		return filepath.Join(home, path[1:])
	}
	return path
}
