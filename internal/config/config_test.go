package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONVWATCH_PROJECTS_DIR", "CONVWATCH_BROWSE_ROOT", "CONVWATCH_SHOW_HIDDEN",
		"CONVWATCH_DEBOUNCE_MS", "CONVWATCH_HTTP_ADDR", "CONVWATCH_MCP_PORT",
		"CONVWATCH_DATA_DIR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := Load()
	assert.Equal(t, filepath.Join(home, ".claude/projects"), cfg.ProjectsDir)
	assert.Equal(t, home, cfg.BrowseRoot)
	assert.False(t, cfg.ShowHidden)
	assert.Equal(t, DefaultDebounce, cfg.Debounce)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, DefaultMCPPort, cfg.MCPPort)
	assert.Equal(t, filepath.Join(home, ".convwatch"), cfg.DataDir)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONVWATCH_PROJECTS_DIR", "/srv/transcripts")
	t.Setenv("CONVWATCH_BROWSE_ROOT", "/srv")
	t.Setenv("CONVWATCH_SHOW_HIDDEN", "true")
	t.Setenv("CONVWATCH_DEBOUNCE_MS", "300")
	t.Setenv("CONVWATCH_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("CONVWATCH_MCP_PORT", "0")
	t.Setenv("CONVWATCH_DATA_DIR", "/var/lib/convwatch")

	cfg := Load()
	assert.Equal(t, "/srv/transcripts", cfg.ProjectsDir)
	assert.Equal(t, "/srv", cfg.BrowseRoot)
	assert.True(t, cfg.ShowHidden)
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, 0, cfg.MCPPort, "port 0 disables the MCP server")
	assert.Equal(t, "/var/lib/convwatch", cfg.DataDir)
}

func TestLoadExpandsHome(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONVWATCH_PROJECTS_DIR", "~/transcripts")

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := Load()
	assert.Equal(t, filepath.Join(home, "transcripts"), cfg.ProjectsDir)
}

func TestLoadIgnoresInvalidDebounce(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONVWATCH_DEBOUNCE_MS", "not-a-number")

	cfg := Load()
	assert.Equal(t, DefaultDebounce, cfg.Debounce)

	t.Setenv("CONVWATCH_DEBOUNCE_MS", "-5")
	cfg = Load()
	assert.Equal(t, DefaultDebounce, cfg.Debounce)
}
