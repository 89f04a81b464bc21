package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func TestExtractMeta(t *testing.T) {
	path := writeFile(t,
		`{"type":"summary","summary":"earlier work"}`,
		`{"type":"user","cwd":"/home/u/proj","isMeta":true,"message":{"role":"user","content":"<command-name>init</command-name>"}}`,
		`{"type":"user","cwd":"/home/u/proj","message":{"role":"user","content":"refactor the config loader"}}`,
	)

	meta := ExtractMeta(path)
	assert.Equal(t, "/home/u/proj", meta.Project)
	assert.Equal(t, "refactor the config loader", meta.FirstPrompt)
}

func TestExtractMetaSkipsMalformedLines(t *testing.T) {
	path := writeFile(t,
		`this is not json at all`,
		`{"type":"user"`,
		`{"type":"user","cwd":"/home/u/proj","message":{"role":"user","content":"still found"}}`,
	)

	meta := ExtractMeta(path)
	assert.Equal(t, "/home/u/proj", meta.Project)
	assert.Equal(t, "still found", meta.FirstPrompt)
}

func TestExtractMetaStopsEarly(t *testing.T) {
	// Garbage after both fields are found must never matter: extraction stops
	// at the first line satisfying both.
	lines := []string{
		`{"type":"user","cwd":"/home/u/proj","message":{"role":"user","content":"the prompt"}}`,
	}
	for i := 0; i < 50; i++ {
		lines = append(lines, `{"type":"user","cwd":"/elsewhere","message":{"role":"user","content":"later prompt"}}`)
	}
	path := writeFile(t, lines...)

	meta := ExtractMeta(path)
	assert.Equal(t, "/home/u/proj", meta.Project)
	assert.Equal(t, "the prompt", meta.FirstPrompt)
}

func TestExtractMetaLineBound(t *testing.T) {
	var lines []string
	for i := 0; i < maxMetaLines+20; i++ {
		lines = append(lines, `{"type":"summary","summary":"filler"}`)
	}
	lines = append(lines, `{"type":"user","cwd":"/home/u/proj","message":{"role":"user","content":"too deep"}}`)
	path := writeFile(t, lines...)

	meta := ExtractMeta(path)
	assert.Empty(t, meta.Project)
	assert.Empty(t, meta.FirstPrompt)
}

func TestExtractMetaBlockContent(t *testing.T) {
	path := writeFile(t,
		`{"type":"user","cwd":"/home/u/proj","message":{"role":"user","content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}]}}`,
	)

	meta := ExtractMeta(path)
	assert.Equal(t, "part one part two", meta.FirstPrompt)
}

func TestExtractMetaMissingFile(t *testing.T) {
	meta := ExtractMeta(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.Empty(t, meta.Project)
	assert.Empty(t, meta.FirstPrompt)
}

func TestParseSession(t *testing.T) {
	path := writeFile(t,
		`{"type":"user","uuid":"u1","message":{"role":"user","content":"do the thing"}}`,
		`{"type":"assistant","uuid":"a1","message":{"role":"assistant","model":"m-1","content":[{"type":"text","text":"on it"}]}}`,
		`{"type":"assistant","uuid":"a2","message":{"role":"assistant","model":"m-2","content":[{"type":"text","text":"done"}]}}`,
		`{"type":"summary","summary":"ignored"}`,
	)

	messages, model := ParseSession(path)
	require.Len(t, messages, 3)
	assert.Equal(t, "m-2", model, "most recent assistant model wins")
	assert.Equal(t, "u1", messages[0].UUID)
	assert.Equal(t, "on it", messages[1].Blocks[0].Text)
}

func TestParseSessionDropsEmptyTurns(t *testing.T) {
	path := writeFile(t,
		`{"type":"user","message":{"role":"user","content":""}}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":""}]}}`,
		`{"type":"user","message":{"role":"user","content":"real"}}`,
	)

	messages, _ := ParseSession(path)
	require.Len(t, messages, 1)
	assert.Equal(t, "real", messages[0].Blocks[0].Text)
}

func TestParseSessionMissingFile(t *testing.T) {
	messages, model := ParseSession(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.Empty(t, messages)
	assert.Empty(t, model)
}
