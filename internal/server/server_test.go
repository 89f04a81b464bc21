package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convwatch/internal/browse"
	"convwatch/internal/index"
	"convwatch/internal/store"
)

// newTestServer wires a Server over a temp projects dir and returns it with
// its httptest host and the projects dir for seeding transcripts.
func newTestServer(t *testing.T) (*httptest.Server, string, *store.Store) {
	t.Helper()

	projectsDir := t.TempDir()
	idx := index.New(projectsDir, 50*time.Millisecond)
	t.Cleanup(idx.Close)

	st, err := store.Open(filepath.Join(t.TempDir(), "annotations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	browser := browse.New(t.TempDir(), false)
	srv := New(idx, browser, st)

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts, projectsDir, st
}

func seedSession(t *testing.T, projectsDir, project, sessionID, prompt string) {
	t.Helper()
	dir := filepath.Join(projectsDir, strings.ReplaceAll(project, "/", "-"))
	require.NoError(t, os.MkdirAll(dir, 0755))
	line := fmt.Sprintf(`{"type":"user","cwd":%q,"message":{"role":"user","content":%q}}`+"\n", project, prompt)
	require.NoError(t, os.WriteFile(filepath.Join(dir, sessionID+".jsonl"), []byte(line), 0644))
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestConversationsEndpoint(t *testing.T) {
	ts, projectsDir, st := newTestServer(t)
	seedSession(t, projectsDir, "/home/u/p", "sess-1", "first prompt")
	require.NoError(t, st.SetName("sess-1", "my session"))

	var body struct {
		Conversations []struct {
			SessionID   string `json:"sessionId"`
			Project     string `json:"project"`
			FirstPrompt string `json:"firstPrompt"`
			Name        string `json:"name"`
		} `json:"conversations"`
	}
	getJSON(t, ts.URL+"/api/conversations", &body)

	require.Len(t, body.Conversations, 1)
	assert.Equal(t, "sess-1", body.Conversations[0].SessionID)
	assert.Equal(t, "/home/u/p", body.Conversations[0].Project)
	assert.Equal(t, "first prompt", body.Conversations[0].FirstPrompt)
	assert.Equal(t, "my session", body.Conversations[0].Name)
}

func TestConversationsEndpointPrunesOrphans(t *testing.T) {
	ts, projectsDir, st := newTestServer(t)
	seedSession(t, projectsDir, "/home/u/p", "sess-live", "alive")
	require.NoError(t, st.SetName("sess-live", "keep me"))
	require.NoError(t, st.SetName("sess-deleted", "orphaned"))

	var body struct {
		Conversations []json.RawMessage `json:"conversations"`
	}
	getJSON(t, ts.URL+"/api/conversations", &body)
	require.Len(t, body.Conversations, 1)

	all, err := st.All()
	require.NoError(t, err)
	assert.Contains(t, all, "sess-live")
	assert.NotContains(t, all, "sess-deleted", "annotations for gone transcripts are pruned")
}

func TestSessionEndpoint(t *testing.T) {
	ts, projectsDir, st := newTestServer(t)
	seedSession(t, projectsDir, "/home/u/p", "sess-1", "hello there")

	var body struct {
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	getJSON(t, ts.URL+"/api/sessions/sess-1?project=/home/u/p", &body)

	require.Len(t, body.Messages, 1)
	assert.Equal(t, "user", body.Messages[0].Role)

	// Loading a session records the view.
	all, err := st.All()
	require.NoError(t, err)
	require.Contains(t, all, "sess-1")
	assert.False(t, all["sess-1"].LastViewedAt.IsZero())
}

func TestSessionEndpointUnknown(t *testing.T) {
	ts, _, _ := newTestServer(t)

	var body struct {
		Messages []json.RawMessage `json:"messages"`
	}
	getJSON(t, ts.URL+"/api/sessions/no-such-session", &body)
	assert.NotNil(t, body.Messages)
	assert.Empty(t, body.Messages)
}

func TestSetNameEndpoint(t *testing.T) {
	ts, _, st := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/sessions/sess-1/name", "application/json",
		bytes.NewBufferString(`{"name":"renamed"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	name, err := st.GetName("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", name)
}

func TestSetNameEndpointBadBody(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/sessions/sess-1/name", "application/json",
		bytes.NewBufferString(`{`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBrowseEndpointClamps(t *testing.T) {
	ts, _, _ := newTestServer(t)

	var listing struct {
		Path    string   `json:"path"`
		Parent  *string  `json:"parent"`
		Entries []string `json:"entries"`
	}
	getJSON(t, ts.URL+"/api/browse?path=/etc", &listing)

	assert.Nil(t, listing.Parent, "escaping paths clamp to the root")
	assert.NotNil(t, listing.Entries)
}

func TestWebSocketFeed(t *testing.T) {
	ts, projectsDir, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// First frame is the current snapshot, possibly empty.
	var first struct {
		Type string `json:"type"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "conversations:changed", first.Type)

	// A new transcript pushes an updated snapshot.
	seedSession(t, projectsDir, "/home/u/p", "sess-live", "live update")

	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var frame struct {
			Conversations []struct {
				SessionID string `json:"sessionId"`
			} `json:"conversations"`
		}
		require.NoError(t, conn.ReadJSON(&frame))
		if len(frame.Conversations) == 1 && frame.Conversations[0].SessionID == "sess-live" {
			return
		}
	}
}
