// Package index maintains the live in-memory conversation index over a
// projects directory of session JSONL files. One Index owns the cache map,
// the filesystem watches, and the subscriber set; it is constructed once and
// shared by every request path.
package index

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"convwatch/internal/logging"
	"convwatch/internal/transcript"
)

// ConversationSummary is the public per-session row of a snapshot.
type ConversationSummary struct {
	SessionID   string    `json:"sessionId"`
	Project     string    `json:"project"`
	FirstPrompt string    `json:"firstPrompt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// cachedEntry is the internal superset kept for staleness comparison. It is
// never exposed; freshness is judged on filePath+mtime+size alone.
type cachedEntry struct {
	summary    ConversationSummary
	filePath   string
	projectDir string
	mtime      time.Time
	size       int64
}

// Index is the conversation index. All fields are private; access goes
// through Refresh, Snapshot, LoadSession, Subscribe and Unsubscribe.
type Index struct {
	projectsDir string
	debounce    time.Duration
	log         *logrus.Entry

	// extractMeta reads a session file's summary metadata. A field so tests
	// can observe and gate extraction.
	extractMeta func(path string) transcript.Meta

	// flight collapses concurrent refreshes into one scan.
	flight singleflight.Group

	// mu guards the committed scan state.
	mu          sync.RWMutex
	cache       map[string]*cachedEntry
	snapshot    []ConversationSummary
	fingerprint string

	// watchMu guards the watch/subscriber lifecycle.
	watchMu       sync.Mutex
	watcher       *fsnotify.Watcher
	watchedDirs   map[string]bool
	subscribers   map[string]chan []ConversationSummary
	debounceTimer *time.Timer
	watchCancel   context.CancelFunc
}

// New creates an Index over projectsDir. debounce is the watch coalescing
// window; values <= 0 fall back to 150ms.
func New(projectsDir string, debounce time.Duration) *Index {
	if debounce <= 0 {
		debounce = 150 * time.Millisecond
	}
	return &Index{
		projectsDir: projectsDir,
		debounce:    debounce,
		log:         logging.NewLogger("index"),
		extractMeta: transcript.ExtractMeta,
		cache:       make(map[string]*cachedEntry),
		watchedDirs: make(map[string]bool),
		subscribers: make(map[string]chan []ConversationSummary),
	}
}

// Refresh rescans the projects directory and commits a new snapshot.
// Concurrent callers collapse into one scan: a caller arriving while a scan
// is running receives that scan's result. changed reports whether the
// committed fingerprint differs from the previous one.
func (ix *Index) Refresh() (snapshot []ConversationSummary, changed bool) {
	type result struct {
		snapshot []ConversationSummary
		changed  bool
	}

	v, _, _ := ix.flight.Do("scan", func() (any, error) {
		snap, ch := ix.scan()
		return result{snapshot: snap, changed: ch}, nil
	})

	res := v.(result)
	return res.snapshot, res.changed
}

// Snapshot returns the last committed snapshot without scanning.
func (ix *Index) Snapshot() []ConversationSummary {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.snapshot
}

// lookup returns the cached entry for a session id, if present.
func (ix *Index) lookup(sessionID string) (*cachedEntry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.cache[sessionID]
	return e, ok
}

// Close releases watches, timers and subscriber channels.
func (ix *Index) Close() {
	ix.watchMu.Lock()
	defer ix.watchMu.Unlock()

	for id, ch := range ix.subscribers {
		close(ch)
		delete(ix.subscribers, id)
	}
	ix.teardownWatchesLocked()
}

// encodeProjectDir maps a project working directory to its flat directory
// name under the projects root, replacing path separators with dashes.
func encodeProjectDir(project string) string {
	return strings.ReplaceAll(project, "/", "-")
}
