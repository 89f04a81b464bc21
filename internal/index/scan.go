package index

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// scanConcurrency bounds how many project directories are read in parallel.
const scanConcurrency = 4

// fingerprintPromptLen bounds how much of the first prompt feeds the
// snapshot fingerprint.
const fingerprintPromptLen = 64

// scan performs one full rescan: enumerate project directories, stat every
// session file, reuse fresh cache entries, re-extract stale ones, and commit
// the replacement map atomically. A failure on any one directory or file is
// skipped; the scan always completes over the remaining items.
func (ix *Index) scan() ([]ConversationSummary, bool) {
	ix.mu.RLock()
	prev := ix.cache
	ix.mu.RUnlock()

	var projectDirs []string
	entries, err := os.ReadDir(ix.projectsDir)
	if err != nil {
		ix.log.WithError(err).Debug("projects dir unreadable, treating as empty")
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		projectDirs = append(projectDirs, filepath.Join(ix.projectsDir, entry.Name()))
	}

	// Each directory builds its entries in isolation; nothing touches the
	// committed cache until the whole scan is done.
	next := make(map[string]*cachedEntry)
	var activeDirs []string
	var nextMu sync.Mutex

	var g errgroup.Group
	g.SetLimit(scanConcurrency)
	for _, dir := range projectDirs {
		g.Go(func() error {
			found := ix.scanProjectDir(dir, prev)
			if len(found) == 0 {
				return nil
			}
			nextMu.Lock()
			for id, e := range found {
				// Last write wins for duplicate session ids.
				next[id] = e
			}
			// Only directories holding sessions stay watched; an emptied
			// project leaves the watch set.
			activeDirs = append(activeDirs, dir)
			nextMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	snapshot := make([]ConversationSummary, 0, len(next))
	for _, e := range next {
		snapshot = append(snapshot, e.summary)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		if !snapshot[i].UpdatedAt.Equal(snapshot[j].UpdatedAt) {
			return snapshot[i].UpdatedAt.After(snapshot[j].UpdatedAt)
		}
		return snapshot[i].SessionID < snapshot[j].SessionID
	})

	fp := fingerprint(snapshot)

	ix.mu.Lock()
	changed := fp != ix.fingerprint
	ix.cache = next
	ix.snapshot = snapshot
	ix.fingerprint = fp
	ix.mu.Unlock()

	ix.resyncWatches(activeDirs)

	// Fan-out happens at the commit point so every changed refresh reaches
	// subscribers, whichever path requested it.
	if changed {
		ix.notify(snapshot)
	}

	ix.log.WithFields(map[string]any{
		"sessions": len(snapshot),
		"projects": len(projectDirs),
		"changed":  changed,
	}).Debug("scan complete")

	return snapshot, changed
}

// scanProjectDir enumerates one project directory. A cached entry is reused
// without re-reading the file iff path, mtime and size all match; any
// mismatch forces re-extraction.
func (ix *Index) scanProjectDir(dir string, prev map[string]*cachedEntry) map[string]*cachedEntry {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	found := make(map[string]*cachedEntry)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		// agent-*.jsonl files are subagent task logs, not conversations.
		if strings.HasPrefix(entry.Name(), "agent-") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		sessionID := strings.TrimSuffix(entry.Name(), ".jsonl")
		path := filepath.Join(dir, entry.Name())
		mtime := info.ModTime()
		size := info.Size()

		if old, ok := prev[sessionID]; ok &&
			old.filePath == path && old.mtime.Equal(mtime) && old.size == size {
			found[sessionID] = &cachedEntry{
				summary: ConversationSummary{
					SessionID:   sessionID,
					Project:     old.summary.Project,
					FirstPrompt: old.summary.FirstPrompt,
					UpdatedAt:   mtime,
				},
				filePath:   path,
				projectDir: dir,
				mtime:      mtime,
				size:       size,
			}
			continue
		}

		meta := ix.extractMeta(path)
		found[sessionID] = &cachedEntry{
			summary: ConversationSummary{
				SessionID:   sessionID,
				Project:     meta.Project,
				FirstPrompt: meta.FirstPrompt,
				UpdatedAt:   mtime,
			},
			filePath:   path,
			projectDir: dir,
			mtime:      mtime,
			size:       size,
		}
	}
	return found
}

// fingerprint builds a deterministic digest of a snapshot in order. Two
// refreshes that produce the same fingerprint carry no meaningful change.
func fingerprint(snapshot []ConversationSummary) string {
	var sb strings.Builder
	for _, s := range snapshot {
		prompt := s.FirstPrompt
		if len(prompt) > fingerprintPromptLen {
			prompt = prompt[:fingerprintPromptLen]
		}
		fmt.Fprintf(&sb, "%s|%d|%s|%s\n", s.SessionID, s.UpdatedAt.UnixMilli(), s.Project, prompt)
	}
	return sb.String()
}
