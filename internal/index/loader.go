package index

import (
	"os"
	"path/filepath"

	"convwatch/internal/transcript"
	"convwatch/internal/types"
)

// LoadSession resolves a session id to its transcript file and fully parses
// it. Resolution order: the deterministic path when project is given, then
// the cache, then one forced rescan. Nothing resolving yields an empty
// message list — "no messages" and "unknown session" look the same to
// callers. The returned model is the most recent assistant record's model
// identifier, if any.
func (ix *Index) LoadSession(sessionID, project string) ([]types.Message, string) {
	path := ix.resolveSessionPath(sessionID, project)
	if path == "" {
		return []types.Message{}, ""
	}

	messages, model := transcript.ParseSession(path)
	if messages == nil {
		messages = []types.Message{}
	}
	return messages, model
}

// resolveSessionPath finds the transcript file for a session id, verifying
// existence on disk at every step — the cache is never trusted blindly for
// path resolution.
func (ix *Index) resolveSessionPath(sessionID, project string) string {
	if !validSessionID(sessionID) {
		return ""
	}

	if project != "" {
		candidate := filepath.Join(ix.projectsDir, encodeProjectDir(project), sessionID+".jsonl")
		if isRegularFile(candidate) {
			return candidate
		}
	}

	if entry, ok := ix.lookup(sessionID); ok && isRegularFile(entry.filePath) {
		return entry.filePath
	}

	ix.Refresh()
	if entry, ok := ix.lookup(sessionID); ok && isRegularFile(entry.filePath) {
		return entry.filePath
	}

	return ""
}

// validSessionID rejects ids that could traverse outside the projects dir.
// Session ids are generated UUIDs, so the alphabet is strict.
func validSessionID(id string) bool {
	if id == "" {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

// isRegularFile reports whether path is an existing regular file.
func isRegularFile(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
