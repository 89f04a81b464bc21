// Package transcript reads session JSONL files: a cheap streaming metadata
// extraction for the index hot path, and a full parse for the session loader.
package transcript

import (
	"bufio"
	"os"

	"convwatch/internal/types"
)

// Scanner sizing mirrors the transcript format: lines are usually small but
// pasted images can push a single line past a megabyte.
const (
	scanBufSize = 64 * 1024
	maxLineSize = 10 * 1024 * 1024
)

// maxMetaLines bounds how far ExtractMeta reads into a file before giving up.
// Transcripts can be arbitrarily large and only the earliest records matter.
const maxMetaLines = 100

// Meta is the summary metadata recovered from the head of a session file.
type Meta struct {
	// Project is the cwd of the first record that carries one.
	Project string
	// FirstPrompt is the text of the first user-authored non-meta message.
	FirstPrompt string
}

// ExtractMeta streams a session file line by line and stops as soon as both
// fields are found or maxMetaLines is reached. Best effort: malformed lines
// are skipped, and if the file disappears or errors mid-read the fields found
// so far are returned.
func ExtractMeta(path string) Meta {
	var meta Meta

	f, err := os.Open(path)
	if err != nil {
		return meta
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, scanBufSize), maxLineSize)

	lines := 0
	for scanner.Scan() {
		lines++
		if lines > maxMetaLines {
			break
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		rec, err := types.ParseRecord(line)
		if err != nil {
			continue
		}

		if meta.Project == "" && rec.Cwd != "" {
			meta.Project = rec.Cwd
		}
		if meta.FirstPrompt == "" && rec.IsUserPrompt() {
			meta.FirstPrompt = rec.PromptText()
		}
		if meta.Project != "" && meta.FirstPrompt != "" {
			break
		}
	}

	return meta
}

// ParseSession fully parses a session file into display messages and returns
// the model identifier of the most recent assistant record, if any. Records
// that normalize to zero blocks are dropped. Best effort: an unreadable file
// yields an empty message list.
func ParseSession(path string) ([]types.Message, string) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, scanBufSize), maxLineSize)

	var messages []types.Message
	var model string
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		rec, err := types.ParseRecord(line)
		if err != nil {
			continue
		}

		if rec.Type == types.RecordTypeAssistant && rec.Message.Model != "" {
			model = rec.Message.Model
		}
		if msg := rec.ToMessage(); msg != nil {
			messages = append(messages, *msg)
		}
	}

	return messages, model
}
