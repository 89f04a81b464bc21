// Package types defines the transcript record schema for session JSONL files
// and the conversion into displayable messages. Each line of a session file is
// one Record; the `type` field acts as the discriminator.
package types

import "encoding/json"

// Record type discriminators. Lines with any other type are ignored.
const (
	RecordTypeUser      = "user"
	RecordTypeAssistant = "assistant"
)

// Record is one line of a session transcript file.
type Record struct {
	Type      string        `json:"type"`
	UUID      string        `json:"uuid,omitempty"`
	Timestamp string        `json:"timestamp,omitempty"`
	Cwd       string        `json:"cwd,omitempty"`
	IsMeta    bool          `json:"isMeta,omitempty"`
	Message   RecordMessage `json:"message"`
}

// RecordMessage is the message payload of a record. Content is either a plain
// string or a list of typed content blocks.
type RecordMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
	Model   string `json:"model,omitempty"`
}

// ParseRecord parses a single JSONL line. The caller decides what to do with
// unknown record types; malformed lines return an error and are skipped.
func ParseRecord(line []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// IsConversational reports whether the record is a user or assistant turn.
func (r *Record) IsConversational() bool {
	return r.Type == RecordTypeUser || r.Type == RecordTypeAssistant
}

// IsUserPrompt reports whether the record is a user-authored, non-meta message
// with non-empty text, i.e. a candidate for a conversation's first prompt.
func (r *Record) IsUserPrompt() bool {
	if r.Type != RecordTypeUser || r.IsMeta {
		return false
	}
	return r.PromptText() != ""
}

// PromptText returns the plain text of the record's message content: the
// string itself, or the concatenated text blocks of a block list.
func (r *Record) PromptText() string {
	switch c := r.Message.Content.(type) {
	case string:
		return c
	case []any:
		var text string
		for _, raw := range c {
			block, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if block["type"] == "text" {
				if t, ok := block["text"].(string); ok {
					text += t
				}
			}
		}
		return text
	}
	return ""
}
