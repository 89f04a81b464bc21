package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Block kinds form a closed set; anything unrecognized normalizes to
// BlockOther rather than leaking raw block types to clients.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
	BlockReasoning  = "reasoning"
	BlockOther      = "other"
)

// RoleTool is assigned to messages whose blocks are all tool results.
const RoleTool = "tool"

// Message is a display-ready conversation turn.
type Message struct {
	Role      string  `json:"role"`
	UUID      string  `json:"uuid,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
	Blocks    []Block `json:"blocks"`
}

// Block is one normalized content block of a Message.
type Block struct {
	Kind      string `json:"kind"`
	Text      string `json:"text,omitempty"`
	ToolName  string `json:"toolName,omitempty"`
	ToolInput string `json:"toolInput,omitempty"`
	ToolUseID string `json:"toolUseId,omitempty"`
	IsError   bool   `json:"isError,omitempty"`
}

// ToMessage converts a record into a display message. Returns nil when the
// record is not a conversational turn or when no blocks survive
// normalization.
func (r *Record) ToMessage() *Message {
	if !r.IsConversational() {
		return nil
	}

	blocks := normalizeContent(r.Message.Content)
	if len(blocks) == 0 {
		return nil
	}

	role := r.Message.Role
	if role == "" {
		role = r.Type
	}
	if allToolResults(blocks) {
		role = RoleTool
	}

	return &Message{
		Role:      role,
		UUID:      r.UUID,
		Timestamp: r.Timestamp,
		Blocks:    blocks,
	}
}

// allToolResults reports whether every block is a tool result. Callers must
// ensure blocks is non-empty.
func allToolResults(blocks []Block) bool {
	for _, b := range blocks {
		if b.Kind != BlockToolResult {
			return false
		}
	}
	return true
}

// normalizeContent converts raw message content into the closed block set.
func normalizeContent(raw any) []Block {
	switch c := raw.(type) {
	case string:
		if c == "" {
			return nil
		}
		return []Block{{Kind: BlockText, Text: c}}
	case []any:
		var blocks []Block
		for _, item := range c {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if b := normalizeBlock(m); b != nil {
				blocks = append(blocks, *b)
			}
		}
		return blocks
	}
	return nil
}

// normalizeBlock converts one raw content block. Returns nil for blocks that
// carry nothing displayable.
func normalizeBlock(m map[string]any) *Block {
	blockType, _ := m["type"].(string)

	switch blockType {
	case "text":
		text, _ := m["text"].(string)
		if text == "" {
			return nil
		}
		return &Block{Kind: BlockText, Text: text}

	case "tool_use":
		return &Block{
			Kind:      BlockToolUse,
			ToolName:  getString(m, "name"),
			ToolUseID: getString(m, "id"),
			ToolInput: stringifyInput(m["input"]),
		}

	case "tool_result":
		isError, _ := m["is_error"].(bool)
		return &Block{
			Kind:      BlockToolResult,
			ToolUseID: getString(m, "tool_use_id"),
			Text:      stringifyToolResult(m["content"]),
			IsError:   isError,
		}

	case "thinking", "analysis":
		text, _ := m["thinking"].(string)
		if text == "" {
			text, _ = m["analysis"].(string)
		}
		if text == "" {
			text, _ = m["text"].(string)
		}
		if text == "" {
			return nil
		}
		return &Block{Kind: BlockReasoning, Text: text}

	case "":
		return nil

	default:
		return &Block{Kind: BlockOther, Text: getString(m, "text")}
	}
}

// stringifyInput serializes a tool_use input to readable form.
func stringifyInput(input any) string {
	if input == nil {
		return ""
	}
	if s, ok := input.(string); ok {
		return s
	}
	data, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", input)
	}
	return string(data)
}

// stringifyToolResult flattens tool_result content to a string. Content is
// usually a string or a list of text blocks; anything else is serialized.
func stringifyToolResult(raw any) string {
	switch c := raw.(type) {
	case nil:
		return ""
	case string:
		return c
	case []any:
		var sb strings.Builder
		for _, item := range c {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if m["type"] == "text" {
				if t, ok := m["text"].(string); ok {
					sb.WriteString(t)
				}
			}
		}
		return sb.String()
	default:
		data, err := json.Marshal(raw)
		if err != nil {
			return fmt.Sprintf("%v", raw)
		}
		return string(data)
	}
}

// getString safely extracts a string field from a raw block map.
func getString(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
