package models

import (
	"bytes"
	"encoding/json"
	"time"
)

type Category string

const (
	CategoryGmail    Category = "gmail"
	CategoryDrive    Category = "drive"
	CategoryCalendar Category = "calendar"
	CategoryWeb      Category = "web"
)

func AllCategories() []Category {
	return []Category{CategoryGmail, CategoryDrive, CategoryCalendar, CategoryWeb}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryGmail, CategoryDrive, CategoryCalendar, CategoryWeb:
		return true
	default:
		return false
	}
}

// ToolCall is one entry of a ToolCallPlan. Parameters may hold $stepN.field or $prev.field
// placeholders that are resolved from earlier results of the same plan.
type ToolCall struct {
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
	Purpose    string         `json:"purpose"`
}

type ToolCallPlan struct {
	NeedsTools bool       `json:"needs_tools"`
	Reasoning  string     `json:"reasoning,omitempty"`
	Steps      []ToolCall `json:"steps"`
}

// ToolResult is produced once by a tool adapter and only read afterwards.
type ToolResult struct {
	Tool    string         `json:"tool"`
	Success bool           `json:"success"`
	Text    string         `json:"payload,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Latency time.Duration  `json:"latency"`
}

// Payload renders the result for synthesis: free text when present, otherwise the structured data as JSON.
func (r ToolResult) Payload() string {
	if r.Text != "" {
		return r.Text
	}
	if len(r.Data) == 0 {
		return ""
	}
	// links in the payload must survive verbatim, so & < > stay unescaped
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.Data); err != nil {
		return ""
	}
	return string(bytes.TrimRight(b.Bytes(), "\n"))
}

func Failed(tool, reason string) ToolResult {
	return ToolResult{Tool: tool, Success: false, Error: reason}
}
