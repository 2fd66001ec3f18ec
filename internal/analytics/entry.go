package analytics

import (
	"time"

	"go-intentflow/pkg/models"
)

type EntryType string

const (
	EntryTool           EntryType = "tool"
	EntryClassification EntryType = "classification"
	EntryApproach       EntryType = "approach"
	EntrySuggestion     EntryType = "suggestion"
	EntryError          EntryType = "error"
)

// Entry is one immutable ledger record. Which fields are meaningful depends on Type.
type Entry struct {
	Type      EntryType     `json:"type"`
	Time      time.Time     `json:"time"`
	RequestID string        `json:"request_id,omitempty"`
	UserID    string        `json:"user_id,omitempty"`
	Tool      string        `json:"tool,omitempty"`
	Success   bool          `json:"success"`
	Latency   time.Duration `json:"latency,omitempty"`
	Kind      models.Kind   `json:"kind,omitempty"`
	Tier      int           `json:"tier,omitempty"`
	// Confidence is the classification confidence for classification entries.
	Confidence float64 `json:"confidence,omitempty"`
	Approach   string  `json:"approach,omitempty"`
	// Quality is only set on approach entries with Evaluated=true.
	Quality   float64 `json:"quality,omitempty"`
	Evaluated bool    `json:"evaluated,omitempty"`
	// Detail holds the error message or the rendered suggestion.
	Detail string `json:"detail,omitempty"`
	// ErrorCategory and ErrorCode classify error entries.
	ErrorCategory string `json:"error_category,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
}
