// Package tools holds the catalog of invocable tools and the executor contract the engine calls
// them through. Concrete Gmail/Drive/Calendar/search adapters live outside the engine and are
// plugged in with a Dispatcher.
package tools

import (
	"context"

	"go-intentflow/pkg/models"
)

const (
	GmailRecent      = "gmail_recent"
	GmailSearch      = "gmail_search"
	GmailRead        = "gmail_read"
	DriveRecent      = "drive_recent"
	DriveSearch      = "drive_search"
	DriveRead        = "drive_read"
	CalendarUpcoming = "calendar_upcoming"
	CalendarSearch   = "calendar_search"
	WebSearch        = "web_search"
)

type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    models.Category `json:"category"`
	// Parameters is a JSON Schema document for the call arguments.
	Parameters string `json:"parameters"`
	// QueryParam names the argument that receives the user's query when the tool is
	// called straight from a classification, without a plan.
	QueryParam string         `json:"-"`
	Defaults   map[string]any `json:"-"`
	// Alternatives are same-category tools worth trying when this one performs badly.
	Alternatives []string `json:"-"`
}

// Executor is the tool-execution collaborator. Implementations report failures inside the
// result and never panic on unknown tools.
type Executor interface {
	Call(ctx context.Context, name string, params map[string]any) models.ToolResult
}

func DefaultCatalog() []Definition {
	return []Definition{
		{
			Name:         GmailRecent,
			Description:  "List the most recent emails in the user's inbox.",
			Category:     models.CategoryGmail,
			Parameters:   `{"type":"object","properties":{"max_results":{"type":"integer","minimum":1,"maximum":50}},"additionalProperties":false}`,
			Defaults:     map[string]any{"max_results": 10},
			Alternatives: []string{GmailSearch},
		},
		{
			Name:         GmailSearch,
			Description:  "Search the user's email with a Gmail query string (sender, subject, keywords).",
			Category:     models.CategoryGmail,
			Parameters:   `{"type":"object","properties":{"query":{"type":"string","minLength":1},"max_results":{"type":"integer","minimum":1,"maximum":50}},"required":["query"],"additionalProperties":false}`,
			QueryParam:   "query",
			Defaults:     map[string]any{"max_results": 10},
			Alternatives: []string{GmailRecent},
		},
		{
			Name:        GmailRead,
			Description: "Fetch the full content of one email by message id.",
			Category:    models.CategoryGmail,
			Parameters:  `{"type":"object","properties":{"message_id":{"type":"string","minLength":1}},"required":["message_id"],"additionalProperties":false}`,
		},
		{
			Name:         DriveRecent,
			Description:  "List recently modified files in the user's Google Drive.",
			Category:     models.CategoryDrive,
			Parameters:   `{"type":"object","properties":{"max_results":{"type":"integer","minimum":1,"maximum":50}},"additionalProperties":false}`,
			Defaults:     map[string]any{"max_results": 10},
			Alternatives: []string{DriveSearch},
		},
		{
			Name:         DriveSearch,
			Description:  "Search files in the user's Google Drive by name or content.",
			Category:     models.CategoryDrive,
			Parameters:   `{"type":"object","properties":{"query":{"type":"string","minLength":1},"max_results":{"type":"integer","minimum":1,"maximum":50}},"required":["query"],"additionalProperties":false}`,
			QueryParam:   "query",
			Defaults:     map[string]any{"max_results": 10},
			Alternatives: []string{DriveRecent},
		},
		{
			Name:        DriveRead,
			Description: "Read the content of one Drive file by file id.",
			Category:    models.CategoryDrive,
			Parameters:  `{"type":"object","properties":{"file_id":{"type":"string","minLength":1}},"required":["file_id"],"additionalProperties":false}`,
		},
		{
			Name:         CalendarUpcoming,
			Description:  "List upcoming events from the user's primary calendar.",
			Category:     models.CategoryCalendar,
			Parameters:   `{"type":"object","properties":{"days":{"type":"integer","minimum":1,"maximum":90},"max_results":{"type":"integer","minimum":1,"maximum":50}},"additionalProperties":false}`,
			Defaults:     map[string]any{"days": 7, "max_results": 10},
			Alternatives: []string{CalendarSearch},
		},
		{
			Name:         CalendarSearch,
			Description:  "Search calendar events by keyword.",
			Category:     models.CategoryCalendar,
			Parameters:   `{"type":"object","properties":{"query":{"type":"string","minLength":1},"max_results":{"type":"integer","minimum":1,"maximum":50}},"required":["query"],"additionalProperties":false}`,
			QueryParam:   "query",
			Defaults:     map[string]any{"max_results": 10},
			Alternatives: []string{CalendarUpcoming},
		},
		{
			Name:        WebSearch,
			Description: "Search the public web for current information; results include links.",
			Category:    models.CategoryWeb,
			Parameters:  `{"type":"object","properties":{"query":{"type":"string","minLength":1},"max_results":{"type":"integer","minimum":1,"maximum":20}},"required":["query"],"additionalProperties":false}`,
			QueryParam:  "query",
			Defaults:    map[string]any{"max_results": 5},
		},
	}
}
