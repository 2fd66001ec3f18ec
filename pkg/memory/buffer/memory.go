package buffer

import (
	"strings"

	"go-intentflow/pkg/models"
)

// Memories is a read-only window over a conversation, newest turn last.
type Memories struct {
	Items []models.Message `json:"memories"`
}

func New(history []models.Message) Memories {
	return Memories{Items: history}
}

// Recent returns the last n turns (all of them when n <= 0 or fewer exist).
func (m Memories) Recent(n int) Memories {
	if n <= 0 || len(m.Items) <= n {
		return m
	}
	return Memories{Items: m.Items[len(m.Items)-n:]}
}

func (m Memories) Empty() bool {
	return len(m.Items) == 0
}

// Text joins the turn contents, lower-cased, for marker scanning.
func (m Memories) Text() string {
	parts := make([]string, 0, len(m.Items))
	for _, it := range m.Items {
		parts = append(parts, strings.ToLower(it.Content))
	}
	return strings.Join(parts, "\n")
}

// Transcript renders "role: content" lines for prompts.
func (m Memories) Transcript() string {
	if m.Empty() {
		return "(no previous conversation)"
	}
	var b strings.Builder
	for i, it := range m.Items {
		if i > 0 {
			b.WriteByte('\n')
		}
		role := it.Role
		if role == "" {
			role = "user"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(it.Content)
	}
	return b.String()
}
