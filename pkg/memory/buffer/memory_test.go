package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-intentflow/pkg/models"
)

func TestRecent(t *testing.T) {
	var history []models.Message
	for _, c := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		history = append(history, models.Message{Role: "user", Content: c})
	}
	m := New(history)

	assert.Len(t, m.Recent(5).Items, 5)
	assert.Equal(t, "c", m.Recent(5).Items[0].Content)
	assert.Len(t, m.Recent(0).Items, 7)
	assert.Len(t, m.Recent(10).Items, 7)
}

func TestTranscript(t *testing.T) {
	assert.Equal(t, "(no previous conversation)", New(nil).Transcript())

	m := New([]models.Message{{Role: "user", Content: "Hi"}, {Content: "x"}, {Role: "assistant", Content: "Found 3 Emails"}})
	assert.Equal(t, "user: Hi\nuser: x\nassistant: Found 3 Emails", m.Transcript())
	assert.Equal(t, "hi\nx\nfound 3 emails", m.Text())
}
