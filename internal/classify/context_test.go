package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-intentflow/pkg/models"
	"go-intentflow/pkg/tools"
)

func assistant(content string) models.Message {
	return models.Message{Role: "assistant", Content: content}
}

func TestContextClassifierResolvesFollowUp(t *testing.T) {
	c := NewContextClassifier(5, 0.8)
	tier1 := NewPatternClassifier().Classify("What are they about?")

	tests := []struct {
		name       string
		history    []models.Message
		kind       models.Kind
		confidence float64
		tools      []string
	}{
		{
			name:       "email history",
			history:    []models.Message{assistant("I found 3 emails from John about the Q3 budget.")},
			kind:       models.PersonalData,
			confidence: 0.75,
			tools:      []string{tools.GmailRecent},
		},
		{
			name: "most mentioned category first",
			history: []models.Message{
				assistant("Your next meeting is the design review."),
				{Role: "user", Content: "and the files for it?"},
				assistant("There are 2 files in the shared drive folder and 1 event tomorrow."),
			},
			kind:       models.PersonalData,
			confidence: 0.75,
			tools:      []string{tools.DriveRecent, tools.CalendarUpcoming},
		},
		{
			name:       "factual history",
			history:    []models.Message{assistant("The population of France is about 68 million, according to INSEE.")},
			kind:       models.GeneralKnowledge,
			confidence: 0.75,
		},
		{
			name:       "history without markers",
			history:    []models.Message{assistant("Hello! How can I help?")},
			kind:       models.ContextDependent,
			confidence: 0.55,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify("What are they about?", tt.history, tier1)
			assert.Equal(t, tt.kind, got.Kind)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-9)
			assert.Equal(t, tt.tools, got.SuggestedTools)
			assert.Equal(t, 2, got.TierUsed)
		})
	}
}

func TestContextClassifierOnlyBoosts(t *testing.T) {
	c := NewContextClassifier(5, 0.8)
	history := []models.Message{assistant("You have 2 unread emails in your inbox.")}

	prior := NewPatternClassifier().Classify("Find emails from John about the budget")
	got := c.Classify("", history, prior)
	assert.Equal(t, models.PersonalData, got.Kind)
	assert.InDelta(t, 0.5, got.Confidence, 1e-9)
	assert.Equal(t, []string{tools.GmailSearch}, got.SuggestedTools)

	general := models.Classification{Kind: models.GeneralKnowledge, Confidence: 0.3, TierUsed: 1}
	got = c.Classify("", history, general)
	assert.Equal(t, models.GeneralKnowledge, got.Kind, "history never inverts a kind")
	assert.InDelta(t, 0.3, got.Confidence, 1e-9)
	assert.Equal(t, 2, got.TierUsed)
}

func TestContextClassifierSkipsConfidentInput(t *testing.T) {
	c := NewContextClassifier(5, 0.8)
	prior := models.Classification{Kind: models.PersonalData, Confidence: 0.9, TierUsed: 1}
	assert.Equal(t, prior, c.Classify("x", []models.Message{assistant("emails")}, prior))
}

func TestContextClassifierWindow(t *testing.T) {
	c := NewContextClassifier(2, 0.8)
	history := []models.Message{
		assistant("You have 4 emails."),
		assistant("ok"),
		assistant("sure"),
	}
	tier1 := NewPatternClassifier().Classify("What are they about?")
	got := c.Classify("What are they about?", history, tier1)
	assert.Equal(t, models.ContextDependent, got.Kind, "turns outside the window are ignored")
}
