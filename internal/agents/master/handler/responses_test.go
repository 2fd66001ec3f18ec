package handler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	intentErrors "go-intentflow/pkg/errors"
	"go-intentflow/pkg/models"
)

func TestBlockedMessage(t *testing.T) {
	assert.Equal(t, msgNoTools, blockedMessage(nil))
	assert.Equal(t,
		"Access to gmail, drive is disabled in your settings, so I can't look that up for you. Enable it if you want me to use it.",
		blockedMessage([]models.Category{models.CategoryGmail, models.CategoryDrive}))
}

func TestToolsFailedMessage(t *testing.T) {
	msg := toolsFailedMessage([]string{"gmail_search", "gmail_read"})
	assert.Contains(t, msg, "(gmail_search, gmail_read)")
}

func TestDegradedMessage(t *testing.T) {
	tests := map[string]struct {
		err  error
		want string
	}{
		"empty utterance":     {intentErrors.New(intentErrors.CategoryInvalidInput, codeEmptyUtterance, "empty"), msgEmpty},
		"other invalid input": {intentErrors.New(intentErrors.CategoryInvalidInput, "invalid_policy", "bad"), msgDegraded},
		"synthesis":           {fmt.Errorf("answer: %w", intentErrors.Wrap(errors.New("502"), intentErrors.CategorySynthesis, "llm_call")), msgNoAnswer},
		"planner":             {intentErrors.New(intentErrors.CategoryDegraded, "plan_no_json", "no json"), msgDegraded},
		"uncategorized":       {errors.New("boom"), msgDegraded},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, degradedMessage(tt.err))
		})
	}
}
