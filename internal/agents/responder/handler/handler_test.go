package handler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intentErrors "go-intentflow/pkg/errors"
	"go-intentflow/pkg/llm/llmtest"
	"go-intentflow/pkg/models"
)

const driveLink = "https://docs.google.com/document/d/1AbC-xyz_9/edit?usp=drivesdk"

func TestSynthesizeKeepsEveryURL(t *testing.T) {
	fake := llmtest.New().Answer(llmtest.Synthesis, "Your latest document is the Q3 plan (docs.google.com/document/d/1AbC).")
	h := New(fake, time.Second, 5)

	answer, err := h.Synthesize(context.Background(), "what is my latest doc?", []models.ToolResult{
		{Tool: "drive_recent", Success: true, Text: "Q3 plan - " + driveLink},
		{Tool: "gmail_recent", Success: false, Error: "timeout", Text: "https://should.not/appear"},
	})
	require.NoError(t, err)

	assert.Contains(t, answer, driveLink)
	assert.NotContains(t, answer, "should.not")

	calls := fake.Calls(llmtest.Synthesis)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Vars["Results"], "[drive_recent]")
	assert.NotContains(t, calls[0].Vars["Results"], "gmail_recent")
}

func TestSynthesizeKeepsURLsWithPunctuation(t *testing.T) {
	const (
		wikiLink   = "https://en.wikipedia.org/wiki/Python_(programming_language)"
		searchLink = "https://example.com/search?q=a'b&page=2"
	)
	fake := llmtest.New().Answer(llmtest.Synthesis, "Python is a language.")
	answer, err := New(fake, time.Second, 5).Synthesize(context.Background(), "what is python?", []models.ToolResult{
		{Tool: "web_search", Success: true, Text: "Result: " + wikiLink + " (wiki)"},
		{Tool: "drive_search", Success: true, Data: map[string]any{"url": searchLink}},
	})
	require.NoError(t, err)

	assert.Contains(t, answer, "\n- "+wikiLink+"\n")
	assert.True(t, strings.HasSuffix(answer, "\n- "+searchLink))
}

func TestSynthesizeDoesNotDuplicateURLs(t *testing.T) {
	fake := llmtest.New().Answer(llmtest.Synthesis, "Here it is: "+driveLink+".")
	answer, err := New(fake, time.Second, 5).Synthesize(context.Background(), "q", []models.ToolResult{
		{Tool: "drive_search", Success: true, Data: map[string]any{"url": driveLink}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Here it is: "+driveLink+".", answer)
}

func TestSynthesizeWithoutResults(t *testing.T) {
	fake := llmtest.New()
	_, err := New(fake, time.Second, 5).Synthesize(context.Background(), "q", []models.ToolResult{
		{Tool: "gmail_recent", Success: false},
	})
	require.Error(t, err)
	assert.True(t, intentErrors.Is(err, intentErrors.CategorySynthesis))
	assert.Empty(t, fake.Calls(""))
}

func TestAnswer(t *testing.T) {
	fake := llmtest.New().Answer(llmtest.DirectAnswer, "It is sunny.")
	h := New(fake, time.Second, 5)

	answer, err := h.Answer(context.Background(), "weather?", nil, "Sunny, 24C - https://weather.example/today")
	require.NoError(t, err)
	assert.Contains(t, answer, "https://weather.example/today")
	assert.Contains(t, fake.Calls(llmtest.DirectAnswer)[0].Vars["SearchResults"], "Web search results")

	answer, err = h.Answer(context.Background(), "capital of France?", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "It is sunny.", answer)
	assert.Equal(t, "", fake.Calls(llmtest.DirectAnswer)[1].Vars["SearchResults"])
}

func TestAnswerFromContext(t *testing.T) {
	fake := llmtest.New().Answer(llmtest.ContextAnswer, "They are about the Q3 budget.")
	history := []models.Message{{Role: "assistant", Content: "I found 3 emails from John about the Q3 budget."}}

	answer, err := New(fake, time.Second, 5).AnswerFromContext(context.Background(), "what are they about?", history)
	require.NoError(t, err)
	assert.Equal(t, "They are about the Q3 budget.", answer)
	assert.Contains(t, fake.Calls(llmtest.ContextAnswer)[0].Vars["History"], "assistant: I found 3 emails")
}

func TestCompleteErrors(t *testing.T) {
	for name, fake := range map[string]*llmtest.Fake{
		"llm":   llmtest.New().Fail(llmtest.ContextAnswer, errors.New("down")),
		"empty": llmtest.New().Answer(llmtest.ContextAnswer, "  "),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(fake, time.Second, 5).AnswerFromContext(context.Background(), "q", nil)
			require.Error(t, err)
			assert.True(t, intentErrors.Is(err, intentErrors.CategorySynthesis))
		})
	}
}
