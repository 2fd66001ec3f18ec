package classify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intentErrors "go-intentflow/pkg/errors"
	"go-intentflow/pkg/llm/llmtest"
	"go-intentflow/pkg/models"
	"go-intentflow/pkg/tools"
)

func newPipeline(fake *llmtest.Fake) *Pipeline {
	var semantic *SemanticClassifier
	if fake != nil {
		semantic = NewSemanticClassifier(fake, tools.NewDefaultRegistry(), time.Second, 5)
	}
	return NewPipeline(DefaultThresholds(), 5, semantic)
}

func TestSemanticClassifier(t *testing.T) {
	fake := llmtest.New().Answer(llmtest.Classification,
		"Sure, here it is:\n```json\n"+`{"kind": "personal_data", "confidence": 0.92, "needs_tools": true,
"suggested_tools": ["gmail_search", "fax_send"], "reasoning": "asks about their inbox"}`+"\n```")
	s := NewSemanticClassifier(fake, tools.NewDefaultRegistry(), time.Second, 5)

	prior := models.Classification{Kind: models.Ambiguous, Confidence: 0.3, TierUsed: 2, Reasoning: "tier1: no dominant pattern"}
	got, err := s.Classify(context.Background(), "anything from john?", nil, prior)
	require.NoError(t, err)

	assert.Equal(t, models.PersonalData, got.Kind)
	assert.InDelta(t, 0.92, got.Confidence, 1e-9)
	assert.Equal(t, models.True, got.NeedsTools)
	assert.Equal(t, []string{tools.GmailSearch}, got.SuggestedTools, "unknown tools are dropped")
	assert.Equal(t, 3, got.TierUsed)

	calls := fake.Calls(llmtest.Classification)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Vars["Hint"], "AMBIGUOUS")
	assert.Equal(t, "(no previous conversation)", calls[0].Vars["History"])
}

func TestSemanticClassifierDefaults(t *testing.T) {
	fake := llmtest.New().Answer(llmtest.Classification, `{"kind": "GENERAL_KNOWLEDGE", "confidence": 7}`)
	s := NewSemanticClassifier(fake, tools.NewDefaultRegistry(), time.Second, 5)
	got, err := s.Classify(context.Background(), "x", nil, models.Classification{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Confidence, "confidence is clamped")
	assert.Equal(t, models.Unknown, got.NeedsTools)

	fake = llmtest.New().Answer(llmtest.Classification, `{"kind": "CURRENT_INFO"}`)
	s = NewSemanticClassifier(fake, tools.NewDefaultRegistry(), time.Second, 5)
	got, err = s.Classify(context.Background(), "x", nil, models.Classification{})
	require.NoError(t, err)
	assert.Equal(t, defaultSemanticConfidence, got.Confidence)
}

func TestSemanticClassifierFailures(t *testing.T) {
	tests := []struct {
		name string
		fake *llmtest.Fake
		code string
	}{
		{"llm error", llmtest.New().Fail(llmtest.Classification, errors.New("502 bad gateway")), "llm_call"},
		{"prose only", llmtest.New().Answer(llmtest.Classification, "I think it is personal data."), "no_json"},
		{"unknown kind", llmtest.New().Answer(llmtest.Classification, `{"kind": "SMALL_TALK"}`), "bad_kind"},
		{"timeout", llmtest.New().Block(llmtest.Classification), "llm_call"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSemanticClassifier(tt.fake, tools.NewDefaultRegistry(), 20*time.Millisecond, 5)
			_, err := s.Classify(context.Background(), "x", nil, models.Classification{})
			require.Error(t, err)
			assert.True(t, intentErrors.Is(err, intentErrors.CategoryClassification))
			assert.Equal(t, tt.code, intentErrors.CodeOf(err))
		})
	}
}

func TestPipelineScenarios(t *testing.T) {
	t.Run("general knowledge stops at tier 1", func(t *testing.T) {
		fake := llmtest.New()
		c := newPipeline(fake).Classify(context.Background(), "What is the capital of France?", nil)
		assert.Equal(t, models.GeneralKnowledge, c.Kind)
		assert.Equal(t, 1, c.TierUsed)
		assert.Equal(t, models.False, c.NeedsTools)
		assert.Empty(t, fake.Calls(""))
	})

	t.Run("personal data suggests gmail_recent", func(t *testing.T) {
		c := newPipeline(llmtest.New()).Classify(context.Background(), "Show me my recent emails", nil)
		assert.Equal(t, models.PersonalData, c.Kind)
		assert.Contains(t, c.SuggestedTools, tools.GmailRecent)
		assert.Equal(t, 1, c.TierUsed)
	})

	t.Run("follow-up resolved from history", func(t *testing.T) {
		fake := llmtest.New()
		history := []models.Message{assistant("... found 3 emails from John about the Q3 budget ...")}
		c := newPipeline(fake).Classify(context.Background(), "What are they about?", history)
		assert.Equal(t, models.PersonalData, c.Kind)
		assert.InDelta(t, 0.75, c.Confidence, 1e-9)
		assert.Equal(t, 2, c.TierUsed)
		assert.Empty(t, fake.Calls(""))
	})

	t.Run("inconclusive tiers reach the llm", func(t *testing.T) {
		fake := llmtest.New().Answer(llmtest.Classification, `{"kind": "GENERAL_KNOWLEDGE", "confidence": 0.85, "needs_tools": false}`)
		c := newPipeline(fake).Classify(context.Background(), "hmm ok", nil)
		assert.Equal(t, models.GeneralKnowledge, c.Kind)
		assert.Equal(t, 3, c.TierUsed)
		assert.Len(t, fake.Calls(llmtest.Classification), 1)
	})

	t.Run("llm failure degrades to ambiguous", func(t *testing.T) {
		fake := llmtest.New().Fail(llmtest.Classification, errors.New("connection refused"))
		c := newPipeline(fake).Classify(context.Background(), "hmm ok", nil)
		assert.Equal(t, models.Ambiguous, c.Kind)
		assert.Equal(t, 0.3, c.Confidence)
		assert.Equal(t, 3, c.TierUsed)
	})

	t.Run("empty utterance keeps the tier 1 record", func(t *testing.T) {
		fake := llmtest.New()
		history := []models.Message{assistant("You have 2 unread emails in your inbox.")}
		c := newPipeline(fake).Classify(context.Background(), "   ", history)
		assert.Equal(t, models.Ambiguous, c.Kind)
		assert.Zero(t, c.Confidence)
		assert.Equal(t, 1, c.TierUsed)
		assert.Empty(t, fake.Calls(""))
	})

	t.Run("disabled semantic tier keeps tier 2", func(t *testing.T) {
		c := newPipeline(nil).Classify(context.Background(), "hmm ok", nil)
		assert.Equal(t, models.Ambiguous, c.Kind)
		assert.Equal(t, 2, c.TierUsed)
	})
}

func TestPipelineEscalatesMonotonically(t *testing.T) {
	fake := llmtest.New().Answer(llmtest.Classification, `{"kind": "AMBIGUOUS", "confidence": 0.5}`)
	p := newPipeline(fake)
	thresholds := DefaultThresholds()
	pattern := NewPatternClassifier()
	history := []models.Message{assistant("You have 2 unread emails in your inbox.")}

	for _, u := range []string{
		"What is the capital of France?",
		"Show me my recent emails",
		"Find emails from John about the budget",
		"What are they about?",
		"What is my name?",
		"Who is the best football player",
		"hmm ok",
	} {
		c := p.Classify(context.Background(), u, history)
		t1 := pattern.Classify(u)
		switch c.TierUsed {
		case 1:
			assert.GreaterOrEqual(t, t1.Confidence, thresholds.Tier1Accept, u)
		case 2:
			assert.Less(t, t1.Confidence, thresholds.Tier1Accept, u)
			assert.GreaterOrEqual(t, c.Confidence, thresholds.Tier2Accept, u)
		case 3:
			assert.Less(t, t1.Confidence, thresholds.Tier1Accept, u)
		default:
			t.Fatalf("unexpected tier %d for %q", c.TierUsed, u)
		}
	}
}
