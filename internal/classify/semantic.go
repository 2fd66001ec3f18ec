package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go-intentflow/pkg/data"
	"go-intentflow/pkg/errors"
	"go-intentflow/pkg/llm"
	"go-intentflow/pkg/memory/buffer"
	"go-intentflow/pkg/models"
	"go-intentflow/pkg/prompts"
	"go-intentflow/pkg/tools"
)

// defaultSemanticConfidence is used when the model leaves confidence out.
const defaultSemanticConfidence = 0.8

// SemanticClassifier is the third tier: an LLM call over the utterance, the recent history and
// what the cheaper tiers concluded.
type SemanticClassifier struct {
	llm      llm.Completer
	registry *tools.Registry
	timeout  time.Duration
	window   int
}

func NewSemanticClassifier(completer llm.Completer, registry *tools.Registry, timeout time.Duration, window int) *SemanticClassifier {
	if window <= 0 {
		window = 5
	}
	return &SemanticClassifier{llm: completer, registry: registry, timeout: timeout, window: window}
}

type semanticAnswer struct {
	Kind           string   `json:"kind"`
	Confidence     *float64 `json:"confidence"`
	NeedsTools     *bool    `json:"needs_tools"`
	SuggestedTools []string `json:"suggested_tools"`
	Reasoning      string   `json:"reasoning"`
}

func (s *SemanticClassifier) Classify(ctx context.Context, utterance string, history []models.Message, prior models.Classification) (models.Classification, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	completion, err := s.llm.Complete(ctx, prompts.Classification, map[string]any{
		"Utterance": utterance,
		"History":   buffer.New(history).Recent(s.window).Transcript(),
		"Hint":      hint(prior),
		"Tools":     s.registry.Describe(),
	})
	if err != nil {
		return models.Classification{}, errors.Wrap(err, errors.CategoryClassification, "llm_call")
	}

	raw, err := data.SanitizeAnswer(completion)
	if err != nil {
		return models.Classification{}, errors.Wrap(err, errors.CategoryClassification, "no_json")
	}
	var ans semanticAnswer
	if err := json.Unmarshal([]byte(raw), &ans); err != nil {
		return models.Classification{}, errors.Wrap(err, errors.CategoryClassification, "bad_json")
	}
	kind, err := models.ParseKind(ans.Kind)
	if err != nil {
		return models.Classification{}, errors.Wrap(err, errors.CategoryClassification, "bad_kind")
	}

	out := models.Classification{
		Kind:       kind,
		Confidence: defaultSemanticConfidence,
		Reasoning:  "tier3: " + strings.TrimSpace(ans.Reasoning),
		TierUsed:   3,
	}
	if ans.Confidence != nil {
		out.Confidence = math.Max(0, math.Min(1, *ans.Confidence))
	}
	if ans.NeedsTools != nil {
		out.NeedsTools = models.TriStateOf(*ans.NeedsTools)
	}
	for _, name := range ans.SuggestedTools {
		if s.registry.Has(name) {
			out.SuggestedTools = append(out.SuggestedTools, name)
		}
	}
	return out, nil
}

func hint(prior models.Classification) string {
	if prior.TierUsed == 0 {
		return "nothing"
	}
	return fmt.Sprintf("%s with confidence %.2f (%s)", prior.Kind, prior.Confidence, prior.Reasoning)
}
