package classify

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go-intentflow/pkg/memory/buffer"
	"go-intentflow/pkg/models"
)

const (
	// resolvedConfidence is assigned when history settles a context-dependent utterance.
	resolvedConfidence = 0.75
	boostPerHit        = 0.1
	maxBoost           = 0.2
)

// ContextClassifier is the second tier. It reads the recent conversation window to resolve
// follow-ups and to corroborate what the pattern tier found. It never changes a kind except
// to resolve CONTEXT_DEPENDENT.
type ContextClassifier struct {
	window      int
	invokeBelow float64
}

func NewContextClassifier(window int, invokeBelow float64) *ContextClassifier {
	if window <= 0 {
		window = 5
	}
	return &ContextClassifier{window: window, invokeBelow: invokeBelow}
}

type historySignals struct {
	categories map[models.Category]int
	personal   int
	factual    int
}

func (c *ContextClassifier) Classify(_ string, history []models.Message, prior models.Classification) models.Classification {
	if prior.Confidence >= c.invokeBelow {
		return prior
	}

	out := prior.WithTools(prior.SuggestedTools)
	out.TierUsed = 2

	recent := buffer.New(history).Recent(c.window)
	if recent.Empty() {
		out.Reasoning = appendReason(prior.Reasoning, "tier2: no conversation history")
		return out
	}
	sig := scan(recent)

	switch prior.Kind {
	case models.ContextDependent:
		switch {
		case sig.personal > 0 && sig.personal >= sig.factual:
			out.Kind = models.PersonalData
			out.Confidence = resolvedConfidence
			out.NeedsTools = models.True
			out.SuggestedTools = sig.tools()
			out.Reasoning = appendReason(prior.Reasoning, fmt.Sprintf("tier2: history is about %s", sig.describe()))
		case sig.factual > 0:
			out.Kind = models.GeneralKnowledge
			out.Confidence = resolvedConfidence
			out.NeedsTools = models.False
			out.SuggestedTools = nil
			out.Reasoning = appendReason(prior.Reasoning, "tier2: history is a factual discussion")
		default:
			out.Reasoning = appendReason(prior.Reasoning, "tier2: history does not settle the reference")
		}
	case models.PersonalData:
		if sig.personal > 0 {
			out.Confidence = boost(prior.Confidence, sig.personal)
			if len(out.SuggestedTools) == 0 {
				out.SuggestedTools = sig.tools()
			}
			out.Reasoning = appendReason(prior.Reasoning, fmt.Sprintf("tier2: history mentions %s", sig.describe()))
		} else {
			out.Reasoning = appendReason(prior.Reasoning, "tier2: history does not corroborate")
		}
	case models.GeneralKnowledge, models.CurrentInfo:
		if sig.factual > 0 {
			out.Confidence = boost(prior.Confidence, sig.factual)
			out.Reasoning = appendReason(prior.Reasoning, "tier2: factual history corroborates")
		} else {
			out.Reasoning = appendReason(prior.Reasoning, "tier2: history does not corroborate")
		}
	default:
		out.Reasoning = appendReason(prior.Reasoning, "tier2: nothing to resolve")
	}
	return out
}

func scan(m buffer.Memories) historySignals {
	text := m.Text()
	sig := historySignals{categories: map[models.Category]int{}}
	for _, cat := range personalCategories {
		n := len(historyMarkers[cat].FindAllStringIndex(text, -1))
		if n > 0 {
			sig.categories[cat] = n
			sig.personal += n
		}
	}
	sig.factual = len(factualMarkers.FindAllStringIndex(text, -1))
	return sig
}

// tools returns the query-free tool of every category seen, most mentioned first.
func (s historySignals) tools() []string {
	cats := make([]models.Category, 0, len(s.categories))
	for _, cat := range personalCategories {
		if s.categories[cat] > 0 {
			cats = append(cats, cat)
		}
	}
	sort.SliceStable(cats, func(i, j int) bool {
		return s.categories[cats[i]] > s.categories[cats[j]]
	})
	out := make([]string, 0, len(cats))
	for _, cat := range cats {
		out = append(out, recentTool[cat])
	}
	return out
}

func (s historySignals) describe() string {
	parts := make([]string, 0, len(s.categories))
	for _, cat := range personalCategories {
		if n := s.categories[cat]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s(%d)", cat, n))
		}
	}
	return strings.Join(parts, " ")
}

func boost(confidence float64, hits int) float64 {
	return math.Min(1, confidence+math.Min(maxBoost, boostPerHit*float64(hits)))
}

func appendReason(prior, next string) string {
	if prior == "" {
		return next
	}
	return prior + "; " + next
}

// HistoryMentionsData reports whether the last window turns talk about the user's email,
// files or calendar.
func HistoryMentionsData(history []models.Message, window int) bool {
	if window <= 0 {
		window = 5
	}
	return scan(buffer.New(history).Recent(window)).personal > 0
}
