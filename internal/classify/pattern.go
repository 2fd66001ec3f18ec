package classify

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go-intentflow/pkg/models"
	"go-intentflow/pkg/tools"
)

const (
	// ambiguousConfidence is reported when the pattern scores tie or are all too weak.
	ambiguousConfidence = 0.3
	// weakScore is the best score below which the pattern tier gives up.
	weakScore = 0.2
)

// PatternClassifier is the first tier: weighted keyword and regex scoring, no I/O.
// It is stateless and safe for concurrent use.
type PatternClassifier struct{}

func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{}
}

type kindScore struct {
	kind    models.Kind
	score   float64
	signals []string
}

func (p *PatternClassifier) Classify(utterance string) models.Classification {
	text := strings.ToLower(strings.TrimSpace(utterance))
	if text == "" {
		return models.Classification{
			Kind:      models.Ambiguous,
			Reasoning: "tier1: empty utterance",
			TierUsed:  1,
		}
	}

	scores := score(text)
	best, second := scores[0], scores[1]

	if best.score < weakScore || nearlyEqual(best.score, second.score) {
		return models.Classification{
			Kind:       models.Ambiguous,
			Confidence: ambiguousConfidence,
			Reasoning:  fmt.Sprintf("tier1: no dominant pattern (%s)", describe(scores)),
			TierUsed:   1,
		}
	}

	c := models.Classification{
		Kind:       best.kind,
		Confidence: math.Min(best.score, 1),
		Reasoning:  fmt.Sprintf("tier1: %s matched %s", strings.ToLower(string(best.kind)), strings.Join(best.signals, ", ")),
		TierUsed:   1,
	}
	switch best.kind {
	case models.PersonalData:
		c.NeedsTools = models.True
		c.SuggestedTools = personalTools(text)
	case models.CurrentInfo:
		c.NeedsTools = models.True
		c.SuggestedTools = []string{tools.WebSearch}
	case models.GeneralKnowledge:
		c.NeedsTools = models.False
	}
	return c
}

// score returns every scored kind sorted by descending score; the sort is stable so
// equal scores keep the table order.
func score(text string) []kindScore {
	scores := make([]kindScore, 0, len(scoredKinds))
	index := make(map[models.Kind]int, len(scoredKinds))
	for _, k := range scoredKinds {
		ks := kindScore{kind: k}
		for _, in := range indicatorTable[k] {
			if in.regex.MatchString(text) {
				ks.score += in.weight
				ks.signals = append(ks.signals, in.name)
			}
		}
		index[k] = len(scores)
		scores = append(scores, ks)
	}
	for _, cp := range compoundTable {
		if cp.first.MatchString(text) && cp.second.MatchString(text) {
			ks := &scores[index[cp.kind]]
			ks.score += cp.bonus
			ks.signals = append(ks.signals, cp.name)
		}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})
	return scores
}

// personalTools maps the data nouns of an utterance to tools, preferring search tools when the
// utterance narrows down what to look for.
func personalTools(text string) []string {
	search := searchCues.MatchString(text)
	var out []string
	for _, cat := range personalCategories {
		if !categoryNouns[cat].MatchString(text) {
			continue
		}
		if search {
			out = append(out, searchTool[cat])
		} else {
			out = append(out, recentTool[cat])
		}
	}
	return out
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func describe(scores []kindScore) string {
	parts := make([]string, 0, len(scores))
	for _, s := range scores {
		parts = append(parts, fmt.Sprintf("%s=%.2f", strings.ToLower(string(s.kind)), s.score))
	}
	return strings.Join(parts, " ")
}
