package handler

import (
	"math"
	"regexp"
	"strings"

	"go-intentflow/pkg/models"
	"go-intentflow/pkg/tools"
)

var (
	errorWords    = regexp.MustCompile(`\b(sorry|unable|couldn't|could not|can't|cannot|failed|error|unfortunately|not able|no access)\b`)
	positiveWords = regexp.MustCompile(`\b(here are|here is|found|according to|you have|scheduled|based on|latest|results?)\b|https?://`)
	wordPattern   = regexp.MustCompile(`[a-z0-9']+`)

	toolDomain = map[models.Category]*regexp.Regexp{
		models.CategoryGmail:    regexp.MustCompile(`\b(e-?mails?|inbox|messages?|sender|subject)\b`),
		models.CategoryDrive:    regexp.MustCompile(`\b(files?|documents?|docs?|drive|folders?|spreadsheets?)\b`),
		models.CategoryCalendar: regexp.MustCompile(`\b(calendar|meetings?|events?|appointments?|scheduled)\b`),
		models.CategoryWeb:      regexp.MustCompile(`\b(sources?|according to|reported|news)\b|https?://`),
	}

	stopWords = map[string]bool{
		"what": true, "when": true, "where": true, "which": true, "who": true, "whom": true,
		"that": true, "this": true, "these": true, "those": true, "there": true, "their": true,
		"about": true, "with": true, "from": true, "have": true, "does": true, "show": true,
		"tell": true, "please": true, "could": true, "would": true, "should": true, "your": true,
		"they": true, "them": true, "many": true, "much": true, "some": true, "into": true,
	}
)

// heuristic is the cheap first evaluation path. Its confidence grows with the number of
// independent signals that fired.
type heuristic struct {
	registry *tools.Registry
}

type signals struct {
	fired       int
	score       float64
	addressed   bool
	suggestions []string
}

func (h heuristic) evaluate(question, answer string, toolsUsed []string) models.EvaluationRecord {
	lower := strings.ToLower(answer)
	s := signals{score: 0.5}

	n := len(strings.TrimSpace(answer))
	switch {
	case n < 20:
		s.fired++
		s.score -= 0.3
		s.suggestions = append(s.suggestions, "answer is very short")
	case n >= 50:
		s.fired++
		s.score += 0.1
	}

	if errs := len(errorWords.FindAllStringIndex(lower, -1)); errs > 0 {
		s.fired++
		s.score -= math.Min(0.45, 0.15*float64(errs))
		s.suggestions = append(s.suggestions, "answer reports a failure")
	}

	if pos := len(positiveWords.FindAllStringIndex(lower, -1)); pos > 0 {
		s.fired++
		s.score += math.Min(0.2, 0.05*float64(pos))
	}

	keywords := keywordsOf(question)
	overlap := 0.0
	if len(keywords) > 0 {
		answerWords := map[string]bool{}
		for _, w := range wordPattern.FindAllString(lower, -1) {
			answerWords[w] = true
		}
		hit := 0
		for _, k := range keywords {
			if answerWords[k] {
				hit++
			}
		}
		overlap = float64(hit) / float64(len(keywords))
		switch {
		case overlap >= 0.5:
			s.fired++
			s.score += 0.15
		case overlap == 0:
			s.fired++
			s.score -= 0.15
			s.suggestions = append(s.suggestions, "answer does not mention what was asked")
		}
	}
	s.addressed = overlap >= 0.3 || (len(keywords) == 0 && !errorWords.MatchString(lower))

	effectiveness := map[string]float64{}
	if len(toolsUsed) > 0 {
		mentioned := 0
		for _, t := range toolsUsed {
			re := h.domainOf(t)
			if re != nil && re.MatchString(lower) {
				effectiveness[t] = 1
				mentioned++
			} else {
				effectiveness[t] = 0.3
			}
		}
		s.fired++
		switch mentioned {
		case len(toolsUsed):
			s.score += 0.1
		case 0:
			s.score -= 0.1
			s.suggestions = append(s.suggestions, "answer does not use the tool results")
		}
	}

	score := math.Max(0, math.Min(1, s.score))
	return models.EvaluationRecord{
		QualityScore:      score,
		Grade:             models.GradeFor(score),
		AddressedQuestion: s.addressed,
		ToolEffectiveness: effectiveness,
		Suggestions:       s.suggestions,
		Source:            models.SourceHeuristic,
		Confidence:        math.Min(1, 0.2*float64(s.fired)+0.2),
	}
}

func (h heuristic) domainOf(tool string) *regexp.Regexp {
	if h.registry == nil {
		return nil
	}
	c, ok := h.registry.Category(tool)
	if !ok {
		return nil
	}
	return toolDomain[c]
}

func keywordsOf(question string) []string {
	seen := map[string]bool{}
	var out []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(question), -1) {
		if len(w) < 4 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
