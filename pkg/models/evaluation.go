package models

import (
	"fmt"
	"sort"
	"strings"
)

type Grade string

const (
	GradeExcellent Grade = "EXCELLENT"
	GradeGood      Grade = "GOOD"
	GradeAdequate  Grade = "ADEQUATE"
	GradePoor      Grade = "POOR"
	GradeFailed    Grade = "FAILED"
)

func GradeFor(score float64) Grade {
	switch {
	case score >= 0.8:
		return GradeExcellent
	case score >= 0.6:
		return GradeGood
	case score >= 0.4:
		return GradeAdequate
	case score >= 0.2:
		return GradePoor
	default:
		return GradeFailed
	}
}

type EvaluationSource string

const (
	SourceHeuristic EvaluationSource = "heuristic"
	SourceLLM       EvaluationSource = "llm"
)

type EvaluationRecord struct {
	QualityScore      float64            `json:"quality_score"`
	Grade             Grade              `json:"grade"`
	AddressedQuestion bool               `json:"addressed_question"`
	ToolEffectiveness map[string]float64 `json:"tool_effectiveness"`
	Suggestions       []string           `json:"suggestions"`
	Source            EvaluationSource   `json:"source"`
	Confidence        float64            `json:"confidence"`
}

type Suggestion struct {
	Switch       bool              `json:"switch"`
	Current      string            `json:"current"`
	Recommended  string            `json:"recommended"`
	ReplaceTools map[string]string `json:"replace_tools,omitempty"`
	Reason       string            `json:"reason"`
}

func (s Suggestion) String() string {
	var b strings.Builder
	if s.Switch {
		fmt.Fprintf(&b, "switch %s -> %s", s.Current, s.Recommended)
	} else {
		fmt.Fprintf(&b, "keep %s", s.Current)
	}
	olds := make([]string, 0, len(s.ReplaceTools))
	for old := range s.ReplaceTools {
		olds = append(olds, old)
	}
	sort.Strings(olds)
	for _, old := range olds {
		fmt.Fprintf(&b, "; replace %s with %s", old, s.ReplaceTools[old])
	}
	if s.Reason != "" {
		b.WriteString(": ")
		b.WriteString(s.Reason)
	}
	return b.String()
}
