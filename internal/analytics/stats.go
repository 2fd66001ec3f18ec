package analytics

import (
	"fmt"
	"sort"
	"time"

	intentErrors "go-intentflow/pkg/errors"
	"go-intentflow/pkg/models"
)

const uncategorized = "uncategorized"

const (
	minSuccessRate  = 0.5
	maxAvgLatency   = 5 * time.Second
	minAccuracy     = 0.7
	maxTier3Ratio   = 0.3
	accurateQuality = 0.6
)

const (
	RecReliability = "reliability"
	RecPerformance = "performance"
	RecClassifier  = "classifier"
	RecCost        = "cost"
)

type ToolStats struct {
	Calls        int           `json:"calls"`
	Successes    int           `json:"successes"`
	SuccessRate  float64       `json:"success_rate"`
	AvgLatency   time.Duration `json:"-"`
	AvgLatencyMS int64         `json:"avg_latency_ms"`
}

type ApproachStats struct {
	Count       int     `json:"count"`
	Successes   int     `json:"successes"`
	SuccessRate float64 `json:"success_rate"`
	Evaluated   int     `json:"evaluated"`
	AvgQuality  float64 `json:"avg_quality"`
}

type Stats struct {
	Since   time.Time `json:"since,omitempty"`
	Entries int       `json:"entries"`

	Tools      map[string]ToolStats     `json:"tools"`
	Approaches map[string]ApproachStats `json:"approaches"`

	Classifications  int                         `json:"classifications"`
	TierDistribution map[models.Kind]map[int]int `json:"tier_distribution"`
	Tier3Ratio       float64                     `json:"tier3_ratio"`

	// ClassificationAccuracy is the share of evaluated responses with quality >= 0.6.
	EvaluatedResponses     int     `json:"evaluated_responses"`
	ClassificationAccuracy float64 `json:"classification_accuracy"`

	Suggestions int `json:"suggestions"`
	// Errors counts failures; policy blocks are counted apart since they are not failures.
	Errors           int            `json:"errors"`
	PolicyBlocks     int            `json:"policy_blocks"`
	ErrorsByCategory map[string]int `json:"errors_by_category"`
}

func compute(entries []Entry) Stats {
	s := Stats{
		Entries:          len(entries),
		Tools:            map[string]ToolStats{},
		Approaches:       map[string]ApproachStats{},
		TierDistribution: map[models.Kind]map[int]int{},
		ErrorsByCategory: map[string]int{},
	}
	latency := map[string]time.Duration{}
	quality := map[string]float64{}
	var tier3, accurate int

	for _, e := range entries {
		switch e.Type {
		case EntryTool:
			ts := s.Tools[e.Tool]
			ts.Calls++
			if e.Success {
				ts.Successes++
			}
			latency[e.Tool] += e.Latency
			s.Tools[e.Tool] = ts
		case EntryClassification:
			s.Classifications++
			if s.TierDistribution[e.Kind] == nil {
				s.TierDistribution[e.Kind] = map[int]int{}
			}
			s.TierDistribution[e.Kind][e.Tier]++
			if e.Tier == 3 {
				tier3++
			}
		case EntryApproach:
			as := s.Approaches[e.Approach]
			as.Count++
			if e.Success {
				as.Successes++
			}
			if e.Evaluated {
				as.Evaluated++
				quality[e.Approach] += e.Quality
				s.EvaluatedResponses++
				if e.Quality >= accurateQuality {
					accurate++
				}
			}
			s.Approaches[e.Approach] = as
		case EntrySuggestion:
			s.Suggestions++
		case EntryError:
			category := e.ErrorCategory
			if category == "" {
				category = uncategorized
			}
			s.ErrorsByCategory[category]++
			if category == string(intentErrors.CategoryPolicyBlocked) {
				s.PolicyBlocks++
			} else {
				s.Errors++
			}
		}
	}

	for name, ts := range s.Tools {
		ts.SuccessRate = float64(ts.Successes) / float64(ts.Calls)
		ts.AvgLatency = latency[name] / time.Duration(ts.Calls)
		ts.AvgLatencyMS = ts.AvgLatency.Milliseconds()
		s.Tools[name] = ts
	}
	for name, as := range s.Approaches {
		as.SuccessRate = float64(as.Successes) / float64(as.Count)
		if as.Evaluated > 0 {
			as.AvgQuality = quality[name] / float64(as.Evaluated)
		}
		s.Approaches[name] = as
	}
	if s.Classifications > 0 {
		s.Tier3Ratio = float64(tier3) / float64(s.Classifications)
	}
	if s.EvaluatedResponses > 0 {
		s.ClassificationAccuracy = float64(accurate) / float64(s.EvaluatedResponses)
	}
	return s
}

type Recommendation struct {
	Type    string  `json:"type"`
	Subject string  `json:"subject,omitempty"`
	Value   float64 `json:"value"`
	Message string  `json:"message"`
}

// Recommend applies the threshold rules to s. Output order is stable.
func Recommend(s Stats) []Recommendation {
	var out []Recommendation

	names := make([]string, 0, len(s.Tools))
	for name := range s.Tools {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ts := s.Tools[name]
		if ts.SuccessRate < minSuccessRate {
			out = append(out, Recommendation{
				Type:    RecReliability,
				Subject: name,
				Value:   ts.SuccessRate,
				Message: fmt.Sprintf("%s succeeds in %.0f%% of %d calls; check its adapter or prefer an alternative", name, ts.SuccessRate*100, ts.Calls),
			})
		}
		if ts.AvgLatency > maxAvgLatency {
			out = append(out, Recommendation{
				Type:    RecPerformance,
				Subject: name,
				Value:   ts.AvgLatency.Seconds(),
				Message: fmt.Sprintf("%s averages %.1fs per call; consider caching or a tighter timeout", name, ts.AvgLatency.Seconds()),
			})
		}
	}
	if s.EvaluatedResponses > 0 && s.ClassificationAccuracy < minAccuracy {
		out = append(out, Recommendation{
			Type:    RecClassifier,
			Value:   s.ClassificationAccuracy,
			Message: fmt.Sprintf("only %.0f%% of evaluated responses were good; review classification patterns", s.ClassificationAccuracy*100),
		})
	}
	if s.Classifications > 0 && s.Tier3Ratio > maxTier3Ratio {
		out = append(out, Recommendation{
			Type:    RecCost,
			Value:   s.Tier3Ratio,
			Message: fmt.Sprintf("%.0f%% of classifications needed the LLM tier; extend the pattern tables", s.Tier3Ratio*100),
		})
	}
	return out
}
