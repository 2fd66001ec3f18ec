// Package classify implements the tiered intent classification pipeline: cheap pattern
// scoring first, conversation context second, an LLM call last. Tiers run strictly in order
// and a later tier only runs when the earlier one is inconclusive.
package classify

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"go-intentflow/internal/metrics"
	"go-intentflow/pkg/logger"
	"go-intentflow/pkg/models"
)

// Thresholds control when each tier's verdict is final.
type Thresholds struct {
	Tier1Accept      float64 `mapstructure:"tier1_accept" yaml:"tier1_accept"`
	Tier2InvokeBelow float64 `mapstructure:"tier2_invoke_below" yaml:"tier2_invoke_below"`
	Tier2Accept      float64 `mapstructure:"tier2_accept" yaml:"tier2_accept"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Tier1Accept: 0.6, Tier2InvokeBelow: 0.8, Tier2Accept: 0.7}
}

// Classifier is what the orchestrator depends on.
type Classifier interface {
	Classify(ctx context.Context, utterance string, history []models.Message) models.Classification
}

type Pipeline struct {
	pattern    *PatternClassifier
	context    *ContextClassifier
	semantic   *SemanticClassifier
	thresholds Thresholds
	logger     zerolog.Logger
}

// NewPipeline wires the tiers. A nil semantic classifier disables the third tier.
func NewPipeline(thresholds Thresholds, window int, semantic *SemanticClassifier) *Pipeline {
	return &Pipeline{
		pattern:    NewPatternClassifier(),
		context:    NewContextClassifier(window, thresholds.Tier2InvokeBelow),
		semantic:   semantic,
		thresholds: thresholds,
		logger:     log.With().Str(logger.AgentNameField, "classifier").Logger(),
	}
}

func (p *Pipeline) Classify(ctx context.Context, utterance string, history []models.Message) models.Classification {
	c := p.classify(ctx, utterance, history)
	metrics.ObserveClassification(string(c.Kind), c.TierUsed)
	p.logger.Debug().
		Str(logger.KindField, string(c.Kind)).
		Int(logger.TierField, c.TierUsed).
		Float64("confidence", c.Confidence).
		Msg(c.Reasoning)
	return c
}

func (p *Pipeline) classify(ctx context.Context, utterance string, history []models.Message) models.Classification {
	tier1 := p.pattern.Classify(utterance)
	// empty input has nothing for later tiers to read
	if tier1.Confidence >= p.thresholds.Tier1Accept || strings.TrimSpace(utterance) == "" {
		return tier1
	}

	tier2 := p.context.Classify(utterance, history, tier1)
	if tier2.Confidence >= p.thresholds.Tier2Accept {
		return tier2
	}

	if p.semantic == nil {
		return tier2
	}

	tier3, err := p.semantic.Classify(ctx, utterance, history, tier2)
	if err != nil {
		p.logger.Warn().Err(err).Msg("semantic classification failed, falling back to ambiguous")
		return models.Classification{
			Kind:       models.Ambiguous,
			Confidence: ambiguousConfidence,
			Reasoning:  appendReason(tier2.Reasoning, "tier3: classification unavailable"),
			TierUsed:   3,
		}
	}
	return tier3
}
