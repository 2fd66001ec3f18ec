// Package handler grades answers after they were sent and proposes better routing for the
// next time. Nothing here runs on the user's request path.
package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/gowebpki/jcs"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"go-intentflow/pkg/data"
	"go-intentflow/pkg/llm"
	"go-intentflow/pkg/logger"
	"go-intentflow/pkg/models"
	"go-intentflow/pkg/prompts"
	"go-intentflow/pkg/tools"
)

// poorQuality is the score below which an approach change is suggested.
const poorQuality = 0.4

type Config struct {
	CacheSize           int           `mapstructure:"cache_size" yaml:"cache_size"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	HeuristicConfidence float64       `mapstructure:"heuristic_confidence" yaml:"heuristic_confidence"`
	Timeout             time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

func DefaultConfig() Config {
	return Config{
		CacheSize:           1000,
		CacheTTL:            time.Hour,
		HeuristicConfidence: 0.8,
		Timeout:             20 * time.Second,
	}
}

type Handler struct {
	llm       llm.Completer
	registry  *tools.Registry
	heuristic heuristic
	cache     *expirable.LRU[string, models.EvaluationRecord]
	cfg       Config
	logger    zerolog.Logger
}

// New builds an evaluator. A nil completer leaves the heuristic as the only path.
func New(completer llm.Completer, registry *tools.Registry, cfg Config) *Handler {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}
	return &Handler{
		llm:       completer,
		registry:  registry,
		heuristic: heuristic{registry: registry},
		cache:     expirable.NewLRU[string, models.EvaluationRecord](cfg.CacheSize, nil, cfg.CacheTTL),
		cfg:       cfg,
		logger:    log.With().Str(logger.AgentNameField, "evaluator").Logger(),
	}
}

// Evaluate grades answer against question. Identical (question, answer) pairs are served
// from the cache. It never fails: an unusable LLM grade falls back to the heuristic one.
func (h *Handler) Evaluate(ctx context.Context, question, answer string, toolsUsed []string) models.EvaluationRecord {
	key, err := cacheKey(question, answer)
	if err == nil {
		if rec, ok := h.cache.Get(key); ok {
			return rec
		}
	} else {
		h.logger.Warn().Err(err).Msg("unable to build evaluation cache key")
	}

	rec := h.heuristic.evaluate(question, answer, toolsUsed)
	if rec.Confidence < h.cfg.HeuristicConfidence && h.llm != nil {
		graded, err := h.llmEvaluate(ctx, question, answer, toolsUsed)
		if err != nil {
			h.logger.Warn().Err(err).Msg("llm evaluation failed, keeping heuristic grade")
		} else {
			rec = graded
		}
	}

	if key != "" {
		h.cache.Add(key, rec)
	}
	return rec
}

type llmGrade struct {
	QualityScore      *float64           `json:"quality_score"`
	AddressedQuestion bool               `json:"addressed_question"`
	ToolEffectiveness map[string]float64 `json:"tool_effectiveness"`
	Suggestions       []string           `json:"suggestions"`
}

func (h *Handler) llmEvaluate(ctx context.Context, question, answer string, toolsUsed []string) (models.EvaluationRecord, error) {
	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}

	usedTools := "none"
	if len(toolsUsed) > 0 {
		usedTools = strings.Join(toolsUsed, ", ")
	}
	completion, err := h.llm.Complete(ctx, prompts.Evaluation, map[string]any{
		"Question": question,
		"Answer":   answer,
		"Tools":    usedTools,
	})
	if err != nil {
		return models.EvaluationRecord{}, fmt.Errorf("call: %w", err)
	}
	raw, err := data.SanitizeAnswer(completion)
	if err != nil {
		return models.EvaluationRecord{}, err
	}
	var g llmGrade
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return models.EvaluationRecord{}, fmt.Errorf("unmarshal: %w", err)
	}
	if g.QualityScore == nil {
		return models.EvaluationRecord{}, errors.New("grade without quality_score")
	}

	score := math.Max(0, math.Min(1, *g.QualityScore))
	effectiveness := map[string]float64{}
	for _, t := range toolsUsed {
		if v, ok := g.ToolEffectiveness[t]; ok {
			effectiveness[t] = math.Max(0, math.Min(1, v))
		}
	}
	return models.EvaluationRecord{
		QualityScore:      score,
		Grade:             models.GradeFor(score),
		AddressedQuestion: g.AddressedQuestion,
		ToolEffectiveness: effectiveness,
		Suggestions:       g.Suggestions,
		Source:            models.SourceLLM,
		Confidence:        1,
	}, nil
}

// cacheKey hashes the canonical JSON form of the pair so formatting never splits the cache.
func cacheKey(question, answer string) (string, error) {
	raw, err := json.Marshal(map[string]string{"question": question, "answer": answer})
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

var dataNouns = regexp.MustCompile(`\b(my|our)\b.*\b(e-?mails?|inbox|files?|documents?|docs?|drive|calendar|meetings?|events?)\b`)

// SuggestBetterApproach is advisory: callers log it and never apply it to the request
// that was evaluated.
func (h *Handler) SuggestBetterApproach(question, approach string, toolsUsed []string, eval models.EvaluationRecord) models.Suggestion {
	keep := models.Suggestion{Current: approach, Recommended: approach}
	if eval.QualityScore >= poorQuality {
		keep.Reason = "quality is acceptable"
		return keep
	}

	personal := dataNouns.MatchString(strings.ToLower(question))
	switchTo := func(to, reason string) models.Suggestion {
		return models.Suggestion{Switch: true, Current: approach, Recommended: to, Reason: reason}
	}

	switch approach {
	case models.ApproachGeneralKnowledge:
		if personal {
			return switchTo(models.ApproachToolBased, "question refers to the user's own data")
		}
		return switchTo(models.ApproachCurrentInfo, "a web search may ground the answer")
	case models.ApproachCurrentInfo:
		if personal {
			return switchTo(models.ApproachToolBased, "question refers to the user's own data")
		}
		return switchTo(models.ApproachLLMPlanned, "search alone did not answer the question")
	case models.ApproachContextAnswer:
		return switchTo(models.ApproachToolBased, "earlier turns did not hold the answer")
	case models.ApproachToolBased, models.ApproachLLMPlanned:
		if replace := h.replacements(toolsUsed, eval); len(replace) > 0 {
			return models.Suggestion{
				Current:      approach,
				Recommended:  approach,
				ReplaceTools: replace,
				Reason:       "some tools contributed little",
			}
		}
		if approach == models.ApproachToolBased {
			return switchTo(models.ApproachLLMPlanned, "a planned sequence of tools may fit better")
		}
		if len(toolsUsed) == 0 {
			return switchTo(models.ApproachGeneralKnowledge, "planning found nothing to call")
		}
	}
	keep.Reason = "no better approach known"
	return keep
}

func (h *Handler) replacements(toolsUsed []string, eval models.EvaluationRecord) map[string]string {
	if h.registry == nil {
		return nil
	}
	out := map[string]string{}
	for _, t := range toolsUsed {
		v, ok := eval.ToolEffectiveness[t]
		if !ok || v >= poorQuality {
			continue
		}
		def, ok := h.registry.Get(t)
		if !ok {
			continue
		}
		for _, alt := range def.Alternatives {
			if alt != t && h.registry.Has(alt) {
				out[t] = alt
				break
			}
		}
	}
	return out
}
