package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"go-intentflow/pkg/data"
	"go-intentflow/pkg/errors"
	"go-intentflow/pkg/llm"
	"go-intentflow/pkg/logger"
	"go-intentflow/pkg/memory/buffer"
	"go-intentflow/pkg/models"
	"go-intentflow/pkg/prompts"
	"go-intentflow/pkg/tools"
)

// Handler asks the LLM for an ordered tool plan.
type Handler struct {
	llm      llm.Completer
	registry *tools.Registry
	timeout  time.Duration
	window   int
}

func New(completer llm.Completer, registry *tools.Registry, timeout time.Duration, window int) *Handler {
	if window <= 0 {
		window = 5
	}
	return &Handler{llm: completer, registry: registry, timeout: timeout, window: window}
}

// Plan returns the plan for utterance. feedback, when set, describes why a previous plan
// failed. Steps naming unknown tools are dropped.
func (h *Handler) Plan(ctx context.Context, utterance string, history []models.Message, feedback string) (models.ToolCallPlan, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	if feedback != "" {
		feedback = "A previous attempt failed, avoid repeating it:\n" + feedback
	}
	completion, err := h.llm.Complete(ctx, prompts.Plan, map[string]any{
		"Utterance": utterance,
		"History":   buffer.New(history).Recent(h.window).Transcript(),
		"Tools":     h.registry.Describe(),
		"Feedback":  feedback,
	})
	if err != nil {
		return models.ToolCallPlan{}, errors.Wrap(fmt.Errorf("call: %w", err), errors.CategoryDegraded, "plan_call")
	}

	match, err := data.SanitizeAnswer(completion)
	if err != nil {
		return models.ToolCallPlan{}, errors.Wrap(err, errors.CategoryDegraded, "plan_no_json")
	}
	plan, err := parseAnswer(match)
	if err != nil {
		return models.ToolCallPlan{}, errors.Wrap(err, errors.CategoryDegraded, "plan_bad_json")
	}

	steps := plan.Steps[:0]
	for _, s := range plan.Steps {
		s.ToolName = strings.TrimSpace(s.ToolName)
		if !h.registry.Has(s.ToolName) {
			log.Warn().Str(logger.AgentNameField, "planner").Str(logger.ToolField, s.ToolName).Msg("dropping plan step with unknown tool")
			continue
		}
		if s.Parameters == nil {
			s.Parameters = map[string]any{}
		}
		steps = append(steps, s)
	}
	plan.Steps = steps
	if len(plan.Steps) == 0 {
		plan.NeedsTools = false
	}
	return plan, nil
}

func parseAnswer(answer string) (models.ToolCallPlan, error) {
	var plan models.ToolCallPlan
	if err := json.Unmarshal([]byte(answer), &plan); err != nil {
		return models.ToolCallPlan{}, fmt.Errorf("unmarshal: %w", err)
	}
	return plan, nil
}
