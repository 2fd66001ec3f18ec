package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"go-intentflow/internal/metrics"
	"go-intentflow/pkg/logger"
	"go-intentflow/pkg/models"
)

const (
	// tools with at least this many calls and a success rate below unreliableRate are tried last
	minReliabilityCalls = 5
	unreliableRate      = 0.2
)

// filterTools applies the policy to classification suggestions: unknown and disabled tools are
// removed, unreliable ones move to the back, and the list is cut to the policy's limit.
func (h *Handler) filterTools(ctx context.Context, suggested []string, p models.UsagePolicy) ([]string, []models.Category) {
	var (
		reliable, unreliable []string
		blocked              []models.Category
	)
	seen := map[string]bool{}
	for _, name := range suggested {
		if seen[name] {
			continue
		}
		seen[name] = true
		cat, ok := h.deps.Registry.Category(name)
		if !ok {
			continue
		}
		if !p.Allows(cat) {
			blocked = appendCategory(blocked, cat)
			continue
		}
		if h.unreliable(ctx, name) {
			unreliable = append(unreliable, name)
			continue
		}
		reliable = append(reliable, name)
	}
	return truncate(append(reliable, unreliable...), p), blocked
}

// filterSteps drops plan steps the policy does not allow. When only is non-empty, steps must
// also use one of those tools.
func (h *Handler) filterSteps(steps []models.ToolCall, p models.UsagePolicy, only []string) ([]models.ToolCall, []models.Category) {
	var (
		out     []models.ToolCall
		blocked []models.Category
	)
	for _, s := range steps {
		cat, ok := h.deps.Registry.Category(s.ToolName)
		if !ok {
			continue
		}
		if !p.Allows(cat) {
			blocked = appendCategory(blocked, cat)
			continue
		}
		if len(only) > 0 && !contains(only, s.ToolName) {
			continue
		}
		out = append(out, s)
	}
	limit := limitFor(p)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, blocked
}

func (h *Handler) unreliable(ctx context.Context, tool string) bool {
	if h.deps.Ledger == nil {
		return false
	}
	calls, rate, err := h.deps.Ledger.ToolReliability(ctx, tool)
	if err != nil {
		return false
	}
	return calls >= minReliabilityCalls && rate < unreliableRate
}

func limitFor(p models.UsagePolicy) int {
	limit := p.MaxToolsPerQuery
	if p.Approach == models.Conservative && limit > 1 {
		limit = 1
	}
	return limit
}

func truncate(names []string, p models.UsagePolicy) []string {
	limit := limitFor(p)
	if len(names) > limit {
		return names[:limit]
	}
	return names
}

// executeIndependent runs unrelated tool calls concurrently, at most MaxParallelTools at a
// time. Results keep the order of names.
func (h *Handler) executeIndependent(ctx context.Context, r *run, names []string) []models.ToolResult {
	results := make([]models.ToolResult, len(names))
	g := new(errgroup.Group)
	g.SetLimit(h.cfg.MaxParallelTools)
	for i, name := range names {
		g.Go(func() error {
			// calls that have not started yet are skipped once the caller is gone
			if ctx.Err() != nil {
				results[i] = models.Failed(name, "request cancelled")
				return nil
			}
			results[i] = h.callTool(ctx, r, name, h.deps.Registry.DefaultParams(name, r.req.Utterance))
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// executePlan runs steps in order. A failed step is recorded and the plan goes on.
func (h *Handler) executePlan(ctx context.Context, r *run, steps []models.ToolCall) []models.ToolResult {
	results := make([]models.ToolResult, 0, len(steps))
	for i, step := range steps {
		if ctx.Err() != nil {
			break
		}
		params, err := resolveParams(step.Parameters, results, i)
		if err != nil {
			r.logger.Warn().Err(err).Str(logger.ToolField, step.ToolName).Int("step", i+1).Msg("skipping step")
			res := models.Failed(step.ToolName, err.Error())
			h.record(r, res)
			results = append(results, res)
			continue
		}
		results = append(results, h.callTool(ctx, r, step.ToolName, params))
	}
	return results
}

// callTool validates params and invokes the executor under the tool timeout. The call is
// detached from caller cancellation so it can finish and be recorded.
func (h *Handler) callTool(ctx context.Context, r *run, name string, params map[string]any) (res models.ToolResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res = models.Failed(name, fmt.Sprintf("tool %s panicked", name))
			r.logger.Error().Str(logger.ToolField, name).Msgf("tool call panicked: %v", p)
		}
		if res.Tool == "" {
			res.Tool = name
		}
		if res.Latency == 0 {
			res.Latency = time.Since(start)
		}
		h.record(r, res)
	}()

	if err := h.deps.Registry.Validate(name, params); err != nil {
		return models.Failed(name, err.Error())
	}

	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.cfg.ToolTimeout)
	defer cancel()
	res = h.deps.Executor.Call(tctx, name, params)
	if !res.Success && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		res.Error = fmt.Sprintf("tool %s timed out after %s", name, h.cfg.ToolTimeout)
	}
	return res
}

func (h *Handler) record(r *run, res models.ToolResult) {
	metrics.ObserveToolCall(res.Tool, res.Success, res.Latency)
	l := r.logger.With().Str(logger.ToolField, res.Tool).Bool("success", res.Success).Dur("latency", res.Latency).Logger()
	if res.Success {
		l.Debug().Msg("tool call finished")
	} else {
		l.Warn().Str("reason", res.Error).Msg("tool call failed")
	}
	if h.deps.Ledger == nil {
		return
	}
	if err := h.deps.Ledger.LogToolUsage(context.Background(), r.id.String(), r.req.UserID, res); err != nil {
		r.logger.Warn().Err(err).Msg("unable to record tool usage")
	}
}

func successes(results []models.ToolResult) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}

// usedTools lists the tools whose results fed the answer, without duplicates.
func usedTools(results []models.ToolResult) []string {
	var out []string
	for _, r := range results {
		if r.Success && !contains(out, r.Tool) {
			out = append(out, r.Tool)
		}
	}
	return out
}

func attemptedTools(results []models.ToolResult) []string {
	var out []string
	for _, r := range results {
		if !contains(out, r.Tool) {
			out = append(out, r.Tool)
		}
	}
	return out
}

func feedback(failed []models.ToolResult) string {
	var b strings.Builder
	for _, r := range failed {
		fmt.Fprintf(&b, "- %s failed: %s\n", r.Tool, r.Error)
	}
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func appendCategory(list []models.Category, c models.Category) []models.Category {
	for _, v := range list {
		if v == c {
			return list
		}
	}
	return append(list, c)
}
