// Package handler is the master agent: it classifies a request, applies the user's tool
// policy, runs tools or a plan, and synthesizes the answer. Every path ends in a response;
// failures degrade into an apology instead of an error.
package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"go-intentflow/internal/analytics"
	"go-intentflow/internal/classify"
	"go-intentflow/internal/metrics"
	intentErrors "go-intentflow/pkg/errors"
	"go-intentflow/pkg/logger"
	"go-intentflow/pkg/messages"
	"go-intentflow/pkg/models"
	"go-intentflow/pkg/tools"
)

type Planner interface {
	Plan(ctx context.Context, utterance string, history []models.Message, feedback string) (models.ToolCallPlan, error)
}

type Responder interface {
	Answer(ctx context.Context, question string, history []models.Message, searchResults string) (string, error)
	AnswerFromContext(ctx context.Context, question string, history []models.Message) (string, error)
	Synthesize(ctx context.Context, question string, results []models.ToolResult) (string, error)
}

type PolicyProvider interface {
	Policy(ctx context.Context, userID string) (models.UsagePolicy, error)
}

// Publisher hands finished requests to the evaluation worker. It must not block.
type Publisher interface {
	Publish(req messages.EvaluationRequest)
}

// Ledger is the part of analytics the master agent writes to.
type Ledger interface {
	LogToolUsage(ctx context.Context, requestID, userID string, r models.ToolResult) error
	LogClassification(ctx context.Context, requestID, userID string, c models.Classification) error
	LogError(ctx context.Context, requestID, stage string, err error) error
	ToolReliability(ctx context.Context, tool string) (int, float64, error)
}

var _ Ledger = (*analytics.Analytics)(nil)

type Config struct {
	ClassifyTimeout  time.Duration `mapstructure:"classify_timeout" yaml:"classify_timeout"`
	ToolTimeout      time.Duration `mapstructure:"tool_timeout" yaml:"tool_timeout"`
	SynthesisTimeout time.Duration `mapstructure:"synthesis_timeout" yaml:"synthesis_timeout"`
	MaxParallelTools int           `mapstructure:"max_parallel_tools" yaml:"max_parallel_tools"`
	Replan           bool          `mapstructure:"replan" yaml:"replan"`
	HistoryWindow    int           `mapstructure:"-" yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		ClassifyTimeout:  15 * time.Second,
		ToolTimeout:      20 * time.Second,
		SynthesisTimeout: 30 * time.Second,
		MaxParallelTools: 3,
		Replan:           true,
		HistoryWindow:    5,
	}
}

type Deps struct {
	Classifier classify.Classifier
	Planner    Planner
	Responder  Responder
	Executor   tools.Executor
	Registry   *tools.Registry
	Policies   PolicyProvider
	// Ledger and Publisher are optional.
	Ledger    Ledger
	Publisher Publisher
}

type Handler struct {
	deps Deps
	cfg  Config
}

func New(deps Deps, cfg Config) *Handler {
	if cfg.MaxParallelTools <= 0 {
		cfg.MaxParallelTools = 3
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 5
	}
	return &Handler{deps: deps, cfg: cfg}
}

// run is the state of one request.
type run struct {
	id             uuid.UUID
	req            models.Request
	policy         models.UsagePolicy
	classification models.Classification
	states         []models.State
	logger         zerolog.Logger
}

func (r *run) transition(s models.State) {
	r.states = append(r.states, s)
	r.logger.Debug().Str(logger.StateField, string(s)).Msg("transition")
}

// Process answers one request. It always returns a response, never a raw error.
func (h *Handler) Process(ctx context.Context, req models.Request) (resp models.Response) {
	start := time.Now()
	r := &run{
		id:  uuid.New(),
		req: req,
	}
	r.logger = log.With().
		Str(logger.AgentNameField, "master").
		Str(logger.RequestIDField, r.id.String()).
		Str(logger.UserIDField, req.UserID).
		Logger()

	defer func() {
		if p := recover(); p != nil {
			resp = h.fail(r, "panic", intentErrors.New(intentErrors.CategoryDegraded, "panic", fmt.Sprintf("panic: %v", p)))
		}
		resp.RequestID = r.id
		resp.Classification = r.classification
		resp.States = r.states
		if resp.ToolsUsed == nil {
			resp.ToolsUsed = []string{}
		}
		metrics.ObserveResponse(resp.Approach, resp.Success)
		r.logger.Info().
			Str(logger.ApproachField, resp.Approach).
			Bool("success", resp.Success).
			Dur("latency", time.Since(start)).
			Msg("request answered")
		h.publish(r, resp, time.Since(start))
	}()

	return h.process(ctx, r)
}

func (h *Handler) process(ctx context.Context, r *run) models.Response {
	r.transition(models.Classify)
	cctx, cancel := context.WithTimeout(ctx, h.cfg.ClassifyTimeout)
	r.classification = h.deps.Classifier.Classify(cctx, r.req.Utterance, r.req.History)
	cancel()
	r.logger = r.logger.With().Str(logger.KindField, string(r.classification.Kind)).Int(logger.TierField, r.classification.TierUsed).Logger()
	if h.deps.Ledger != nil {
		if err := h.deps.Ledger.LogClassification(ctx, r.id.String(), r.req.UserID, r.classification); err != nil {
			r.logger.Warn().Err(err).Msg("unable to record classification")
		}
	}

	if strings.TrimSpace(r.req.Utterance) == "" {
		return h.fail(r, "input", intentErrors.New(intentErrors.CategoryInvalidInput, codeEmptyUtterance, "utterance is empty"))
	}

	r.transition(models.PolicyFilter)
	r.policy = h.policyFor(ctx, r)

	switch r.classification.Kind {
	case models.GeneralKnowledge:
		return h.answerDirect(ctx, r, false, models.ApproachGeneralKnowledge)
	case models.CurrentInfo:
		search := r.policy.Allows(models.CategoryWeb) && h.deps.Registry.Has(tools.WebSearch)
		return h.answerDirect(ctx, r, search, models.ApproachCurrentInfo)
	case models.PersonalData:
		return h.personalData(ctx, r)
	case models.ContextDependent:
		if classify.HistoryMentionsData(r.req.History, h.cfg.HistoryWindow) {
			return h.answerFromContext(ctx, r)
		}
		return h.planned(ctx, r)
	case models.Ambiguous:
		return h.planned(ctx, r)
	default:
		return h.fail(r, "classify", intentErrors.New(intentErrors.CategoryClassification, "unknown_kind",
			fmt.Sprintf("unhandled classification kind %q", r.classification.Kind)))
	}
}

func (h *Handler) policyFor(ctx context.Context, r *run) models.UsagePolicy {
	if r.req.Policy != nil {
		err := r.req.Policy.Validate()
		if err == nil {
			return *r.req.Policy
		}
		h.logError(r, "policy", intentErrors.Wrap(err, intentErrors.CategoryInvalidInput, "invalid_policy"))
	}
	if h.deps.Policies == nil {
		return models.DefaultPolicy()
	}
	p, err := h.deps.Policies.Policy(ctx, r.req.UserID)
	if err != nil {
		r.logger.Warn().Err(err).Msg("policy lookup failed, using the default policy")
		return models.DefaultPolicy()
	}
	if err := p.Validate(); err != nil {
		r.logger.Warn().Err(err).Msg("stored policy is invalid, using the default policy")
		return models.DefaultPolicy()
	}
	return p
}

func (h *Handler) answerDirect(ctx context.Context, r *run, search bool, approach string) models.Response {
	r.transition(models.AnswerDirect)

	var (
		searchResults string
		used          []string
	)
	if search {
		r.transition(models.ExecuteTools)
		res := h.callTool(ctx, r, tools.WebSearch, h.deps.Registry.DefaultParams(tools.WebSearch, r.req.Utterance))
		if ctx.Err() != nil {
			return h.cancelled(r)
		}
		if res.Success {
			searchResults = res.Payload()
			used = []string{tools.WebSearch}
		}
	}

	sctx, cancel := context.WithTimeout(ctx, h.cfg.SynthesisTimeout)
	defer cancel()
	answer, err := h.deps.Responder.Answer(sctx, r.req.Utterance, r.req.History, searchResults)
	if err != nil {
		return h.fail(r, "answer", err)
	}
	return h.done(r, answer, approach, used)
}

func (h *Handler) answerFromContext(ctx context.Context, r *run) models.Response {
	r.transition(models.AnswerDirect)
	sctx, cancel := context.WithTimeout(ctx, h.cfg.SynthesisTimeout)
	defer cancel()
	answer, err := h.deps.Responder.AnswerFromContext(sctx, r.req.Utterance, r.req.History)
	if err != nil {
		return h.fail(r, "context_answer", err)
	}
	return h.done(r, answer, models.ApproachContextAnswer, nil)
}

// personalData only ever runs tools the classification suggested. Without suggestions
// nothing may run, which is answered like a policy block.
func (h *Handler) personalData(ctx context.Context, r *run) models.Response {
	allowed, blocked := h.filterTools(ctx, r.classification.SuggestedTools, r.policy)
	if len(allowed) == 0 {
		return h.blocked(r, blocked)
	}

	r.transition(models.ExecuteTools)
	results := h.executeIndependent(ctx, r, allowed)
	if ctx.Err() != nil {
		return h.cancelled(r)
	}

	if successes(results) == 0 && h.cfg.Replan && h.deps.Planner != nil {
		results = append(results, h.replan(ctx, r, results, allowed)...)
		if ctx.Err() != nil {
			return h.cancelled(r)
		}
	}
	return h.synthesize(ctx, r, results, models.ApproachToolBased)
}

func (h *Handler) planned(ctx context.Context, r *run) models.Response {
	r.transition(models.PlanTools)
	plan, err := h.deps.Planner.Plan(ctx, r.req.Utterance, r.req.History, "")
	if err != nil {
		return h.fail(r, "plan", err)
	}
	if !plan.NeedsTools || len(plan.Steps) == 0 {
		return h.answerDirect(ctx, r, false, models.ApproachLLMPlanned)
	}

	steps, blocked := h.filterSteps(plan.Steps, r.policy, nil)
	if len(steps) == 0 {
		return h.blocked(r, blocked)
	}

	r.transition(models.ExecuteTools)
	results := h.executePlan(ctx, r, steps)
	if ctx.Err() != nil {
		return h.cancelled(r)
	}

	if successes(results) == 0 && h.cfg.Replan {
		results = append(results, h.replan(ctx, r, results, nil)...)
		if ctx.Err() != nil {
			return h.cancelled(r)
		}
	}
	return h.synthesize(ctx, r, results, models.ApproachLLMPlanned)
}

// replan asks the planner once more with the failures as feedback. When only is set the
// new plan is restricted to those tools.
func (h *Handler) replan(ctx context.Context, r *run, failed []models.ToolResult, only []string) []models.ToolResult {
	r.transition(models.PlanTools)
	plan, err := h.deps.Planner.Plan(ctx, r.req.Utterance, r.req.History, feedback(failed))
	if err != nil {
		h.logError(r, "replan", err)
		return nil
	}
	steps, _ := h.filterSteps(plan.Steps, r.policy, only)
	if len(steps) == 0 {
		return nil
	}
	r.logger.Info().Int("steps", len(steps)).Msg("retrying with a new plan")
	r.transition(models.ExecuteTools)
	return h.executePlan(ctx, r, steps)
}

func (h *Handler) synthesize(ctx context.Context, r *run, results []models.ToolResult, approach string) models.Response {
	r.transition(models.Synthesize)

	used := usedTools(results)
	if len(used) == 0 {
		attempted := attemptedTools(results)
		h.logError(r, "execute", intentErrors.New(intentErrors.CategoryToolExecution, "all_tools_failed",
			"no tool succeeded: "+strings.Join(attempted, ", ")))
		r.transition(models.Done)
		return models.Response{
			Success:  false,
			Response: toolsFailedMessage(attempted),
			Approach: approach,
		}
	}

	sctx, cancel := context.WithTimeout(ctx, h.cfg.SynthesisTimeout)
	defer cancel()
	answer, err := h.deps.Responder.Synthesize(sctx, r.req.Utterance, results)
	if err != nil {
		return h.fail(r, "synthesis", err)
	}
	return h.done(r, answer, approach, used)
}

func (h *Handler) done(r *run, answer, approach string, used []string) models.Response {
	r.transition(models.Done)
	return models.Response{
		Success:   true,
		Response:  answer,
		Approach:  approach,
		ToolsUsed: used,
	}
}

// blocked answers a request none of whose tools may run. categories lists the disabled
// categories that removed a tool, if any.
func (h *Handler) blocked(r *run, categories []models.Category) models.Response {
	var (
		code = "categories_disabled"
		msg  = blockedMessage(categories)
	)
	switch {
	case !r.policy.AutoToolUsage:
		code, msg = "auto_tool_usage_off", msgAutoOff
	case len(categories) == 0:
		code, msg = "no_applicable_tools", msgNoTools
	}
	h.logError(r, "policy", intentErrors.New(intentErrors.CategoryPolicyBlocked, code, "no tool may run for this request"))
	r.transition(models.Done)
	return models.Response{
		Success:  false,
		Response: msg,
		Approach: models.ApproachToolsDisabled,
	}
}

func (h *Handler) degraded(r *run, msg string) models.Response {
	r.transition(models.DegradedAnswer)
	return models.Response{
		Success:  false,
		Response: msg,
		Approach: models.ApproachDegraded,
	}
}

// cancelled drops whatever the tools returned; the caller is gone.
func (h *Handler) cancelled(r *run) models.Response {
	r.logger.Info().Msg("request cancelled, discarding tool results")
	return h.degraded(r, msgCancelled)
}

// fail records err and answers with the apology that fits its category.
func (h *Handler) fail(r *run, stage string, err error) models.Response {
	h.logError(r, stage, err)
	return h.degraded(r, degradedMessage(err))
}

// logError logs err and records it in the ledger. Errors without a category are unexpected
// and recorded as degraded.
func (h *Handler) logError(r *run, stage string, err error) {
	category := intentErrors.CategoryOf(err)
	if category == "" {
		category = intentErrors.CategoryDegraded
		err = intentErrors.Wrap(err, category, "unexpected")
	}
	var ev *zerolog.Event
	switch category {
	case intentErrors.CategoryPolicyBlocked, intentErrors.CategoryInvalidInput:
		ev = r.logger.Info()
	case intentErrors.CategoryToolExecution:
		ev = r.logger.Warn()
	default:
		ev = r.logger.Error()
	}
	ev.Err(err).
		Str("stage", stage).
		Str("category", string(category)).
		Str("code", intentErrors.CodeOf(err)).
		Msg("request step failed")
	if h.deps.Ledger == nil {
		return
	}
	if lerr := h.deps.Ledger.LogError(context.Background(), r.id.String(), stage, err); lerr != nil {
		r.logger.Warn().Err(lerr).Msg("unable to record error")
	}
}

func (h *Handler) publish(r *run, resp models.Response, latency time.Duration) {
	if h.deps.Publisher == nil {
		return
	}
	h.deps.Publisher.Publish(messages.EvaluationRequest{
		RequestID: r.id,
		UserID:    r.req.UserID,
		Question:  r.req.Utterance,
		Answer:    resp.Response,
		Approach:  resp.Approach,
		Kind:      r.classification.Kind,
		Tier:      r.classification.TierUsed,
		ToolsUsed: resp.ToolsUsed,
		Success:   resp.Success,
		Latency:   latency,
	})
}
