package handler

import (
	"context"
	"sync"
	"time"

	plannerHandler "go-intentflow/internal/agents/planner/handler"
	responderHandler "go-intentflow/internal/agents/responder/handler"
	"go-intentflow/internal/classify"
	"go-intentflow/internal/policy"
	intentErrors "go-intentflow/pkg/errors"
	"go-intentflow/pkg/llm/llmtest"
	"go-intentflow/pkg/messages"
	"go-intentflow/pkg/models"
	"go-intentflow/pkg/tools"
)

type toolCall struct {
	name   string
	params map[string]any
}

type fakeExecutor struct {
	mu      sync.Mutex
	calls   []toolCall
	results map[string]models.ToolResult
	fn      func(ctx context.Context, name string, params map[string]any) models.ToolResult
}

func newExecutor() *fakeExecutor {
	return &fakeExecutor{results: map[string]models.ToolResult{}}
}

func (f *fakeExecutor) on(name string, res models.ToolResult) *fakeExecutor {
	res.Tool = name
	f.results[name] = res
	return f
}

func (f *fakeExecutor) Call(ctx context.Context, name string, params map[string]any) models.ToolResult {
	f.mu.Lock()
	f.calls = append(f.calls, toolCall{name: name, params: params})
	fn := f.fn
	res, ok := f.results[name]
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, name, params)
	}
	if !ok {
		return models.Failed(name, "service unavailable")
	}
	return res
}

func (f *fakeExecutor) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.name)
	}
	return out
}

type stubClassifier struct {
	c     models.Classification
	panic bool
}

func (s stubClassifier) Classify(context.Context, string, []models.Message) models.Classification {
	if s.panic {
		panic("classifier exploded")
	}
	return s.c
}

type fakeLedger struct {
	mu          sync.Mutex
	tools       []models.ToolResult
	errs        []string
	categories  []intentErrors.Category
	codes       []string
	classified  []models.Classification
	reliability map[string]float64
	calls       map[string]int
}

func newLedger() *fakeLedger {
	return &fakeLedger{reliability: map[string]float64{}, calls: map[string]int{}}
}

func (l *fakeLedger) LogToolUsage(_ context.Context, _, _ string, r models.ToolResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tools = append(l.tools, r)
	return nil
}

func (l *fakeLedger) LogClassification(_ context.Context, _, _ string, c models.Classification) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.classified = append(l.classified, c)
	return nil
}

func (l *fakeLedger) LogError(_ context.Context, _, stage string, err error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, stage+": "+err.Error())
	l.categories = append(l.categories, intentErrors.CategoryOf(err))
	l.codes = append(l.codes, intentErrors.CodeOf(err))
	return nil
}

func (l *fakeLedger) ToolReliability(_ context.Context, tool string) (int, float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[tool], l.reliability[tool], nil
}

func (l *fakeLedger) recordedTools() []models.ToolResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.ToolResult{}, l.tools...)
}

type fakePublisher struct {
	mu   sync.Mutex
	reqs []messages.EvaluationRequest
}

func (p *fakePublisher) Publish(req messages.EvaluationRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqs = append(p.reqs, req)
}

type fixture struct {
	handler   *Handler
	llm       *llmtest.Fake
	executor  *fakeExecutor
	ledger    *fakeLedger
	publisher *fakePublisher
}

func newFixture(classifier classify.Classifier, cfg Config) *fixture {
	registry := tools.NewDefaultRegistry()
	fake := llmtest.New()
	exec := newExecutor()
	ledger := newLedger()
	pub := &fakePublisher{}
	if classifier == nil {
		classifier = classify.NewPipeline(classify.DefaultThresholds(), 5, nil)
	}
	policies, _ := policy.NewStatic(models.DefaultPolicy(), nil)

	h := New(Deps{
		Classifier: classifier,
		Planner:    plannerHandler.New(fake, registry, time.Second, 5),
		Responder:  responderHandler.New(fake, time.Second, 5),
		Executor:   exec,
		Registry:   registry,
		Policies:   policies,
		Ledger:     ledger,
		Publisher:  pub,
	}, cfg)
	return &fixture{handler: h, llm: fake, executor: exec, ledger: ledger, publisher: pub}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ClassifyTimeout = time.Second
	cfg.ToolTimeout = time.Second
	cfg.SynthesisTimeout = time.Second
	return cfg
}

func policyWith(categories ...models.Category) *models.UsagePolicy {
	p := models.DefaultPolicy()
	p.EnabledCategories = categories
	return &p
}
