// Package llmtest provides a scripted llm.Completer for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	langChainPrompts "github.com/tmc/langchaingo/prompts"

	"go-intentflow/pkg/prompts"
)

var ErrUnscripted = errors.New("llmtest: no scripted answer")

// Prompt names used to script answers.
const (
	Classification = "classification"
	Plan           = "plan"
	Synthesis      = "synthesis"
	DirectAnswer   = "direct_answer"
	ContextAnswer  = "context_answer"
	Evaluation     = "evaluation"
)

// Call is one recorded completion request.
type Call struct {
	Prompt string
	Vars   map[string]any
}

// Fake answers each prompt with the scripted answers in order, repeating the last one.
type Fake struct {
	mu      sync.Mutex
	answers map[string][]string
	errs    map[string]error
	calls   []Call
	block   map[string]bool
}

func New() *Fake {
	return &Fake{
		answers: map[string][]string{},
		errs:    map[string]error{},
		block:   map[string]bool{},
	}
}

func (f *Fake) Answer(prompt string, answers ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[prompt] = append(f.answers[prompt], answers...)
	return f
}

func (f *Fake) Fail(prompt string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[prompt] = err
	return f
}

// Block makes calls for prompt wait until their context ends.
func (f *Fake) Block(prompt string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block[prompt] = true
	return f
}

func (f *Fake) Complete(ctx context.Context, prompt langChainPrompts.PromptTemplate, vars map[string]any) (string, error) {
	name := NameOf(prompt)

	f.mu.Lock()
	f.calls = append(f.calls, Call{Prompt: name, Vars: vars})
	blocked := f.block[name]
	err := f.errs[name]
	var answer string
	scripted := f.answers[name]
	if len(scripted) > 0 {
		answer = scripted[0]
		if len(scripted) > 1 {
			f.answers[name] = scripted[1:]
		}
	}
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	if len(scripted) == 0 {
		return "", ErrUnscripted
	}
	return answer, nil
}

// Calls returns the recorded calls for prompt, or all calls when prompt is empty.
func (f *Fake) Calls(prompt string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if prompt == "" || c.Prompt == prompt {
			out = append(out, c)
		}
	}
	return out
}

func NameOf(prompt langChainPrompts.PromptTemplate) string {
	switch prompt.Template {
	case prompts.Classification.Template:
		return Classification
	case prompts.Plan.Template:
		return Plan
	case prompts.Synthesis.Template:
		return Synthesis
	case prompts.DirectAnswer.Template:
		return DirectAnswer
	case prompts.ContextAnswer.Template:
		return ContextAnswer
	case prompts.Evaluation.Template:
		return Evaluation
	default:
		return "unknown"
	}
}
