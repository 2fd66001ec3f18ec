// Package llm adapts langchaingo models to the completion contract used by the engine.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/prompts"
)

// Completer renders a prompt template with vars and returns the model's text answer.
type Completer interface {
	Complete(ctx context.Context, prompt prompts.PromptTemplate, vars map[string]any) (string, error)
}

type LangChain struct {
	llm llms.LLM
}

func New(model llms.LLM) *LangChain {
	return &LangChain{llm: model}
}

// NewOpenAI builds an adapter over the OpenAI client. The client reads OPENAI_API_KEY and
// OPENAI_MODEL from the environment.
func NewOpenAI() (*LangChain, error) {
	model, err := openai.New()
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return New(model), nil
}

func (c *LangChain) Complete(ctx context.Context, prompt prompts.PromptTemplate, vars map[string]any) (string, error) {
	chain := chains.NewLLMChain(c.llm, prompt)
	completion, err := chains.Call(ctx, chain, vars)
	if err != nil {
		return "", fmt.Errorf("call: %w", err)
	}
	text, ok := completion["text"].(string)
	if !ok {
		return "", errors.New("completion without text output")
	}
	return text, nil
}
