// Package handler turns tool output or model knowledge into the user-facing answer.
package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	langChainPrompts "github.com/tmc/langchaingo/prompts"

	"go-intentflow/pkg/data"
	"go-intentflow/pkg/errors"
	"go-intentflow/pkg/llm"
	"go-intentflow/pkg/memory/buffer"
	"go-intentflow/pkg/models"
	"go-intentflow/pkg/prompts"
)

type Handler struct {
	llm     llm.Completer
	timeout time.Duration
	window  int
}

func New(completer llm.Completer, timeout time.Duration, window int) *Handler {
	if window <= 0 {
		window = 5
	}
	return &Handler{llm: completer, timeout: timeout, window: window}
}

// Answer replies from model knowledge, grounded on searchResults when present.
func (h *Handler) Answer(ctx context.Context, question string, history []models.Message, searchResults string) (string, error) {
	results := ""
	if searchResults != "" {
		results = "\nWeb search results:\n" + searchResults + "\n"
	}
	answer, err := h.complete(ctx, prompts.DirectAnswer, map[string]any{
		"Question":      question,
		"History":       buffer.New(history).Recent(h.window).Transcript(),
		"SearchResults": results,
	})
	if err != nil {
		return "", err
	}
	if searchResults != "" {
		answer = EnsureURLs(answer, []string{searchResults})
	}
	return answer, nil
}

// AnswerFromContext replies using only the conversation so far.
func (h *Handler) AnswerFromContext(ctx context.Context, question string, history []models.Message) (string, error) {
	return h.complete(ctx, prompts.ContextAnswer, map[string]any{
		"Question": question,
		"History":  buffer.New(history).Recent(h.window).Transcript(),
	})
}

// Synthesize answers question from successful tool results only. Every URL in the used
// payloads ends up in the answer unchanged.
func (h *Handler) Synthesize(ctx context.Context, question string, results []models.ToolResult) (string, error) {
	var b strings.Builder
	payloads := make([]string, 0, len(results))
	for _, r := range results {
		if !r.Success {
			continue
		}
		p := r.Payload()
		payloads = append(payloads, p)
		fmt.Fprintf(&b, "[%s]\n%s\n\n", r.Tool, p)
	}
	if len(payloads) == 0 {
		return "", errors.New(errors.CategorySynthesis, "no_results", "no successful tool results to synthesize")
	}

	answer, err := h.complete(ctx, prompts.Synthesis, map[string]any{
		"Question": question,
		"Results":  strings.TrimSpace(b.String()),
	})
	if err != nil {
		return "", err
	}
	return EnsureURLs(answer, payloads), nil
}

func (h *Handler) complete(ctx context.Context, prompt langChainPrompts.PromptTemplate, vars map[string]any) (string, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	answer, err := h.llm.Complete(ctx, prompt, vars)
	if err != nil {
		return "", errors.Wrap(fmt.Errorf("call: %w", err), errors.CategorySynthesis, "llm_call")
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", errors.New(errors.CategorySynthesis, "empty_answer", "model returned an empty answer")
	}
	return answer, nil
}

// EnsureURLs appends every URL found in payloads that the answer does not already contain,
// byte for byte.
func EnsureURLs(answer string, payloads []string) string {
	var missing []string
	seen := map[string]bool{}
	for _, u := range data.URLs(answer) {
		seen[u] = true
	}
	for _, p := range payloads {
		for _, u := range data.URLs(p) {
			if seen[u] {
				continue
			}
			seen[u] = true
			missing = append(missing, u)
		}
	}
	if len(missing) == 0 {
		return answer
	}
	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\nLinks:")
	for _, u := range missing {
		b.WriteString("\n- ")
		b.WriteString(u)
	}
	return b.String()
}
