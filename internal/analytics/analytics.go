// Package analytics is the usage ledger: tool calls, classifications, approach outcomes,
// suggestions and errors. Every aggregate is recomputed from the stored entries on read.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	intentErrors "go-intentflow/pkg/errors"
	"go-intentflow/pkg/logger"
	"go-intentflow/pkg/models"
)

type Analytics struct {
	store  Store
	now    func() time.Time
	logger zerolog.Logger
}

type Option func(*Analytics)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Analytics) {
		a.now = now
	}
}

func New(store Store, opts ...Option) *Analytics {
	a := &Analytics{
		store:  store,
		now:    time.Now,
		logger: log.With().Str(logger.AgentNameField, "analytics").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analytics) LogToolUsage(ctx context.Context, requestID, userID string, r models.ToolResult) error {
	return a.append(ctx, Entry{
		Type:      EntryTool,
		RequestID: requestID,
		UserID:    userID,
		Tool:      r.Tool,
		Success:   r.Success,
		Latency:   r.Latency,
		Detail:    r.Error,
	})
}

func (a *Analytics) LogClassification(ctx context.Context, requestID, userID string, c models.Classification) error {
	return a.append(ctx, Entry{
		Type:       EntryClassification,
		RequestID:  requestID,
		UserID:     userID,
		Kind:       c.Kind,
		Tier:       c.TierUsed,
		Confidence: c.Confidence,
	})
}

// Outcome is how one request was answered, optionally with its evaluated quality.
type Outcome struct {
	RequestID string
	UserID    string
	Approach  string
	Kind      models.Kind
	Success   bool
	Quality   float64
	Evaluated bool
}

func (a *Analytics) LogApproachEffectiveness(ctx context.Context, o Outcome) error {
	return a.append(ctx, Entry{
		Type:      EntryApproach,
		RequestID: o.RequestID,
		UserID:    o.UserID,
		Approach:  o.Approach,
		Kind:      o.Kind,
		Success:   o.Success,
		Quality:   o.Quality,
		Evaluated: o.Evaluated,
	})
}

func (a *Analytics) LogSuggestion(ctx context.Context, requestID string, s models.Suggestion) error {
	return a.append(ctx, Entry{
		Type:      EntrySuggestion,
		RequestID: requestID,
		Approach:  s.Current,
		Detail:    s.String(),
	})
}

// LogError records a failure message with its category and code. These never reach end users.
func (a *Analytics) LogError(ctx context.Context, requestID, stage string, err error) error {
	if err == nil {
		return nil
	}
	return a.append(ctx, Entry{
		Type:          EntryError,
		RequestID:     requestID,
		Detail:        fmt.Sprintf("%s: %v", stage, err),
		ErrorCategory: string(intentErrors.CategoryOf(err)),
		ErrorCode:     intentErrors.CodeOf(err),
	})
}

func (a *Analytics) append(ctx context.Context, e Entry) error {
	e.Time = a.now()
	if err := a.store.Append(ctx, e); err != nil {
		a.logger.Warn().Err(err).Str("type", string(e.Type)).Msg("failed to append analytics entry")
		return err
	}
	return nil
}

// Stats aggregates the entries of the last window; a zero window covers the whole ledger.
func (a *Analytics) Stats(ctx context.Context, window time.Duration) (Stats, error) {
	var since time.Time
	if window > 0 {
		since = a.now().Add(-window)
	}
	entries, err := a.store.Entries(ctx, since)
	if err != nil {
		return Stats{}, fmt.Errorf("load entries: %w", err)
	}
	s := compute(entries)
	s.Since = since
	return s, nil
}

func (a *Analytics) Recommendations(ctx context.Context, window time.Duration) ([]Recommendation, error) {
	s, err := a.Stats(ctx, window)
	if err != nil {
		return nil, err
	}
	return Recommend(s), nil
}

// ToolReliability returns how often tool was called and its success rate over the whole ledger.
func (a *Analytics) ToolReliability(ctx context.Context, tool string) (int, float64, error) {
	calls, ok, err := a.store.ToolCounts(ctx, tool)
	if err != nil {
		return 0, 0, err
	}
	if calls == 0 {
		return 0, 0, nil
	}
	return calls, float64(ok) / float64(calls), nil
}

// Trim drops entries older than maxAge.
func (a *Analytics) Trim(ctx context.Context, maxAge time.Duration) (int, error) {
	n, err := a.store.Trim(ctx, a.now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	a.logger.Info().Int("removed", n).Dur("max_age", maxAge).Msg("trimmed analytics")
	return n, nil
}

func (a *Analytics) Close() error {
	return a.store.Close()
}
