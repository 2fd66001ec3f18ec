package actor

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"go-intentflow/internal/agents/evaluator/handler"
	"go-intentflow/internal/analytics"
	"go-intentflow/internal/metrics"
	"go-intentflow/pkg/logger"
	"go-intentflow/pkg/messages"
	"go-intentflow/pkg/models"
)

// Recorder receives the evaluation feedback.
type Recorder interface {
	LogApproachEffectiveness(ctx context.Context, o analytics.Outcome) error
	LogSuggestion(ctx context.Context, requestID string, s models.Suggestion) error
}

type Evaluator struct {
	handler  *handler.Handler
	recorder Recorder
	results  *expirable.LRU[uuid.UUID, messages.EvaluationResult]
}

// New returns a producer for props, so a restarted actor gets fresh state around the same handler.
func New(h *handler.Handler, recorder Recorder, size int, ttl time.Duration) actor.Producer {
	return func() actor.Actor {
		return &Evaluator{
			handler:  h,
			recorder: recorder,
			results:  expirable.NewLRU[uuid.UUID, messages.EvaluationResult](size, nil, ttl),
		}
	}
}

func (agent *Evaluator) Receive(ac actor.Context) {
	l := log.With().Fields(map[string]interface{}{logger.ActorIDField: ac.Self().GetId(), logger.AgentNameField: "evaluator"}).Logger()
	switch msg := ac.Message().(type) {
	case *actor.Started:
		l.Debug().Msg("starting actor")
	case *actor.Stopping:
		l.Debug().Msg("stopping actor")
	case *actor.Stopped:
		l.Debug().Msg("stopped actor")
	case *actor.Restarting:
		l.Debug().Msg("restarting actor")
	case messages.EvaluationRequest:
		l.Debug().Str(logger.RequestIDField, msg.RequestID.String()).Msg("EvaluationRequest received")
		agent.evaluate(msg)
	case messages.GetEvaluation:
		if res, ok := agent.results.Get(msg.RequestID); ok {
			ac.Respond(res)
			return
		}
		ac.Respond(messages.EvaluationPending{RequestID: msg.RequestID})
	default:
		l.Warn().Msgf("unknown message: %v", msg)
	}
}

func (agent *Evaluator) evaluate(msg messages.EvaluationRequest) {
	l := log.With().Str(logger.AgentNameField, "evaluator").Str(logger.RequestIDField, msg.RequestID.String()).Logger()
	ctx := context.Background()

	rec := agent.handler.Evaluate(ctx, msg.Question, msg.Answer, msg.ToolsUsed)
	metrics.EvaluationScore.Observe(rec.QualityScore)

	res := messages.EvaluationResult{RequestID: msg.RequestID, Record: rec}
	suggestion := agent.handler.SuggestBetterApproach(msg.Question, msg.Approach, msg.ToolsUsed, rec)
	if suggestion.Switch || len(suggestion.ReplaceTools) > 0 {
		res.Suggestion = &suggestion
	}
	agent.results.Add(msg.RequestID, res)

	if agent.recorder == nil {
		return
	}
	err := agent.recorder.LogApproachEffectiveness(ctx, analytics.Outcome{
		RequestID: msg.RequestID.String(),
		UserID:    msg.UserID,
		Approach:  msg.Approach,
		Kind:      msg.Kind,
		Success:   msg.Success,
		Quality:   rec.QualityScore,
		Evaluated: true,
	})
	if err != nil {
		l.Warn().Err(err).Msg("unable to record approach effectiveness")
	}
	if res.Suggestion != nil {
		l.Info().Str(logger.ApproachField, msg.Approach).Msgf("suggestion: %s", res.Suggestion)
		if err := agent.recorder.LogSuggestion(ctx, msg.RequestID.String(), *res.Suggestion); err != nil {
			l.Warn().Err(err).Msg("unable to record suggestion")
		}
	}
}
