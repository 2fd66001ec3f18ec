package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/rs/zerolog/log"

	"go-intentflow/pkg/logger"
	"go-intentflow/pkg/messages"
	"go-intentflow/pkg/models"
)

// Processor answers a single request; *handler.Handler implements it.
type Processor interface {
	Process(ctx context.Context, req models.Request) models.Response
}

// Master handles exactly one Chat and stops itself after responding.
type Master struct {
	processor Processor
}

func New(p Processor) actor.Producer {
	return func() actor.Actor {
		return &Master{processor: p}
	}
}

func (agent *Master) Receive(ac actor.Context) {
	l := log.With().Fields(map[string]interface{}{logger.ActorIDField: ac.Self().GetId(), logger.AgentNameField: "master"}).Logger()
	switch msg := ac.Message().(type) {
	case *actor.Started:
		l.Debug().Msg("starting actor")
	case *actor.Stopping:
		l.Debug().Msg("stopping actor")
	case *actor.Stopped:
		l.Debug().Msg("stopped actor")
	case *actor.Restarting:
		l.Debug().Msg("restarting actor")
	case messages.Chat:
		l.Debug().Str(logger.UserIDField, msg.Request.UserID).Msg("Chat received")
		ctx := msg.Ctx
		if ctx == nil {
			ctx = context.Background()
		}
		resp := agent.processor.Process(ctx, msg.Request)
		ac.Respond(resp)
		ac.Stop(ac.Self())
	default:
		l.Warn().Msgf("unknown message: %v", msg)
	}
}

// Spawn starts a master actor for one request.
func Spawn(root *actor.RootContext, producer actor.Producer) *actor.PID {
	decider := func(reason interface{}) actor.Directive {
		log.Error().Msgf("handling failure for master. reason: %v", reason)
		return actor.StopDirective
	}
	props := actor.PropsFromProducer(producer, actor.WithSupervisor(actor.NewOneForOneStrategy(3, 10*time.Second, decider)))
	return root.Spawn(props)
}

// Ask sends req to pid and waits for the response.
func Ask(ctx context.Context, root *actor.RootContext, pid *actor.PID, req models.Request, timeout time.Duration) (models.Response, error) {
	res, err := root.RequestFuture(pid, messages.Chat{Ctx: ctx, Request: req}, timeout).Result()
	if err != nil {
		return models.Response{}, fmt.Errorf("master actor: %w", err)
	}
	resp, ok := res.(models.Response)
	if !ok {
		return models.Response{}, fmt.Errorf("master actor: unexpected reply %T", res)
	}
	return resp, nil
}
