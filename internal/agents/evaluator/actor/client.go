package actor

import (
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"go-intentflow/pkg/messages"
)

// Client is the handle the rest of the service uses to reach the evaluator actor.
type Client struct {
	root    *actor.RootContext
	pid     *actor.PID
	timeout time.Duration
}

// Spawn starts the evaluator under a restart-on-failure supervisor.
func Spawn(root *actor.RootContext, producer actor.Producer, timeout time.Duration) *Client {
	decider := func(reason interface{}) actor.Directive {
		log.Error().Msgf("handling failure for evaluator. reason: %v", reason)
		return actor.RestartDirective
	}
	props := actor.PropsFromProducer(producer, actor.WithSupervisor(actor.NewOneForOneStrategy(3, 10*time.Second, decider)))
	return &Client{root: root, pid: root.Spawn(props), timeout: timeout}
}

// Publish hands the request over without waiting.
func (c *Client) Publish(req messages.EvaluationRequest) {
	c.root.Send(c.pid, req)
}

// Lookup returns the stored evaluation, or false while it is pending or unknown.
func (c *Client) Lookup(id uuid.UUID) (messages.EvaluationResult, bool, error) {
	res, err := c.root.RequestFuture(c.pid, messages.GetEvaluation{RequestID: id}, c.timeout).Result()
	if err != nil {
		return messages.EvaluationResult{}, false, fmt.Errorf("request evaluation: %w", err)
	}
	switch v := res.(type) {
	case messages.EvaluationResult:
		return v, true, nil
	case messages.EvaluationPending:
		return messages.EvaluationResult{}, false, nil
	default:
		return messages.EvaluationResult{}, false, fmt.Errorf("unexpected reply %T", res)
	}
}

// Stop waits for queued evaluations to drain and stops the actor.
func (c *Client) Stop() error {
	return c.root.PoisonFuture(c.pid).Wait()
}
