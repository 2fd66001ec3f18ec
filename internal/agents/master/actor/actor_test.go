package actor

import (
	"context"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-intentflow/pkg/models"
)

type processorFunc func(ctx context.Context, req models.Request) models.Response

func (f processorFunc) Process(ctx context.Context, req models.Request) models.Response {
	return f(ctx, req)
}

func TestMasterAnswersOnce(t *testing.T) {
	system := actor.NewActorSystem()
	p := processorFunc(func(_ context.Context, req models.Request) models.Response {
		return models.Response{Success: true, Response: "echo: " + req.Utterance, ToolsUsed: []string{}}
	})

	pid := Spawn(system.Root, New(p))
	resp, err := Ask(context.Background(), system.Root, pid, models.Request{Utterance: "hi"}, time.Second)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "echo: hi", resp.Response)

	// the actor is gone after answering
	_, err = Ask(context.Background(), system.Root, pid, models.Request{Utterance: "again"}, 200*time.Millisecond)
	assert.Error(t, err)
}

func TestMasterPassesCallerContext(t *testing.T) {
	system := actor.NewActorSystem()
	p := processorFunc(func(ctx context.Context, _ models.Request) models.Response {
		if ctx.Err() != nil {
			return models.Response{Success: false, Response: "cancelled"}
		}
		return models.Response{Success: true}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp, err := Ask(ctx, system.Root, Spawn(system.Root, New(p)), models.Request{Utterance: "hi"}, time.Second)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "cancelled", resp.Response)
}
