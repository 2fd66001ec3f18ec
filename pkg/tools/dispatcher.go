package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"go-intentflow/pkg/logger"
	"go-intentflow/pkg/models"
)

// HandlerFunc is a concrete tool adapter.
type HandlerFunc func(ctx context.Context, params map[string]any) (models.ToolResult, error)

// Dispatcher routes tool calls to registered adapters. It validates parameters against the
// registry before calling and turns adapter errors and panics into failed results.
type Dispatcher struct {
	registry *Registry
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry, handlers: map[string]HandlerFunc{}}
}

func (d *Dispatcher) Handle(name string, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = fn
}

func (d *Dispatcher) Call(ctx context.Context, name string, params map[string]any) (res models.ToolResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			log.Error().Str(logger.ToolField, name).Msgf("tool adapter panicked: %v", p)
			res = models.Failed(name, fmt.Sprintf("tool %s panicked", name))
		}
		res.Tool = name
		res.Latency = time.Since(start)
	}()

	d.mu.RLock()
	fn, ok := d.handlers[name]
	d.mu.RUnlock()
	if !ok {
		return models.Failed(name, fmt.Sprintf("no adapter registered for tool %s", name))
	}
	if d.registry != nil {
		if err := d.registry.Validate(name, params); err != nil {
			return models.Failed(name, err.Error())
		}
	}

	out, err := fn(ctx, params)
	if err != nil {
		return models.Failed(name, err.Error())
	}
	if ctx.Err() != nil && !out.Success {
		return models.Failed(name, ctx.Err().Error())
	}
	return out
}
