package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	zLog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	evaluatorActor "go-intentflow/internal/agents/evaluator/actor"
	evaluatorHandler "go-intentflow/internal/agents/evaluator/handler"
	masterHandler "go-intentflow/internal/agents/master/handler"
	plannerHandler "go-intentflow/internal/agents/planner/handler"
	responderHandler "go-intentflow/internal/agents/responder/handler"
	"go-intentflow/internal/analytics"
	"go-intentflow/internal/api"
	"go-intentflow/internal/classify"
	"go-intentflow/internal/config"
	"go-intentflow/internal/policy"
	"go-intentflow/internal/scheduler"
	"go-intentflow/pkg/llm"
	"go-intentflow/pkg/tools"
)

func newServeCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg config.Config) error {
	zLog.Info().Msg("starting server")
	if err := cfg.LLM.Export(); err != nil {
		return fmt.Errorf("export llm settings: %w", err)
	}
	completer, err := llm.NewOpenAI()
	if err != nil {
		return err
	}

	ledger, err := openAnalytics(cfg.Analytics)
	if err != nil {
		return err
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			zLog.Error().Err(err).Msg("unable to close analytics store")
		}
	}()

	policies, err := policy.NewStatic(cfg.Policy.Default, cfg.Policy.Users)
	if err != nil {
		return err
	}

	registry := tools.NewDefaultRegistry()
	// adapters are registered by the embedding deployment; unregistered tools report failure
	executor := tools.NewDispatcher(registry)

	window := cfg.Classifier.HistoryWindow
	var semantic *classify.SemanticClassifier
	if cfg.Classifier.SemanticEnabled {
		semantic = classify.NewSemanticClassifier(completer, registry, cfg.Classifier.SemanticTimeout, window)
	}

	system := actor.NewActorSystem().Root
	evaluations := evaluatorActor.Spawn(
		system,
		evaluatorActor.New(evaluatorHandler.New(completer, registry, cfg.Evaluator), ledger, cfg.Evaluator.CacheSize, cfg.Evaluator.CacheTTL),
		cfg.Evaluator.Timeout,
	)

	master := masterHandler.New(masterHandler.Deps{
		Classifier: classify.NewPipeline(cfg.Classifier.Thresholds, window, semantic),
		Planner:    plannerHandler.New(completer, registry, cfg.Orchestrator.SynthesisTimeout, window),
		Responder:  responderHandler.New(completer, cfg.Orchestrator.SynthesisTimeout, window),
		Executor:   executor,
		Registry:   registry,
		Policies:   policies,
		Ledger:     ledger,
		Publisher:  evaluations,
	}, cfg.Orchestrator)

	jobs := scheduler.New()
	if err := jobs.ScheduleTrim(cfg.Analytics.TrimSchedule, ledger, cfg.Analytics.Retention); err != nil {
		return err
	}
	jobs.Start()

	app := api.New(system, api.Deps{Processor: master, Evaluations: evaluations, Analytics: ledger}, cfg.Server)

	go func() {
		err := app.Start()
		if err != nil {
			zLog.Panic().Err(err).Msg("server crash")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	stop()
	zLog.Info().Msg("shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		zLog.Error().Err(err).Msg("server forced to shutdown")
	}
	jobs.Stop()
	if err := evaluations.Stop(); err != nil {
		zLog.Error().Err(err).Msg("evaluator did not drain")
	}

	zLog.Info().Msg("server exiting")
	return nil
}

func openAnalytics(cfg config.AnalyticsConfig) (*analytics.Analytics, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		store, err := analytics.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return analytics.New(store), nil
	default:
		return analytics.New(analytics.NewMemoryStore()), nil
	}
}
