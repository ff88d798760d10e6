// Package app wires configuration into a running pipeline: providers,
// breakers, fusion, persistence and the recovery orchestrator.
package app

import (
	"context"
	"time"

	"github.com/uxray-ai/uxray/internal/adapters/image"
	"github.com/uxray-ai/uxray/internal/adapters/provider"
	"github.com/uxray-ai/uxray/internal/adapters/state"
	"github.com/uxray-ai/uxray/internal/config"
	"github.com/uxray-ai/uxray/internal/core"
	"github.com/uxray-ai/uxray/internal/detect"
	"github.com/uxray-ai/uxray/internal/events"
	"github.com/uxray-ai/uxray/internal/logging"
	"github.com/uxray-ai/uxray/internal/metrics"
	"github.com/uxray-ai/uxray/internal/service"
)

// App holds the assembled application graph.
type App struct {
	Config       *config.Config
	Logger       *logging.Logger
	Metrics      *metrics.Metrics
	Bus          *events.Bus
	Store        core.Store
	Registry     *provider.Registry
	Breakers     *service.BreakerRegistry
	Pipeline     *service.Pipeline
	Orchestrator *service.RecoveryOrchestrator
}

// New assembles the application from validated configuration.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	m := metrics.New()
	bus := events.NewBus()

	store, err := state.NewStore(ctx, cfg.State)
	if err != nil {
		return nil, err
	}

	registry, err := provider.BuildRegistry(cfg.Providers)
	if err != nil {
		_ = state.CloseStore(store)
		return nil, err
	}

	breakers := service.NewBreakerRegistry(service.BreakerSettings{
		FailureThreshold:   cfg.Breaker.FailureThreshold,
		RecoveryTimeout:    parseDuration(cfg.Breaker.RecoveryTimeout, 30*time.Second),
		HalfOpenRetryLimit: cfg.Breaker.HalfOpenRetryLimit,
	}, logger)
	breakers.OnTransition(func(operation string, t service.Transition) {
		m.ObserveBreakerTransition(operation, string(t.To))
		bus.Publish(events.Event{
			Type: events.BreakerTransitioned,
			Fields: map[string]interface{}{
				"operation": operation,
				"from":      string(t.From),
				"to":        string(t.To),
				"reason":    t.Reason,
			},
		})
	})

	imageSource, err := image.NewSource(cfg.Images)
	if err != nil {
		_ = state.CloseStore(store)
		return nil, err
	}

	checkpoints := service.NewCheckpointer(store,
		parseDuration(cfg.State.CheckpointTTL, 24*time.Hour), logger)

	pipeline := service.NewPipeline(service.PipelineDeps{
		Detector:    detect.New(cfg.Pipeline.ClarificationThreshold),
		Coordinator: service.NewCoordinator(registry, service.NewInvoker(logger), breakers, logger, m),
		Fusion:      service.NewFusionEngine(cfg.Fusion.AgreementMulti, cfg.Fusion.AgreementSingle),
		Validator:   service.NewValidator(),
		Checkpoints: checkpoints,
		Store:       store,
		Images:      imageSource,
		Plans:       stagePlans(cfg.Stages),
		Logger:      logger,
		Metrics:     m,
		Bus:         bus,
	})

	retry := service.NewRetryPolicy(
		service.WithMaxAttempts(cfg.Pipeline.MaxRecoveryAttempts+1),
		service.WithBaseDelay(parseDuration(cfg.Retry.BaseDelay, time.Second)),
		service.WithMaxDelay(parseDuration(cfg.Retry.MaxDelay, 30*time.Second)),
		service.WithJitter(cfg.Retry.JitterFactor),
		service.WithMultiplier(cfg.Retry.Multiplier),
	)
	orchestrator := service.NewRecoveryOrchestrator(
		pipeline, checkpoints, service.NewValidator(), store, retry, logger, m, bus)

	return &App{
		Config:       cfg,
		Logger:       logger,
		Metrics:      m,
		Bus:          bus,
		Store:        store,
		Registry:     registry,
		Breakers:     breakers,
		Pipeline:     pipeline,
		Orchestrator: orchestrator,
	}, nil
}

// Close releases held resources.
func (a *App) Close() error {
	a.Bus.Close()
	return state.CloseStore(a.Store)
}

func stagePlans(cfg config.StagesConfig) service.StagePlans {
	return service.StagePlans{
		Vision:    stagePlan(cfg.Vision, 45*time.Second),
		Analysis:  stagePlan(cfg.Analysis, 60*time.Second),
		Synthesis: stagePlan(cfg.Synthesis, 60*time.Second),
	}
}

func stagePlan(cfg config.StageConfig, defaultTimeout time.Duration) service.StagePlan {
	return service.StagePlan{
		Providers:    cfg.Providers,
		Timeout:      parseDuration(cfg.Timeout, defaultTimeout),
		WarnFraction: cfg.WarnFraction,
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
