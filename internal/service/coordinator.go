package service

import (
	"context"
	"sync"
	"time"

	"github.com/uxray-ai/uxray/internal/core"
	"github.com/uxray-ai/uxray/internal/logging"
	"github.com/uxray-ai/uxray/internal/metrics"
)

// StageRun configures one fan-out of a stage to its providers.
type StageRun struct {
	Stage   core.Stage
	Timeout time.Duration
	// WarnFraction of the timeout after which a slow-call warning is
	// logged while the coordinator keeps waiting. Zero disables it.
	WarnFraction float64
	// Build produces the invocation request for one provider.
	Build func(providerName string) core.InvokeRequest
}

// Coordinator fans a stage out to N providers concurrently and collects
// one ModelResult per provider. Every invocation settles, whether it
// succeeded, errored, timed out or hit an open circuit, so the stage never fails
// because a subset of providers failed. Slower siblings are not cancelled
// when a faster one succeeds: disagreeing models are a fusion input, not
// a race to be won.
type Coordinator struct {
	registry core.ProviderRegistry
	invoker  *Invoker
	breakers *BreakerRegistry
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewCoordinator creates a coordinator.
func NewCoordinator(registry core.ProviderRegistry, invoker *Invoker, breakers *BreakerRegistry, logger *logging.Logger, m *metrics.Metrics) *Coordinator {
	return &Coordinator{
		registry: registry,
		invoker:  invoker,
		breakers: breakers,
		logger:   logger,
		metrics:  m,
	}
}

// RunStage launches one invocation per provider and waits for all of them
// to settle. The only error it returns is the configuration error for an
// empty provider list.
func (c *Coordinator) RunStage(ctx context.Context, providers []string, run StageRun) ([]core.ModelResult, error) {
	if len(providers) == 0 {
		return nil, core.ErrNoProviders(run.Stage)
	}

	results := make([]core.ModelResult, len(providers))
	var wg sync.WaitGroup

	for idx, name := range providers {
		wg.Add(1)
		go func(idx int, name string) {
			defer wg.Done()
			results[idx] = c.runOne(ctx, name, run)
		}(idx, name)
	}

	wg.Wait()
	return results, nil
}

// runOne resolves, guards and invokes a single provider, always settling
// to exactly one ModelResult.
func (c *Coordinator) runOne(ctx context.Context, name string, run StageRun) core.ModelResult {
	result := core.ModelResult{
		Provider:  name,
		StartedAt: time.Now(),
	}

	provider, err := c.registry.Get(name)
	if err != nil {
		result.FinishedAt = time.Now()
		result.Error = err.Error()
		result.ErrorKind = string(core.ErrCatConfig)
		return result
	}

	warn := c.startSlowCallWarning(name, run)
	defer warn.Stop()

	breaker := c.breakers.Get(name)
	var payload *core.Payload
	err = breaker.Execute(ctx, func(ctx context.Context) error {
		var invokeErr error
		payload, invokeErr = c.invoker.Invoke(ctx, provider, run.Build(name), run.Timeout)
		return invokeErr
	})

	result.FinishedAt = time.Now()

	if err != nil {
		result.Error = err.Error()
		result.ErrorKind = string(core.GetCategory(err))
		c.logger.Warn("provider invocation failed",
			"provider", name,
			"stage", string(run.Stage),
			"error_kind", result.ErrorKind,
			"duration", result.Duration().String(),
		)
		c.observe(name, run.Stage, result.ErrorKind, result.Duration())
		return result
	}

	result.Success = true
	result.Payload = payload
	c.logger.Debug("provider invocation succeeded",
		"provider", name,
		"stage", string(run.Stage),
		"duration", result.Duration().String(),
	)
	c.observe(name, run.Stage, "success", result.Duration())
	return result
}

// slowCallWarning logs once when a call crosses the warning fraction of
// its timeout. The call keeps running; this is observability only.
type slowCallWarning struct {
	timer *time.Timer
}

func (w *slowCallWarning) Stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (c *Coordinator) startSlowCallWarning(name string, run StageRun) *slowCallWarning {
	if run.WarnFraction <= 0 || run.WarnFraction >= 1 {
		return &slowCallWarning{}
	}
	threshold := time.Duration(float64(run.Timeout) * run.WarnFraction)
	timer := time.AfterFunc(threshold, func() {
		c.logger.Warn("provider call approaching timeout",
			"provider", name,
			"stage", string(run.Stage),
			"elapsed", threshold.String(),
			"timeout", run.Timeout.String(),
		)
	})
	return &slowCallWarning{timer: timer}
}

func (c *Coordinator) observe(provider string, stage core.Stage, outcome string, d time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveProviderCall(provider, string(stage), outcome, d)
}
