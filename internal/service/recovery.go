package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/uxray-ai/uxray/internal/core"
	"github.com/uxray-ai/uxray/internal/events"
	"github.com/uxray-ai/uxray/internal/logging"
	"github.com/uxray-ai/uxray/internal/metrics"
)

// RecoveryOrchestrator wraps the pipeline with the failure ladder: retry
// the whole pipeline on transient errors, then salvage a partial result
// from the checkpoint, then fall back to a degraded result. Only when
// every rung fails does the caller see an error.
type RecoveryOrchestrator struct {
	pipeline    *Pipeline
	checkpoints *Checkpointer
	validator   *Validator
	store       core.Store
	retry       *RetryPolicy
	logger      *logging.Logger
	metrics     *metrics.Metrics
	bus         *events.Bus
}

// NewRecoveryOrchestrator creates the orchestrator. The retry policy
// bounds whole-pipeline retries; its Retryable predicate is forced to the
// transient classification.
func NewRecoveryOrchestrator(pipeline *Pipeline, checkpoints *Checkpointer, validator *Validator, store core.Store, retry *RetryPolicy, logger *logging.Logger, m *metrics.Metrics, bus *events.Bus) *RecoveryOrchestrator {
	if retry == nil {
		retry = DefaultRetryPolicy()
	}
	retry.Retryable = core.IsTransient
	return &RecoveryOrchestrator{
		pipeline:    pipeline,
		checkpoints: checkpoints,
		validator:   validator,
		store:       store,
		retry:       retry,
		logger:      logger,
		metrics:     m,
		bus:         bus,
	}
}

// Analyze runs one analysis request to a terminal outcome: a result, a
// clarification request, or an error for unsalvageable failures.
func (r *RecoveryOrchestrator) Analyze(ctx context.Context, req *AnalyzeRequest) (*RunOutput, error) {
	var out *RunOutput
	runErr := r.retry.ExecuteWithNotify(ctx, func(ctx context.Context) error {
		o, err := r.pipeline.Run(ctx, req)
		if err != nil {
			return err
		}
		out = o
		return nil
	}, func(attempt int, err error, delay time.Duration) {
		r.logger.Warn("pipeline attempt failed, retrying",
			"attempt", attempt,
			"delay", delay.String(),
			"error", err.Error(),
		)
	})
	if runErr == nil {
		return out, nil
	}

	// Caller errors are not salvageable; retrying or degrading would only
	// mask a misconfiguration.
	switch core.GetCategory(runErr) {
	case core.ErrCatConfig, core.ErrCatAuth:
		return nil, runErr
	}
	if ctx.Err() != nil {
		return nil, core.ErrRecoveryExhausted("recovery aborted by caller", ctx.Err())
	}

	requestKey := r.pipeline.RequestKey(req)
	r.logger.Warn("pipeline failed, attempting recovery",
		"request_key", requestKey,
		"error", runErr.Error(),
	)

	if result := r.partialResult(ctx, requestKey, runErr); result != nil {
		return &RunOutput{Context: result.Context, Result: result}, nil
	}
	if result := r.degradedResult(ctx, requestKey, runErr); result != nil {
		return &RunOutput{Context: result.Context, Result: result}, nil
	}
	return nil, core.ErrRecoveryExhausted("no partial or degraded result could be produced", runErr)
}

// partialResult rebuilds a result from whatever stages the checkpoint
// holds. Returns nil when the checkpoint has no usable stage data.
func (r *RecoveryOrchestrator) partialResult(ctx context.Context, requestKey string, runErr error) *core.PipelineResult {
	cp := r.checkpoints.Load(ctx, requestKey)
	if cp == nil {
		return nil
	}

	result := &core.PipelineResult{
		ID:          uuid.NewString(),
		RequestKey:  requestKey,
		Mode:        core.ModePartial,
		Confidence:  make(map[core.Stage]float64),
		Errors:      []string{runErr.Error()},
		Resumed:     true,
		CreatedAt:   cp.CreatedAt,
		CompletedAt: time.Now(),
	}
	if cp.Context != nil {
		result.Context = *cp.Context
	} else {
		result.Context = core.NeutralContext()
	}

	var have int
	for _, stage := range core.ProviderStages {
		fused, ok := cp.FusedByStage[stage]
		if !ok || fused.Empty() {
			result.MissingStages = append(result.MissingStages, stage)
			continue
		}
		have++
		result.Confidence[stage] = cp.ConfidenceByStage[stage]
		switch stage {
		case core.StageVision:
			result.Vision = fused.Vision
		case core.StageAnalysis:
			result.Analysis = fused.Analysis
		case core.StageSynthesis:
			result.Synthesis = fused.Synthesis
		}
	}
	if have == 0 {
		return nil
	}
	result.Warnings = append(result.Warnings,
		"analysis recovered from checkpoint; later stages are missing")

	report, fixed := r.validator.ValidateResult(result)
	if !report.IsValid {
		r.logger.Warn("partial result failed validation, falling through",
			"request_key", requestKey,
		)
		return nil
	}
	result = fixed

	r.finish(ctx, result)
	return result
}

// degradedResult produces the minimal honest answer: no stage data
// survived, but the caller still gets a structured result explaining what
// happened instead of a bare error.
func (r *RecoveryOrchestrator) degradedResult(ctx context.Context, requestKey string, runErr error) *core.PipelineResult {
	result := &core.PipelineResult{
		ID:         uuid.NewString(),
		RequestKey: requestKey,
		Mode:       core.ModeDegraded,
		Context:    core.NeutralContext(),
		Synthesis: &core.SynthesisPayload{
			Summary:     "The analysis could not be completed because all model providers failed. Retry the request to resume from where it stopped.",
			ActionItems: []core.ActionItem{},
		},
		MissingStages: append([]core.Stage{}, core.ProviderStages...),
		Errors:        []string{runErr.Error()},
		CreatedAt:     time.Now(),
		CompletedAt:   time.Now(),
	}

	report, fixed := r.validator.ValidateResult(result)
	if !report.IsValid {
		return nil
	}
	result = fixed

	r.finish(ctx, result)
	return result
}

// finish persists and announces a recovered result. Store failures are
// warnings here as everywhere else; the recovered result still reaches
// the caller.
func (r *RecoveryOrchestrator) finish(ctx context.Context, result *core.PipelineResult) {
	if err := r.store.SaveResult(ctx, result); err != nil {
		r.logger.Warn("recovered result save failed",
			"request_key", result.RequestKey,
			"error", err.Error(),
		)
		result.Warnings = append(result.Warnings, "result could not be persisted: "+err.Error())
	}
	if r.metrics != nil {
		r.metrics.ObserveResult(string(result.Mode))
	}
	if r.bus != nil {
		r.bus.Publish(events.Event{
			Type:       events.PipelineRecovered,
			RequestKey: result.RequestKey,
			Fields:     map[string]interface{}{"mode": string(result.Mode)},
		})
	}
	r.logger.Info("analysis recovered",
		"request_key", result.RequestKey,
		"mode", string(result.Mode),
	)
}
