package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/uxray-ai/uxray/internal/core"
	"github.com/uxray-ai/uxray/internal/detect"
	"github.com/uxray-ai/uxray/internal/events"
	"github.com/uxray-ai/uxray/internal/logging"
	"github.com/uxray-ai/uxray/internal/metrics"
)

// StagePlan carries the parsed execution settings for one provider stage.
type StagePlan struct {
	Providers    []string
	Timeout      time.Duration
	WarnFraction float64
}

// StagePlans holds the plan for each provider stage.
type StagePlans struct {
	Vision    StagePlan
	Analysis  StagePlan
	Synthesis StagePlan
}

// For returns the plan for a stage.
func (p StagePlans) For(stage core.Stage) StagePlan {
	switch stage {
	case core.StageVision:
		return p.Vision
	case core.StageAnalysis:
		return p.Analysis
	case core.StageSynthesis:
		return p.Synthesis
	default:
		return StagePlan{}
	}
}

// AnalyzeRequest is one analysis request as received from a caller.
type AnalyzeRequest struct {
	// ImageRef names the screenshot for the configured image source.
	ImageRef string
	// Image carries the screenshot bytes directly; when set, ImageRef is
	// used only as an identity hint and nothing is fetched.
	Image     []byte
	ImageType string
	UserText  string
	// ClarificationResponses answer a previous clarification round.
	ClarificationResponses []string
	// AcceptLowConfidence proceeds past the clarification gate with the
	// low-confidence context instead of asking questions.
	AcceptLowConfidence bool
	Progress            core.ProgressFunc
}

// RunOutput is what one pipeline pass produces: either a clarification
// request or a result, never both.
type RunOutput struct {
	NeedsClarification bool                 `json:"needs_clarification"`
	Context            core.AnalysisContext `json:"context"`
	Questions          []string             `json:"questions,omitempty"`
	Result             *core.PipelineResult `json:"result,omitempty"`
}

// Pipeline sequences one analysis pass: detect context, gate on
// clarification, fan each provider stage out through the coordinator,
// fuse, validate, checkpoint and store. It performs no recovery; a failed
// stage surfaces as an error for the recovery orchestrator to handle.
type Pipeline struct {
	detector    *detect.Detector
	coordinator *Coordinator
	fusion      *FusionEngine
	validator   *Validator
	checkpoints *Checkpointer
	store       core.Store
	images      core.ImageSource
	plans       StagePlans
	logger      *logging.Logger
	metrics     *metrics.Metrics
	bus         *events.Bus
}

// PipelineDeps bundles the pipeline's collaborators.
type PipelineDeps struct {
	Detector    *detect.Detector
	Coordinator *Coordinator
	Fusion      *FusionEngine
	Validator   *Validator
	Checkpoints *Checkpointer
	Store       core.Store
	Images      core.ImageSource
	Plans       StagePlans
	Logger      *logging.Logger
	Metrics     *metrics.Metrics
	Bus         *events.Bus
}

// NewPipeline creates a pipeline controller.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		detector:    deps.Detector,
		coordinator: deps.Coordinator,
		fusion:      deps.Fusion,
		validator:   deps.Validator,
		checkpoints: deps.Checkpoints,
		store:       deps.Store,
		images:      deps.Images,
		plans:       deps.Plans,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		bus:         deps.Bus,
	}
}

// ResolveImage fills in the screenshot bytes from the configured image
// source when the request did not carry them. Idempotent.
func (p *Pipeline) ResolveImage(ctx context.Context, req *AnalyzeRequest) error {
	if len(req.Image) > 0 {
		return nil
	}
	if p.images == nil || req.ImageRef == "" {
		return core.ErrConfig(core.CodeImageUnavailable, "no image bytes and no image source configured")
	}
	data, contentType, err := p.images.Fetch(ctx, req.ImageRef)
	if err != nil {
		return core.ErrImageUnavailable(req.ImageRef, err)
	}
	req.Image = data
	req.ImageType = contentType
	return nil
}

// RequestKey derives the deterministic checkpoint key for a request.
// Image identity is the content hash when bytes are present, else the
// reference.
func (p *Pipeline) RequestKey(req *AnalyzeRequest) string {
	imageID := req.ImageRef
	if len(req.Image) > 0 {
		sum := sha256.Sum256(req.Image)
		imageID = hex.EncodeToString(sum[:])
	}
	return core.RequestKey(imageID, req.UserText)
}

// Run executes one full pipeline pass. It returns an error when a stage
// fails outright; the checkpoint then holds everything completed so far.
func (p *Pipeline) Run(ctx context.Context, req *AnalyzeRequest) (*RunOutput, error) {
	if err := p.ResolveImage(ctx, req); err != nil {
		return nil, err
	}
	requestKey := p.RequestKey(req)
	tracker := NewProgressTracker(req.Progress)

	p.publish(events.Event{Type: events.PipelineStarted, RequestKey: requestKey})
	tracker.StageStarted(core.StageContext)

	actx := p.detector.Detect(detect.ImageHints{
		Name:        req.ImageRef,
		ContentType: req.ImageType,
	}, req.UserText)
	if len(req.ClarificationResponses) > 0 {
		actx = p.detector.ProcessClarification(actx, req.ClarificationResponses)
	}
	tracker.ContextDetected(actx.Confidence)

	var warnings []string
	if actx.ClarificationNeeded {
		if !req.AcceptLowConfidence {
			p.publish(events.Event{
				Type:       events.ClarificationRequested,
				RequestKey: requestKey,
				Stage:      core.StageContext,
				Fields:     map[string]interface{}{"questions": actx.ClarificationQuestions},
			})
			p.logger.Info("clarification required",
				"request_key", requestKey,
				"confidence", actx.Confidence,
				"questions", len(actx.ClarificationQuestions),
			)
			return &RunOutput{
				NeedsClarification: true,
				Context:            actx,
				Questions:          actx.ClarificationQuestions,
			}, nil
		}
		actx.ClarificationNeeded = false
		actx.ClarificationQuestions = nil
		warnings = append(warnings, "proceeded with low-confidence context at caller's request")
	}
	tracker.StageCompleted(core.StageContext, map[string]interface{}{
		"primary_type": actx.PrimaryType,
		"confidence":   actx.Confidence,
	})

	cp := p.checkpoints.Load(ctx, requestKey)
	resumed := cp != nil
	if resumed {
		p.logger.Info("resuming from checkpoint",
			"request_key", requestKey,
			"furthest_stage", string(cp.FurthestStage),
		)
		if cp.Context != nil && len(req.ClarificationResponses) == 0 {
			actx = *cp.Context
		}
		cp.Status = core.CheckpointInProgress
		cp.FailReason = ""
	} else {
		cp = core.NewCheckpoint(requestKey)
	}
	cp.Context = &actx

	prior := make(map[core.Stage]*core.Payload, len(core.ProviderStages))
	confidence := make(map[core.Stage]float64, len(core.ProviderStages))

	for _, stage := range core.ProviderStages {
		if resumed {
			if fused, ok := cp.FusedByStage[stage]; ok && !fused.Empty() {
				prior[stage] = fused
				confidence[stage] = cp.ConfidenceByStage[stage]
				tracker.StageSkipped(stage)
				p.publish(events.Event{Type: events.StageResumed, RequestKey: requestKey, Stage: stage})
				continue
			}
		}

		sr, stageWarnings, err := p.runStage(ctx, stage, requestKey, &actx, req, prior, tracker)
		if err != nil {
			p.checkpoints.MarkFailed(ctx, cp, err.Error())
			p.publish(events.Event{
				Type:       events.StageFailed,
				RequestKey: requestKey,
				Stage:      stage,
				Fields:     map[string]interface{}{"error": err.Error()},
			})
			return nil, err
		}
		warnings = append(warnings, stageWarnings...)

		prior[stage] = sr.Fused
		confidence[stage] = sr.Confidence
		cp.Record(stage, sr.Fused, sr.Confidence)
		p.checkpoints.Save(ctx, cp)
	}

	result := p.assemble(requestKey, actx, prior, confidence, warnings, resumed)
	if err := p.persist(ctx, tracker, cp, result); err != nil {
		return nil, err
	}

	p.observeResult(result)
	p.publish(events.Event{
		Type:       events.PipelineCompleted,
		RequestKey: requestKey,
		Fields:     map[string]interface{}{"mode": string(result.Mode)},
	})
	return &RunOutput{Context: actx, Result: result}, nil
}

// runStage fans one stage out, fuses and validates it.
func (p *Pipeline) runStage(ctx context.Context, stage core.Stage, requestKey string, actx *core.AnalysisContext, req *AnalyzeRequest, prior map[core.Stage]*core.Payload, tracker *ProgressTracker) (*core.StageResult, []string, error) {
	plan := p.plans.For(stage)
	started := time.Now()

	tracker.StageStarted(stage)
	p.publish(events.Event{Type: events.StageStarted, RequestKey: requestKey, Stage: stage})

	results, err := p.coordinator.RunStage(ctx, plan.Providers, StageRun{
		Stage:        stage,
		Timeout:      plan.Timeout,
		WarnFraction: plan.WarnFraction,
		Build: func(string) core.InvokeRequest {
			invReq := core.InvokeRequest{
				Stage:        stage,
				SystemPrompt: SystemPrompt(stage),
				Prompt:       StagePrompt(stage, actx, req.UserText, prior),
				Context:      actx,
				Prior:        prior,
			}
			if stage == core.StageVision {
				invReq.Image = req.Image
				invReq.ImageType = req.ImageType
			}
			return invReq
		},
	})
	if err != nil {
		return nil, nil, err
	}

	sr, err := p.fuse(stage, results)
	if err != nil {
		return nil, nil, err
	}

	report, fixed := p.validator.ValidateStage(stage, sr.Fused)
	if !report.IsValid {
		return nil, nil, core.ErrValidation(core.CodeNullResult, "fused stage output failed validation").
			WithDetail("stage", string(stage))
	}
	sr.Fused = fixed

	var warnings []string
	for _, w := range report.Warnings {
		warnings = append(warnings, w.Field+": "+w.Message)
	}

	if p.metrics != nil {
		p.metrics.ObserveStage(string(stage), time.Since(started))
	}
	tracker.StageCompleted(stage, map[string]interface{}{
		"providers_succeeded": sr.SucceededCount(),
		"confidence":          sr.Confidence,
	})
	p.publish(events.Event{
		Type:       events.StageCompleted,
		RequestKey: requestKey,
		Stage:      stage,
		Fields: map[string]interface{}{
			"confidence": sr.Confidence,
			"succeeded":  sr.SucceededCount(),
		},
	})
	return sr, warnings, nil
}

func (p *Pipeline) fuse(stage core.Stage, results []core.ModelResult) (*core.StageResult, error) {
	switch stage {
	case core.StageVision:
		return p.fusion.FuseVision(results)
	case core.StageAnalysis:
		return p.fusion.FuseAnalysis(results)
	case core.StageSynthesis:
		return p.fusion.FuseSynthesis(results)
	default:
		return nil, core.ErrConfig(core.CodeInvalidConfig, "unknown provider stage "+string(stage))
	}
}

// assemble builds the full-mode result from the fused stage payloads.
func (p *Pipeline) assemble(requestKey string, actx core.AnalysisContext, prior map[core.Stage]*core.Payload, confidence map[core.Stage]float64, warnings []string, resumed bool) *core.PipelineResult {
	result := &core.PipelineResult{
		ID:          uuid.NewString(),
		RequestKey:  requestKey,
		Mode:        core.ModeFull,
		Context:     actx,
		Confidence:  confidence,
		Warnings:    warnings,
		Resumed:     resumed,
		CreatedAt:   time.Now(),
		CompletedAt: time.Now(),
	}
	if v := prior[core.StageVision]; v != nil {
		result.Vision = v.Vision
	}
	if a := prior[core.StageAnalysis]; a != nil {
		result.Analysis = a.Analysis
	}
	if s := prior[core.StageSynthesis]; s != nil {
		result.Synthesis = s.Synthesis
	}
	return result
}

// persist validates the final result and writes it to the store. A store
// write failure keeps the checkpoint so an identical request can resume,
// and degrades to a warning on the returned result.
func (p *Pipeline) persist(ctx context.Context, tracker *ProgressTracker, cp *core.PipelineCheckpoint, result *core.PipelineResult) error {
	tracker.StageStarted(core.StageStore)

	report, fixed := p.validator.ValidateResult(result)
	if !report.IsValid {
		return core.ErrValidation(core.CodeNullResult, "final result failed validation")
	}
	*result = *fixed
	for _, w := range report.Warnings {
		result.Warnings = append(result.Warnings, w.Field+": "+w.Message)
	}

	if err := p.store.SaveResult(ctx, result); err != nil {
		p.logger.Warn("result save failed",
			"request_key", result.RequestKey,
			"error", err.Error(),
		)
		result.Warnings = append(result.Warnings, "result could not be persisted: "+err.Error())
	} else {
		p.checkpoints.Delete(ctx, cp.RequestKey)
	}

	tracker.StageCompleted(core.StageStore, map[string]interface{}{"mode": string(result.Mode)})
	return nil
}

func (p *Pipeline) observeResult(result *core.PipelineResult) {
	if p.metrics != nil {
		p.metrics.ObserveResult(string(result.Mode))
	}
}

func (p *Pipeline) publish(ev events.Event) {
	if p.bus != nil {
		p.bus.Publish(ev)
	}
}
