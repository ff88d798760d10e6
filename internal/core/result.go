package core

import "time"

// ModelResult records the outcome of one provider invocation within one
// stage. Exactly one is produced per provider whether the call succeeded,
// failed or timed out; failures are values here, never raised errors.
type ModelResult struct {
	Provider   string    `json:"provider"`
	Success    bool      `json:"success"`
	Payload    *Payload  `json:"payload,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"` // provider, timeout, circuit
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns the wall time of the invocation.
func (r ModelResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// StageResult is the fused output of one stage: the only thing the
// controller passes forward.
type StageResult struct {
	Stage      Stage         `json:"stage"`
	Results    []ModelResult `json:"results,omitempty"`
	Fused      *Payload      `json:"fused"`
	Confidence float64       `json:"confidence"`
}

// SucceededCount returns the number of providers that succeeded.
func (s *StageResult) SucceededCount() int {
	n := 0
	for _, r := range s.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// ResultMode labels the quality level of a returned analysis.
type ResultMode string

const (
	ModeFull     ResultMode = "full"
	ModePartial  ResultMode = "partial"
	ModeDegraded ResultMode = "degraded"
	ModeFailed   ResultMode = "failed"
)

// PipelineResult is the final output of one analysis request. The caller
// always receives one of these unless recovery itself throws.
type PipelineResult struct {
	ID            string            `json:"id"`
	RequestKey    string            `json:"request_key"`
	Mode          ResultMode        `json:"mode"`
	Context       AnalysisContext   `json:"context"`
	Vision        *VisionPayload    `json:"vision,omitempty"`
	Analysis      *AnalysisPayload  `json:"analysis,omitempty"`
	Synthesis     *SynthesisPayload `json:"synthesis,omitempty"`
	Confidence    map[Stage]float64 `json:"confidence,omitempty"`
	Warnings      []string          `json:"warnings,omitempty"`
	Errors        []string          `json:"errors,omitempty"`
	MissingStages []Stage           `json:"missing_stages,omitempty"`
	Resumed       bool              `json:"resumed,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	CompletedAt   time.Time         `json:"completed_at"`
}

// Degraded reports whether the result is anything less than full.
func (r *PipelineResult) Degraded() bool {
	return r.Mode != ModeFull
}
