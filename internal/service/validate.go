package service

import (
	"fmt"
	"math"

	"github.com/uxray-ai/uxray/internal/core"
)

// Issue severity: critical issues mean the caller must not proceed with
// the candidate output; warnings are repairable cosmetic defects.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Issue describes one validation defect.
type Issue struct {
	Field    string `json:"field"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Report is the outcome of validating one candidate output. Fixed holds a
// repaired copy with out-of-range numbers clamped and missing required
// fields filled with neutral defaults; it is only nil when a critical
// issue makes repair impossible.
type Report struct {
	IsValid  bool    `json:"is_valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Valid reports whether no critical issues were found.
func (r *Report) Valid() bool { return len(r.Errors) == 0 }

// neutralOverallScore is the documented fallback when neither an overall
// score nor any category score is available.
const neutralOverallScore = 75

// Validator checks stage and final outputs against their required shape
// and synthesizes safe fallback values for cosmetic defects. It is the
// single component permitted to clamp or default a value into range.
type Validator struct{}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateStage checks one stage's fused payload, returning the report
// and a repaired copy. A nil or empty payload is critical: there is
// nothing to repair.
func (v *Validator) ValidateStage(stage core.Stage, fused *core.Payload) (*Report, *core.Payload) {
	report := &Report{}
	if fused.Empty() {
		report.Errors = append(report.Errors, Issue{
			Field:    string(stage),
			Severity: SeverityCritical,
			Message:  "stage produced no payload",
		})
		report.IsValid = false
		return report, nil
	}

	fixed := &core.Payload{}
	if fused.Vision != nil {
		fixed.Vision = v.repairVision(fused.Vision, report)
	}
	if fused.Analysis != nil {
		fixed.Analysis = v.repairAnalysis(fused.Analysis, report)
	}
	if fused.Synthesis != nil {
		fixed.Synthesis = v.repairSynthesis(fused.Synthesis, report)
	}

	report.IsValid = report.Valid()
	return report, fixed
}

// ValidateResult checks the final pipeline result before storage,
// returning the report and a repaired copy.
func (v *Validator) ValidateResult(res *core.PipelineResult) (*Report, *core.PipelineResult) {
	report := &Report{}
	if res == nil {
		report.Errors = append(report.Errors, Issue{
			Field:    "result",
			Severity: SeverityCritical,
			Message:  "result is null",
		})
		return report, nil
	}

	fixed := *res
	fixed.Context.Confidence = v.clampUnit("context.confidence", res.Context.Confidence, report)

	if len(res.Confidence) > 0 {
		fixed.Confidence = make(map[core.Stage]float64, len(res.Confidence))
		for stage, c := range res.Confidence {
			fixed.Confidence[stage] = v.clampUnit(fmt.Sprintf("confidence.%s", stage), c, report)
		}
	}

	if res.Vision != nil {
		fixed.Vision = v.repairVision(res.Vision, report)
	}
	if res.Analysis != nil {
		fixed.Analysis = v.repairAnalysis(res.Analysis, report)
	}
	if res.Synthesis != nil {
		fixed.Synthesis = v.repairSynthesis(res.Synthesis, report)
	}

	if res.Vision == nil && res.Analysis == nil && res.Synthesis == nil && res.Mode != core.ModeDegraded {
		report.Errors = append(report.Errors, Issue{
			Field:    "result",
			Severity: SeverityCritical,
			Message:  "result carries no stage data",
		})
	}

	report.IsValid = report.Valid()
	if !report.IsValid {
		return report, nil
	}
	return report, &fixed
}

func (v *Validator) repairVision(p *core.VisionPayload, report *Report) *core.VisionPayload {
	fixed := *p
	if fixed.Elements == nil {
		report.Warnings = append(report.Warnings, Issue{
			Field:    "vision.elements",
			Severity: SeverityWarning,
			Message:  "missing elements array, defaulting to empty",
		})
		fixed.Elements = []core.Element{}
	}
	return &fixed
}

func (v *Validator) repairAnalysis(p *core.AnalysisPayload, report *Report) *core.AnalysisPayload {
	fixed := *p
	if fixed.Findings == nil {
		report.Warnings = append(report.Warnings, Issue{
			Field:    "analysis.findings",
			Severity: SeverityWarning,
			Message:  "missing findings array, defaulting to empty",
		})
		fixed.Findings = []core.Finding{}
	}

	fixed.UsabilityScore = v.clampScore("analysis.usability_score", fixed.UsabilityScore, report)
	fixed.A11yScore = v.clampScore("analysis.accessibility_score", fixed.A11yScore, report)
	fixed.DesignScore = v.clampScore("analysis.design_score", fixed.DesignScore, report)

	if fixed.OverallScore <= 0 || !isFinite(fixed.OverallScore) {
		fallback := v.categoryAverage(fixed)
		report.Warnings = append(report.Warnings, Issue{
			Field:    "analysis.overall_score",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("missing overall score, defaulting to %.0f", fallback),
		})
		fixed.OverallScore = fallback
	} else {
		fixed.OverallScore = v.clampScore("analysis.overall_score", fixed.OverallScore, report)
	}

	for i := range fixed.Findings {
		if _, ok := severityRank[fixed.Findings[i].Severity]; !ok {
			report.Warnings = append(report.Warnings, Issue{
				Field:    fmt.Sprintf("analysis.findings[%d].severity", i),
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("unknown severity %q, defaulting to medium", fixed.Findings[i].Severity),
			})
			fixed.Findings[i].Severity = "medium"
		}
	}
	return &fixed
}

func (v *Validator) repairSynthesis(p *core.SynthesisPayload, report *Report) *core.SynthesisPayload {
	fixed := *p
	if fixed.ActionItems == nil {
		report.Warnings = append(report.Warnings, Issue{
			Field:    "synthesis.action_items",
			Severity: SeverityWarning,
			Message:  "missing action items array, defaulting to empty",
		})
		fixed.ActionItems = []core.ActionItem{}
	}
	if fixed.Summary == "" {
		report.Warnings = append(report.Warnings, Issue{
			Field:    "synthesis.summary",
			Severity: SeverityWarning,
			Message:  "missing summary, defaulting to neutral text",
		})
		fixed.Summary = "Analysis completed; see action items for details."
	}
	for i := range fixed.ActionItems {
		item := &fixed.ActionItems[i]
		if item.Priority == "" || item.PriorityScore <= 0 {
			item.PriorityScore = priorityScore(item.Impact, item.Effort)
			item.Priority = priorityBand(item.PriorityScore)
		}
	}
	return &fixed
}

// categoryAverage derives an overall score from whichever category scores
// are present; the flat neutral default applies only when none are.
func (v *Validator) categoryAverage(p core.AnalysisPayload) float64 {
	var sum float64
	var n int
	for _, s := range []float64{p.UsabilityScore, p.A11yScore, p.DesignScore} {
		if s > 0 && isFinite(s) {
			sum += s
			n++
		}
	}
	if n == 0 {
		return neutralOverallScore
	}
	return sum / float64(n)
}

func (v *Validator) clampScore(field string, value float64, report *Report) float64 {
	return v.clamp(field, value, 0, 100, report)
}

func (v *Validator) clampUnit(field string, value float64, report *Report) float64 {
	return v.clamp(field, value, 0, 1, report)
}

func (v *Validator) clamp(field string, value, lo, hi float64, report *Report) float64 {
	if !isFinite(value) {
		report.Warnings = append(report.Warnings, Issue{
			Field:    field,
			Severity: SeverityWarning,
			Message:  "non-finite value, defaulting to lower bound",
		})
		return lo
	}
	if value < lo {
		report.Warnings = append(report.Warnings, Issue{
			Field:    field,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("value %.3f below %.0f, clamped", value, lo),
		})
		return lo
	}
	if value > hi {
		report.Warnings = append(report.Warnings, Issue{
			Field:    field,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("value %.3f above %.0f, clamped", value, hi),
		})
		return hi
	}
	return value
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
