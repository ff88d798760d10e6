package service

import (
	"sort"
	"strings"

	"github.com/uxray-ai/uxray/internal/core"
)

// Fusion agreement weighting: success rate carries 40% of a stage's
// confidence, inter-model agreement 60%. Agreement with at least two
// independently succeeding providers is the strongest signal available
// without ground truth.
const (
	weightSuccessRate = 0.4
	weightAgreement   = 0.6
)

// FusionEngine merges the per-provider results of a stage into one
// StageResult: concatenate per category, deduplicate on a composite key,
// score confidence from success rate and agreement.
type FusionEngine struct {
	// Agreement scores are documented heuristics, not a measured
	// similarity metric; they are exposed in config as tunables.
	AgreementMulti  float64 // >= 2 providers succeeded
	AgreementSingle float64 // exactly 1 provider succeeded
}

// NewFusionEngine creates a fusion engine with the given agreement
// heuristics.
func NewFusionEngine(agreementMulti, agreementSingle float64) *FusionEngine {
	if agreementMulti <= 0 {
		agreementMulti = 0.85
	}
	if agreementSingle <= 0 {
		agreementSingle = 0.65
	}
	return &FusionEngine{
		AgreementMulti:  agreementMulti,
		AgreementSingle: agreementSingle,
	}
}

// FuseVision merges vision-stage results: detected elements, layout
// signals and color palette are concatenated and deduplicated; the
// longest summary wins.
func (f *FusionEngine) FuseVision(results []core.ModelResult) (*core.StageResult, error) {
	succeeded := successfulPayloads(results, func(p *core.Payload) bool { return p.Vision != nil })
	if len(succeeded) == 0 {
		return nil, stageFailure(core.StageVision, results)
	}

	fused := &core.VisionPayload{}
	seenElements := make(map[string]bool)
	for _, p := range succeeded {
		v := p.Vision
		for _, el := range v.Elements {
			key := strings.ToLower(el.Category + "|" + el.Name + "|" + el.Region)
			if !seenElements[key] {
				seenElements[key] = true
				fused.Elements = append(fused.Elements, el)
			}
		}
		fused.LayoutSignals = appendUnique(fused.LayoutSignals, v.LayoutSignals)
		fused.ColorPalette = appendUnique(fused.ColorPalette, v.ColorPalette)
		if len(v.Summary) > len(fused.Summary) {
			fused.Summary = v.Summary
		}
	}

	return &core.StageResult{
		Stage:      core.StageVision,
		Results:    results,
		Fused:      &core.Payload{Vision: fused},
		Confidence: f.confidence(len(succeeded), len(results)),
	}, nil
}

// FuseAnalysis merges analysis-stage results: findings are concatenated
// and deduplicated on category+element+severity; scores are averaged
// across succeeding providers.
func (f *FusionEngine) FuseAnalysis(results []core.ModelResult) (*core.StageResult, error) {
	succeeded := successfulPayloads(results, func(p *core.Payload) bool { return p.Analysis != nil })
	if len(succeeded) == 0 {
		return nil, stageFailure(core.StageAnalysis, results)
	}

	fused := &core.AnalysisPayload{}
	seen := make(map[string]bool)
	var usability, a11y, design, overall float64
	for _, p := range succeeded {
		a := p.Analysis
		for _, finding := range a.Findings {
			key := strings.ToLower(finding.Key())
			if !seen[key] {
				seen[key] = true
				fused.Findings = append(fused.Findings, finding)
			}
		}
		usability += a.UsabilityScore
		a11y += a.A11yScore
		design += a.DesignScore
		overall += a.OverallScore
	}

	n := float64(len(succeeded))
	fused.UsabilityScore = usability / n
	fused.A11yScore = a11y / n
	fused.DesignScore = design / n
	fused.OverallScore = overall / n

	sortFindings(fused.Findings)

	return &core.StageResult{
		Stage:      core.StageAnalysis,
		Results:    results,
		Fused:      &core.Payload{Analysis: fused},
		Confidence: f.confidence(len(succeeded), len(results)),
	}, nil
}

// confidence computes 0.4×successRate + 0.6×agreement.
func (f *FusionEngine) confidence(succeeded, attempted int) float64 {
	if attempted == 0 {
		return 0
	}
	successRate := float64(succeeded) / float64(attempted)
	agreement := 0.0
	switch {
	case succeeded >= 2:
		agreement = f.AgreementMulti
	case succeeded == 1:
		agreement = f.AgreementSingle
	}
	c := weightSuccessRate*successRate + weightAgreement*agreement
	if c > 1 {
		c = 1
	}
	return c
}

// successfulPayloads filters results to successes carrying the expected
// stage payload.
func successfulPayloads(results []core.ModelResult, has func(*core.Payload) bool) []*core.Payload {
	var out []*core.Payload
	for _, r := range results {
		if r.Success && r.Payload != nil && has(r.Payload) {
			out = append(out, r.Payload)
		}
	}
	return out
}

// stageFailure builds the retryable error for a stage in which zero
// providers succeeded, listing every provider's error.
func stageFailure(stage core.Stage, results []core.ModelResult) error {
	errs := make(map[string]string, len(results))
	for _, r := range results {
		if !r.Success {
			errs[r.Provider] = r.Error
		}
	}
	return core.ErrStageFailed(stage, errs)
}

func appendUnique(dst []string, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[strings.ToLower(s)] = true
	}
	for _, s := range src {
		key := strings.ToLower(s)
		if s != "" && !seen[key] {
			seen[key] = true
			dst = append(dst, s)
		}
	}
	return dst
}

var severityRank = map[string]int{
	"critical": 0,
	"high":     1,
	"medium":   2,
	"low":      3,
}

func sortFindings(findings []core.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		ri, ok := severityRank[findings[i].Severity]
		if !ok {
			ri = len(severityRank)
		}
		rj, ok := severityRank[findings[j].Severity]
		if !ok {
			rj = len(severityRank)
		}
		return ri < rj
	})
}
