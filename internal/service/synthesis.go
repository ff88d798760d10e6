package service

import (
	"sort"

	"github.com/uxray-ai/uxray/internal/core"
)

// FuseSynthesis selects the richest successful result (most action items)
// as the base instead of merging: synthesis outputs are narrative and do
// not concatenate cleanly. Each action item then gets a priority score
// from the impact×effort lookup, clamped into four discrete bands.
func (f *FusionEngine) FuseSynthesis(results []core.ModelResult) (*core.StageResult, error) {
	succeeded := successfulPayloads(results, func(p *core.Payload) bool { return p.Synthesis != nil })
	if len(succeeded) == 0 {
		return nil, stageFailure(core.StageSynthesis, results)
	}

	richest := succeeded[0].Synthesis
	for _, p := range succeeded[1:] {
		if len(p.Synthesis.ActionItems) > len(richest.ActionItems) {
			richest = p.Synthesis
		}
	}

	fused := &core.SynthesisPayload{
		Summary:     richest.Summary,
		Strengths:   append([]string{}, richest.Strengths...),
		ActionItems: make([]core.ActionItem, len(richest.ActionItems)),
	}
	copy(fused.ActionItems, richest.ActionItems)

	for i := range fused.ActionItems {
		item := &fused.ActionItems[i]
		item.PriorityScore = priorityScore(item.Impact, item.Effort)
		item.Priority = priorityBand(item.PriorityScore)
	}
	sort.SliceStable(fused.ActionItems, func(i, j int) bool {
		return fused.ActionItems[i].PriorityScore > fused.ActionItems[j].PriorityScore
	})

	return &core.StageResult{
		Stage:      core.StageSynthesis,
		Results:    results,
		Fused:      &core.Payload{Synthesis: fused},
		Confidence: f.confidence(len(succeeded), len(results)),
	}, nil
}

// priorityTable maps impact×effort onto a 1-10 score. High impact at low
// effort is the classic quick win; low impact at high effort lands at the
// bottom.
var priorityTable = map[string]map[string]float64{
	"high":   {"low": 10, "medium": 8, "high": 6},
	"medium": {"low": 7, "medium": 5, "high": 3},
	"low":    {"low": 4, "medium": 2, "high": 1},
}

func priorityScore(impact, effort string) float64 {
	row, ok := priorityTable[normalizeLevel(impact)]
	if !ok {
		row = priorityTable["medium"]
	}
	score, ok := row[normalizeLevel(effort)]
	if !ok {
		score = row["medium"]
	}
	return score
}

func priorityBand(score float64) string {
	switch {
	case score >= 9:
		return core.PriorityCritical
	case score >= 6:
		return core.PriorityHigh
	case score >= 3:
		return core.PriorityMedium
	default:
		return core.PriorityLow
	}
}

func normalizeLevel(level string) string {
	switch level {
	case "high", "medium", "low":
		return level
	default:
		return "medium"
	}
}
