package core

// Stage identifies one phase of the analysis pipeline.
type Stage string

const (
	StageContext   Stage = "context"
	StageVision    Stage = "vision"
	StageAnalysis  Stage = "analysis"
	StageSynthesis Stage = "synthesis"
	StageStore     Stage = "store"
)

// ProviderStages lists the stages that fan out to model providers, in
// execution order. Context detection and storage do not invoke providers.
var ProviderStages = []Stage{StageVision, StageAnalysis, StageSynthesis}

// NextStage returns the stage that follows the given stage.
func NextStage(current Stage) Stage {
	switch current {
	case StageContext:
		return StageVision
	case StageVision:
		return StageAnalysis
	case StageAnalysis:
		return StageSynthesis
	case StageSynthesis:
		return StageStore
	default:
		return current
	}
}

// StageIndex returns the position of a provider stage in execution order,
// or -1 if the stage does not fan out to providers.
func StageIndex(s Stage) int {
	for i, stage := range ProviderStages {
		if stage == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s names a known pipeline stage.
func (s Stage) Valid() bool {
	switch s {
	case StageContext, StageVision, StageAnalysis, StageSynthesis, StageStore:
		return true
	}
	return false
}
