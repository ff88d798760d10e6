package service

import (
	"sync"

	"github.com/uxray-ai/uxray/internal/core"
)

// Stage percentage milestones. Fixed values rather than measured progress:
// consumers render a stable bar regardless of provider latency.
var progressMilestones = map[core.Stage]struct{ started, completed int }{
	core.StageContext:   {2, 8},
	core.StageVision:    {10, 30},
	core.StageAnalysis:  {40, 60},
	core.StageSynthesis: {70, 90},
	core.StageStore:     {95, 100},
}

// contextDetected is the mid-milestone between receiving the request and
// passing the clarification gate.
const contextDetected = 5

// ProgressTracker emits percent milestones to a ProgressFunc. Percent is
// monotone: late or replayed events never move the bar backwards.
type ProgressTracker struct {
	mu   sync.Mutex
	fn   core.ProgressFunc
	last int
}

// NewProgressTracker creates a tracker. A nil fn discards events.
func NewProgressTracker(fn core.ProgressFunc) *ProgressTracker {
	if fn == nil {
		fn = core.NopProgress
	}
	return &ProgressTracker{fn: fn}
}

// StageStarted emits the stage's starting milestone.
func (t *ProgressTracker) StageStarted(stage core.Stage) {
	if m, ok := progressMilestones[stage]; ok {
		t.emit(m.started, stage, nil)
	}
}

// StageCompleted emits the stage's completion milestone.
func (t *ProgressTracker) StageCompleted(stage core.Stage, meta map[string]interface{}) {
	if m, ok := progressMilestones[stage]; ok {
		t.emit(m.completed, stage, meta)
	}
}

// ContextDetected emits the milestone between detection and the
// clarification gate.
func (t *ProgressTracker) ContextDetected(confidence float64) {
	t.emit(contextDetected, core.StageContext, map[string]interface{}{
		"confidence": confidence,
	})
}

// StageSkipped reports a stage restored from a checkpoint. The bar jumps
// straight to the stage's completion milestone.
func (t *ProgressTracker) StageSkipped(stage core.Stage) {
	if m, ok := progressMilestones[stage]; ok {
		t.emit(m.completed, stage, map[string]interface{}{"resumed": true})
	}
}

func (t *ProgressTracker) emit(percent int, stage core.Stage, meta map[string]interface{}) {
	t.mu.Lock()
	if percent < t.last {
		t.mu.Unlock()
		return
	}
	t.last = percent
	t.mu.Unlock()
	t.fn(percent, stage, meta)
}
