package service

import (
	"testing"

	"github.com/uxray-ai/uxray/internal/core"
)

type progressEvent struct {
	percent int
	stage   core.Stage
}

func collectProgress() (*[]progressEvent, core.ProgressFunc) {
	var events []progressEvent
	return &events, func(percent int, stage core.Stage, _ map[string]interface{}) {
		events = append(events, progressEvent{percent, stage})
	}
}

func TestProgressTracker_Milestones(t *testing.T) {
	events, fn := collectProgress()
	tr := NewProgressTracker(fn)

	tr.StageStarted(core.StageContext)
	tr.ContextDetected(0.8)
	tr.StageCompleted(core.StageContext, nil)
	tr.StageStarted(core.StageVision)
	tr.StageCompleted(core.StageVision, nil)
	tr.StageStarted(core.StageAnalysis)
	tr.StageCompleted(core.StageAnalysis, nil)
	tr.StageStarted(core.StageSynthesis)
	tr.StageCompleted(core.StageSynthesis, nil)
	tr.StageStarted(core.StageStore)
	tr.StageCompleted(core.StageStore, nil)

	want := []int{2, 5, 8, 10, 30, 40, 60, 70, 90, 95, 100}
	if len(*events) != len(want) {
		t.Fatalf("events = %d, want %d", len(*events), len(want))
	}
	for i, w := range want {
		if (*events)[i].percent != w {
			t.Errorf("events[%d].percent = %d, want %d", i, (*events)[i].percent, w)
		}
	}
}

func TestProgressTracker_Monotone(t *testing.T) {
	events, fn := collectProgress()
	tr := NewProgressTracker(fn)

	tr.StageCompleted(core.StageAnalysis, nil) // 60
	tr.StageStarted(core.StageVision)          // 10, suppressed
	tr.StageStarted(core.StageSynthesis)       // 70

	want := []int{60, 70}
	if len(*events) != len(want) {
		t.Fatalf("events = %v, want percents %v", *events, want)
	}
	for i, w := range want {
		if (*events)[i].percent != w {
			t.Errorf("events[%d].percent = %d, want %d", i, (*events)[i].percent, w)
		}
	}
}

func TestProgressTracker_SkippedStageJumpsToCompletion(t *testing.T) {
	events, fn := collectProgress()
	tr := NewProgressTracker(fn)

	tr.StageSkipped(core.StageVision)
	if len(*events) != 1 || (*events)[0].percent != 30 {
		t.Errorf("events = %v, want single 30%% event", *events)
	}
}

func TestProgressTracker_NilFuncIsSafe(t *testing.T) {
	tr := NewProgressTracker(nil)
	tr.StageStarted(core.StageVision)
	tr.StageCompleted(core.StageStore, nil)
}
