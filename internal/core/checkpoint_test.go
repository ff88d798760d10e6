package core

import (
	"testing"
)

func visionData(summary string) *Payload {
	return &Payload{Vision: &VisionPayload{Summary: summary}}
}

func TestCheckpoint_RecordAdvancesFurthestStage(t *testing.T) {
	cp := NewCheckpoint("key")

	cp.Record(StageVision, visionData("v"), 0.8)
	if cp.FurthestStage != StageVision {
		t.Errorf("furthest = %s, want vision", cp.FurthestStage)
	}

	cp.Record(StageAnalysis, &Payload{Analysis: &AnalysisPayload{OverallScore: 70}}, 0.7)
	if cp.FurthestStage != StageAnalysis {
		t.Errorf("furthest = %s, want analysis", cp.FurthestStage)
	}

	// Recording an earlier stage never rolls the furthest stage back.
	cp.Record(StageVision, visionData("v2"), 0.9)
	if cp.FurthestStage != StageAnalysis {
		t.Errorf("furthest = %s, want analysis after re-recording vision", cp.FurthestStage)
	}
	if cp.ConfidenceByStage[StageVision] != 0.9 {
		t.Errorf("vision confidence = %f, want updated 0.9", cp.ConfidenceByStage[StageVision])
	}
}

func TestCheckpoint_Resumable(t *testing.T) {
	cp := NewCheckpoint("key")
	if cp.Resumable() {
		t.Error("empty checkpoint resumable")
	}

	cp.Record(StageVision, visionData("v"), 0.8)
	if !cp.Resumable() {
		t.Error("in-progress checkpoint with fused data not resumable")
	}

	cp.Status = CheckpointFailed
	if !cp.Resumable() {
		t.Error("failed checkpoint not resumable; a retried request must pick up after the last good stage")
	}

	cp.Status = CheckpointComplete
	if cp.Resumable() {
		t.Error("completed checkpoint resumable")
	}

	var nilCp *PipelineCheckpoint
	if nilCp.Resumable() {
		t.Error("nil checkpoint resumable")
	}
}

func TestCheckpoint_EmptyFusedDataIsNotResumable(t *testing.T) {
	cp := NewCheckpoint("key")
	cp.Record(StageVision, &Payload{}, 0.5)
	if cp.Resumable() {
		t.Error("checkpoint with an empty fused payload resumable")
	}
}

func TestRequestKey(t *testing.T) {
	a := RequestKey("image-1", "make it better")
	b := RequestKey("image-1", "make it better")
	if a != b {
		t.Error("identical inputs produced different keys")
	}
	if len(a) != 32 {
		t.Errorf("key length = %d, want 32", len(a))
	}

	if RequestKey("image-1", "other") == a {
		t.Error("different user text, same key")
	}
	if RequestKey("image-2", "make it better") == a {
		t.Error("different image, same key")
	}

	// The separator keeps boundary-shifted inputs from colliding.
	if RequestKey("ab", "c") == RequestKey("a", "bc") {
		t.Error("boundary shift produced a key collision")
	}
}
