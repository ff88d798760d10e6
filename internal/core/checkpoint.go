package core

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// CheckpointStatus tracks the lifecycle of a pipeline checkpoint.
type CheckpointStatus string

const (
	CheckpointInProgress CheckpointStatus = "in_progress"
	CheckpointComplete   CheckpointStatus = "complete"
	CheckpointFailed     CheckpointStatus = "failed"
)

// PipelineCheckpoint records the furthest completed stage and its fused
// data under a deterministic request key, so an identical retried request
// resumes instead of re-spending provider calls.
type PipelineCheckpoint struct {
	RequestKey        string             `json:"request_key"`
	FurthestStage     Stage              `json:"furthest_stage"`
	FusedByStage      map[Stage]*Payload `json:"fused_by_stage"`
	ConfidenceByStage map[Stage]float64  `json:"confidence_by_stage,omitempty"`
	Context           *AnalysisContext   `json:"context,omitempty"`
	Status            CheckpointStatus   `json:"status"`
	FailReason        string             `json:"fail_reason,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// NewCheckpoint creates an in-progress checkpoint for a request key.
func NewCheckpoint(requestKey string) *PipelineCheckpoint {
	now := time.Now()
	return &PipelineCheckpoint{
		RequestKey:   requestKey,
		FusedByStage: make(map[Stage]*Payload),
		Status:       CheckpointInProgress,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Record stores a stage's fused data and confidence, advancing the
// furthest stage if the given stage is later in execution order.
func (c *PipelineCheckpoint) Record(stage Stage, fused *Payload, confidence float64) {
	if c.FusedByStage == nil {
		c.FusedByStage = make(map[Stage]*Payload)
	}
	if c.ConfidenceByStage == nil {
		c.ConfidenceByStage = make(map[Stage]float64)
	}
	c.FusedByStage[stage] = fused
	c.ConfidenceByStage[stage] = confidence
	if StageIndex(stage) >= StageIndex(c.FurthestStage) {
		c.FurthestStage = stage
	}
	c.UpdatedAt = time.Now()
}

// Resumable reports whether the checkpoint has usable fused data for its
// furthest stage. Failed checkpoints stay resumable: a retried identical
// request picks up after the last stage that succeeded.
func (c *PipelineCheckpoint) Resumable() bool {
	if c == nil || c.Status == CheckpointComplete {
		return false
	}
	fused, ok := c.FusedByStage[c.FurthestStage]
	return ok && !fused.Empty()
}

// RequestKey derives the deterministic checkpoint key from image identity
// and user-supplied text. Identical retried requests land on the same row.
func RequestKey(imageID, userText string) string {
	h := sha256.New()
	h.Write([]byte(imageID))
	h.Write([]byte{0})
	h.Write([]byte(userText))
	return hex.EncodeToString(h.Sum(nil))[:32]
}
