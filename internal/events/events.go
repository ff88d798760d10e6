// Package events provides a lightweight in-process pub/sub bus for
// pipeline lifecycle notifications. Publishing never blocks; slow
// subscribers lose events rather than stalling the pipeline.
package events

import (
	"time"

	"github.com/uxray-ai/uxray/internal/core"
)

// EventType identifies a pipeline lifecycle event.
type EventType string

const (
	PipelineStarted        EventType = "pipeline.started"
	ClarificationRequested EventType = "pipeline.clarification_requested"
	StageStarted           EventType = "stage.started"
	StageCompleted         EventType = "stage.completed"
	StageFailed            EventType = "stage.failed"
	StageResumed           EventType = "stage.resumed"
	BreakerTransitioned    EventType = "breaker.transitioned"
	PipelineRecovered      EventType = "pipeline.recovered"
	PipelineCompleted      EventType = "pipeline.completed"
	PipelineFailed         EventType = "pipeline.failed"
)

// Event is one pipeline notification.
type Event struct {
	Type       EventType              `json:"type"`
	RequestKey string                 `json:"request_key,omitempty"`
	Stage      core.Stage             `json:"stage,omitempty"`
	At         time.Time              `json:"at"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}
