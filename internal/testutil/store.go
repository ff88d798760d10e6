package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/uxray-ai/uxray/internal/core"
)

// MemStore is an in-memory core.Store. Optional error hooks let tests
// simulate store failures per operation.
type MemStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*core.PipelineCheckpoint
	results     map[string]*core.PipelineResult

	SaveCheckpointErr error
	LoadCheckpointErr error
	SaveResultErr     error
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		checkpoints: make(map[string]*core.PipelineCheckpoint),
		results:     make(map[string]*core.PipelineResult),
	}
}

// SaveCheckpoint upserts a checkpoint.
func (s *MemStore) SaveCheckpoint(_ context.Context, cp *core.PipelineCheckpoint) error {
	if s.SaveCheckpointErr != nil {
		return s.SaveCheckpointErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *cp
	s.checkpoints[cp.RequestKey] = &clone
	return nil
}

// LoadCheckpoint returns a stored checkpoint or nil.
func (s *MemStore) LoadCheckpoint(_ context.Context, requestKey string) (*core.PipelineCheckpoint, error) {
	if s.LoadCheckpointErr != nil {
		return nil, s.LoadCheckpointErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[requestKey]
	if !ok {
		return nil, nil
	}
	clone := *cp
	return &clone, nil
}

// DeleteCheckpoint removes a checkpoint.
func (s *MemStore) DeleteCheckpoint(_ context.Context, requestKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, requestKey)
	return nil
}

// SaveResult upserts a result.
func (s *MemStore) SaveResult(_ context.Context, result *core.PipelineResult) error {
	if s.SaveResultErr != nil {
		return s.SaveResultErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *result
	s.results[result.RequestKey] = &clone
	return nil
}

// LoadResult returns a stored result or nil.
func (s *MemStore) LoadResult(_ context.Context, requestKey string) (*core.PipelineResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[requestKey]
	if !ok {
		return nil, nil
	}
	clone := *result
	return &clone, nil
}

// CheckpointCount returns how many checkpoints are stored.
func (s *MemStore) CheckpointCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.checkpoints)
}

// FakeClock is a manually advanced core.Clock.
type FakeClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFakeClock creates a clock frozen at the given instant.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{t: start}
}

// Now returns the clock's current instant.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Payload helpers used across tests.

// VisionPayload builds a minimal vision payload.
func VisionPayload(summary string, elements ...core.Element) *core.Payload {
	return &core.Payload{Vision: &core.VisionPayload{
		Elements: elements,
		Summary:  summary,
	}}
}

// AnalysisPayload builds a minimal analysis payload.
func AnalysisPayload(overall float64, findings ...core.Finding) *core.Payload {
	return &core.Payload{Analysis: &core.AnalysisPayload{
		Findings:       findings,
		UsabilityScore: overall,
		A11yScore:      overall,
		DesignScore:    overall,
		OverallScore:   overall,
	}}
}

// SynthesisPayload builds a minimal synthesis payload.
func SynthesisPayload(summary string, items ...core.ActionItem) *core.Payload {
	return &core.Payload{Synthesis: &core.SynthesisPayload{
		Summary:     summary,
		ActionItems: items,
	}}
}
