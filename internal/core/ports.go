package core

import (
	"context"
	"time"
)

// =============================================================================
// Provider Port
// =============================================================================

// Provider defines the contract for AI model provider adapters. The
// pipeline is agnostic to how a provider performs the call (HTTP, SDK,
// local model); it only relies on this uniform signature.
type Provider interface {
	// Name returns the provider identifier (e.g., "gpt4-vision").
	Name() string

	// Capabilities returns what the provider can do.
	Capabilities() Capabilities

	// Ping checks if the provider endpoint is reachable and authenticated.
	Ping(ctx context.Context) error

	// Invoke performs one model call and normalizes the response into a
	// typed stage payload. Deadlines are applied by the caller via ctx;
	// Invoke itself neither retries nor breaks circuits.
	Invoke(ctx context.Context, req InvokeRequest) (*Payload, error)
}

// Capabilities describes what a provider can do.
type Capabilities struct {
	SupportsVision bool
	SupportsJSON   bool
	DefaultModel   string
	MaxImageBytes  int64
}

// InvokeRequest carries everything one provider call needs.
type InvokeRequest struct {
	Stage        Stage
	SystemPrompt string
	Prompt       string
	Image        []byte // nil for text-only stages
	ImageType    string // content type of Image
	Context      *AnalysisContext
	Prior        map[Stage]*Payload // fused outputs of earlier stages
}

// ProviderRegistry manages registered providers.
type ProviderRegistry interface {
	// Register adds a provider to the registry.
	Register(p Provider) error

	// Get retrieves a provider by name.
	Get(name string) (Provider, error)

	// List returns all registered provider names.
	List() []string
}

// =============================================================================
// Checkpoint / Result Store Port
// =============================================================================

// Store persists pipeline checkpoints and final results through a
// key-value-like upsert contract. The pipeline relies only on point
// lookups by key; last writer wins.
type Store interface {
	// SaveCheckpoint upserts a checkpoint under its request key.
	SaveCheckpoint(ctx context.Context, cp *PipelineCheckpoint) error

	// LoadCheckpoint retrieves a checkpoint by request key.
	// Returns nil and no error if none exists.
	LoadCheckpoint(ctx context.Context, requestKey string) (*PipelineCheckpoint, error)

	// DeleteCheckpoint removes a checkpoint after completion or cancel.
	DeleteCheckpoint(ctx context.Context, requestKey string) error

	// SaveResult upserts a final analysis result under its request key.
	SaveResult(ctx context.Context, result *PipelineResult) error

	// LoadResult retrieves a final result by request key.
	// Returns nil and no error if none exists.
	LoadResult(ctx context.Context, requestKey string) (*PipelineResult, error)
}

// Closeable is an optional interface for stores that need cleanup.
type Closeable interface {
	Close() error
}

// =============================================================================
// Image Source Port
// =============================================================================

// ImageSource fetches screenshot bytes for an image reference. The object
// storage behind it is an external collaborator; only this boundary is
// specified.
type ImageSource interface {
	// Fetch returns the image bytes and content type for a reference.
	Fetch(ctx context.Context, ref string) ([]byte, string, error)
}

// =============================================================================
// Progress Port
// =============================================================================

// ProgressFunc receives pipeline progress events at fixed milestones.
// This is a push interface with no backpressure: implementations must not
// block.
type ProgressFunc func(percent int, stage Stage, meta map[string]interface{})

// NopProgress discards progress events.
func NopProgress(int, Stage, map[string]interface{}) {}

// =============================================================================
// Clock (test seam)
// =============================================================================

// Clock abstracts time for breaker and retry tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }
