package service

import (
	"context"
	"time"

	"github.com/uxray-ai/uxray/internal/core"
	"github.com/uxray-ai/uxray/internal/logging"
)

// Checkpointer wraps the state store with the pipeline's persistence
// policy: saves are best effort and never fail the analysis, loads apply
// the staleness TTL so an abandoned checkpoint cannot resurrect stale
// fused data indefinitely.
type Checkpointer struct {
	store  core.Store
	ttl    time.Duration
	logger *logging.Logger
	clock  core.Clock
}

// NewCheckpointer creates a checkpointer. A zero ttl disables staleness
// checks.
func NewCheckpointer(store core.Store, ttl time.Duration, logger *logging.Logger) *Checkpointer {
	return &Checkpointer{
		store:  store,
		ttl:    ttl,
		logger: logger,
		clock:  core.SystemClock{},
	}
}

// WithClock replaces the clock for staleness tests.
func (c *Checkpointer) WithClock(clock core.Clock) *Checkpointer {
	c.clock = clock
	return c
}

// Load returns a resumable checkpoint for the key, or nil when none
// exists, it is stale, or it is not resumable. Stale rows are deleted on
// the way out. Store read failures degrade to a cold start rather than
// failing the request.
func (c *Checkpointer) Load(ctx context.Context, requestKey string) *core.PipelineCheckpoint {
	cp, err := c.store.LoadCheckpoint(ctx, requestKey)
	if err != nil {
		c.logger.Warn("checkpoint load failed, starting cold",
			"request_key", requestKey,
			"error", err.Error(),
		)
		return nil
	}
	if cp == nil {
		return nil
	}
	if c.ttl > 0 && c.clock.Now().Sub(cp.UpdatedAt) > c.ttl {
		c.logger.Info("discarding stale checkpoint",
			"request_key", requestKey,
			"updated_at", cp.UpdatedAt.Format(time.RFC3339),
		)
		c.Delete(ctx, requestKey)
		return nil
	}
	if !cp.Resumable() {
		return nil
	}
	return cp
}

// Save persists the checkpoint. Failures are logged, never returned:
// losing a checkpoint costs a future resume, not the current analysis.
func (c *Checkpointer) Save(ctx context.Context, cp *core.PipelineCheckpoint) {
	if err := c.store.SaveCheckpoint(ctx, cp); err != nil {
		c.logger.Warn("checkpoint save failed",
			"request_key", cp.RequestKey,
			"stage", string(cp.FurthestStage),
			"error", err.Error(),
		)
	}
}

// MarkFailed records the failure reason so a later identical request can
// still resume from the furthest completed stage.
func (c *Checkpointer) MarkFailed(ctx context.Context, cp *core.PipelineCheckpoint, reason string) {
	cp.Status = core.CheckpointFailed
	cp.FailReason = reason
	cp.UpdatedAt = c.clock.Now()
	c.Save(ctx, cp)
}

// Delete removes the checkpoint after a completed analysis.
func (c *Checkpointer) Delete(ctx context.Context, requestKey string) {
	if err := c.store.DeleteCheckpoint(ctx, requestKey); err != nil {
		c.logger.Warn("checkpoint delete failed",
			"request_key", requestKey,
			"error", err.Error(),
		)
	}
}
