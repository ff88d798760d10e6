package service

import (
	"context"
	"errors"
	"time"

	"github.com/uxray-ai/uxray/internal/core"
	"github.com/uxray-ai/uxray/internal/logging"
)

// Invoker wraps a single provider call with a hard deadline and normalizes
// provider failures into typed errors. It does not retry or break circuits;
// that is layered on by the coordinator.
type Invoker struct {
	logger *logging.Logger
}

// NewInvoker creates a new invoker.
func NewInvoker(logger *logging.Logger) *Invoker {
	return &Invoker{logger: logger}
}

// Invoke performs one bounded provider call. A deadline overrun yields a
// timeout-category error distinguishable from a provider-reported one;
// the recovery orchestrator relies on that distinction later.
func (i *Invoker) Invoke(ctx context.Context, provider core.Provider, req core.InvokeRequest, timeout time.Duration) (*core.Payload, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := provider.Invoke(callCtx, req)
	if err != nil {
		return nil, i.classify(provider.Name(), err, callCtx)
	}
	if payload.Empty() {
		return nil, core.ErrProvider(provider.Name(), "provider returned an empty payload").
			WithDetail("stage", string(req.Stage))
	}
	return payload, nil
}

// classify maps raw invocation failures onto the error taxonomy.
func (i *Invoker) classify(provider string, err error, callCtx context.Context) error {
	var domErr *core.DomainError
	if errors.As(err, &domErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
		return core.ErrTimeout("provider call exceeded deadline").
			WithDetail("provider", provider).
			WithCause(err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return core.ErrProvider(provider, err.Error()).WithCause(err)
}
