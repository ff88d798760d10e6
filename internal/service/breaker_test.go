package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/uxray-ai/uxray/internal/core"
	"github.com/uxray-ai/uxray/internal/logging"
	"github.com/uxray-ai/uxray/internal/testutil"
)

func testBreaker(clock core.Clock) *CircuitBreaker {
	return NewCircuitBreaker("fake-provider", BreakerSettings{
		FailureThreshold:   3,
		RecoveryTimeout:    30 * time.Second,
		HalfOpenRetryLimit: 2,
	}).WithClock(clock)
}

func failCall(ctx context.Context) error {
	return core.ErrProvider("fake-provider", "boom")
}

func okCall(ctx context.Context) error { return nil }

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now())
	b := testBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if b.State() != BreakerClosed {
			t.Fatalf("state before failure %d = %s, want closed", i, b.State())
		}
		_ = b.Execute(ctx, failCall)
	}

	if b.State() != BreakerOpen {
		t.Errorf("state after %d failures = %s, want open", 3, b.State())
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now())
	b := testBreaker(clock)
	ctx := context.Background()

	_ = b.Execute(ctx, failCall)
	_ = b.Execute(ctx, failCall)
	_ = b.Execute(ctx, okCall)
	_ = b.Execute(ctx, failCall)
	_ = b.Execute(ctx, failCall)

	// Failures are consecutive; the success in the middle reset the count.
	if b.State() != BreakerClosed {
		t.Errorf("state = %s, want closed", b.State())
	}
}

func TestCircuitBreaker_CallerCancellationDoesNotCount(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now())
	b := testBreaker(clock)
	ctx := context.Background()

	canceledCall := func(ctx context.Context) error {
		return context.Canceled
	}

	// Repeated user aborts must not open a healthy provider's circuit.
	for i := 0; i < 5; i++ {
		_ = b.Execute(ctx, canceledCall)
	}
	if b.State() != BreakerClosed {
		t.Fatalf("state after cancellations = %s, want closed", b.State())
	}

	// Cancellation is neutral: it does not reset a genuine failure streak
	// the way a success would.
	_ = b.Execute(ctx, failCall)
	_ = b.Execute(ctx, failCall)
	_ = b.Execute(ctx, canceledCall)
	_ = b.Execute(ctx, failCall)
	if b.State() != BreakerOpen {
		t.Errorf("state = %s, want open after three real failures", b.State())
	}
}

func TestCircuitBreaker_OpenShortCircuits(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now())
	b := testBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = b.Execute(ctx, failCall)
	}

	called := false
	err := b.Execute(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})

	if called {
		t.Error("open breaker invoked the call")
	}
	if !core.IsCategory(err, core.ErrCatCircuit) {
		t.Errorf("error category = %s, want circuit", core.GetCategory(err))
	}
	var domErr *core.DomainError
	if errors.As(err, &domErr) && domErr.Code != core.CodeCircuitOpen {
		t.Errorf("error code = %s, want %s", domErr.Code, core.CodeCircuitOpen)
	}
}

func TestCircuitBreaker_HalfOpenAfterRecoveryTimeout(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now())
	b := testBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = b.Execute(ctx, failCall)
	}
	clock.Advance(31 * time.Second)

	// First call after the timeout is the probe; success closes.
	if err := b.Execute(ctx, okCall); err != nil {
		t.Fatalf("probe call error = %v, want nil", err)
	}
	if b.State() != BreakerClosed {
		t.Errorf("state after successful probe = %s, want closed", b.State())
	}
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now())
	b := testBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = b.Execute(ctx, failCall)
	}
	clock.Advance(31 * time.Second)

	_ = b.Execute(ctx, failCall)
	if b.State() != BreakerOpen {
		t.Errorf("state after failed probe = %s, want open", b.State())
	}

	// Still open before the next recovery window.
	err := b.Execute(ctx, okCall)
	if !core.IsCategory(err, core.ErrCatCircuit) {
		t.Errorf("error category = %s, want circuit", core.GetCategory(err))
	}
}

func TestCircuitBreaker_HalfOpenProbeLimit(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now())
	b := testBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = b.Execute(ctx, failCall)
	}
	clock.Advance(31 * time.Second)

	// Move to half-open without settling the probe outcome.
	if !b.Allow() {
		t.Fatal("first probe not allowed")
	}
	if !b.Allow() {
		t.Fatal("second probe not allowed")
	}
	if b.Allow() {
		t.Error("third probe allowed, want re-open at limit")
	}
	if b.State() != BreakerOpen {
		t.Errorf("state = %s, want open", b.State())
	}
}

func TestCircuitBreaker_TransitionHistory(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now())
	b := testBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = b.Execute(ctx, failCall)
	}
	clock.Advance(31 * time.Second)
	_ = b.Execute(ctx, okCall)

	snap := b.Snapshot()
	want := []struct{ from, to BreakerState }{
		{BreakerClosed, BreakerOpen},
		{BreakerOpen, BreakerHalfOpen},
		{BreakerHalfOpen, BreakerClosed},
	}
	if len(snap.Transitions) != len(want) {
		t.Fatalf("transitions = %d, want %d", len(snap.Transitions), len(want))
	}
	for i, w := range want {
		if snap.Transitions[i].From != w.from || snap.Transitions[i].To != w.to {
			t.Errorf("transition %d = %s->%s, want %s->%s",
				i, snap.Transitions[i].From, snap.Transitions[i].To, w.from, w.to)
		}
	}
}

func TestBreakerRegistry_PerOperation(t *testing.T) {
	reg := NewBreakerRegistry(DefaultBreakerSettings(), logging.NewNop())

	a := reg.Get("provider-a")
	b := reg.Get("provider-b")
	if a == b {
		t.Error("distinct operations share a breaker")
	}
	if reg.Get("provider-a") != a {
		t.Error("same operation returned a different breaker")
	}
	if len(reg.Snapshots()) != 2 {
		t.Errorf("snapshots = %d, want 2", len(reg.Snapshots()))
	}
}

func TestBreakerRegistry_TransitionHook(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now())
	reg := NewBreakerRegistry(BreakerSettings{
		FailureThreshold:   1,
		RecoveryTimeout:    time.Minute,
		HalfOpenRetryLimit: 1,
	}, logging.NewNop()).WithClock(clock)

	var transitions []Transition
	reg.OnTransition(func(operation string, tr Transition) {
		if operation != "fake" {
			t.Errorf("operation = %s, want fake", operation)
		}
		transitions = append(transitions, tr)
	})

	_ = reg.Get("fake").Execute(context.Background(), failCall)
	if len(transitions) != 1 || transitions[0].To != BreakerOpen {
		t.Errorf("transitions = %+v, want one closed->open", transitions)
	}
}
