package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/uxray-ai/uxray/internal/core"
	"github.com/uxray-ai/uxray/internal/logging"
)

// BreakerState is the circuit breaker state for one operation.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerSettings configures circuit breaker behavior.
type BreakerSettings struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold int
	// RecoveryTimeout is how long an open circuit waits before allowing
	// a half-open probe.
	RecoveryTimeout time.Duration
	// HalfOpenRetryLimit bounds probe calls while half-open; exceeding
	// it without a success re-opens the circuit.
	HalfOpenRetryLimit int
}

// DefaultBreakerSettings returns default breaker settings.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		FailureThreshold:   5,
		RecoveryTimeout:    30 * time.Second,
		HalfOpenRetryLimit: 2,
	}
}

// Transition records one state change for observability.
type Transition struct {
	From   BreakerState `json:"from"`
	To     BreakerState `json:"to"`
	Reason string       `json:"reason"`
	At     time.Time    `json:"at"`
}

// maxTransitionHistory bounds the per-breaker transition log.
const maxTransitionHistory = 64

// CircuitBreaker tracks the health of one named operation and fails fast
// while the operation is known to be unhealthy. Every mutation is a single
// transition under the mutex; no lock is held across the wrapped call.
type CircuitBreaker struct {
	operation string
	settings  BreakerSettings
	clock     core.Clock

	mu             sync.Mutex
	state          BreakerState
	failureCount   int
	lastFailureAt  time.Time
	halfOpenProbes int
	transitions    []Transition

	onTransition func(operation string, t Transition)
}

// NewCircuitBreaker creates a breaker for a named operation.
func NewCircuitBreaker(operation string, settings BreakerSettings) *CircuitBreaker {
	return &CircuitBreaker{
		operation: operation,
		settings:  settings,
		clock:     core.SystemClock{},
		state:     BreakerClosed,
	}
}

// WithClock overrides the clock (for testing).
func (b *CircuitBreaker) WithClock(clock core.Clock) *CircuitBreaker {
	b.clock = clock
	return b
}

// Execute runs fn through the breaker. While open, fn is not invoked and
// a circuit-open error is returned immediately.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}

	err := fn(ctx)
	b.afterCall(err)
	return err
}

// Allow reports whether a call may proceed, advancing OPEN to HALF_OPEN
// when the recovery timeout has elapsed.
func (b *CircuitBreaker) Allow() bool {
	return b.beforeCall() == nil
}

func (b *CircuitBreaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if b.clock.Now().Sub(b.lastFailureAt) >= b.settings.RecoveryTimeout {
			b.transition(BreakerHalfOpen, "recovery timeout elapsed")
			b.halfOpenProbes = 1
			return nil
		}
		return core.ErrCircuitOpen(b.operation)
	case BreakerHalfOpen:
		if b.halfOpenProbes >= b.settings.HalfOpenRetryLimit {
			b.transition(BreakerOpen, "half-open probe limit exceeded")
			b.lastFailureAt = b.clock.Now()
			return core.ErrCircuitOpen(b.operation)
		}
		b.halfOpenProbes++
		return nil
	}
	return nil
}

func (b *CircuitBreaker) afterCall(err error) {
	// Caller cancellation says nothing about the operation's health;
	// it neither counts as a failure nor resets the streak.
	if err != nil && errors.Is(err, context.Canceled) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.onSuccess()
		return
	}
	b.onFailure()
}

func (b *CircuitBreaker) onSuccess() {
	switch b.state {
	case BreakerHalfOpen:
		b.transition(BreakerClosed, "probe succeeded")
		b.failureCount = 0
		b.halfOpenProbes = 0
	case BreakerClosed:
		b.failureCount = 0
	}
}

func (b *CircuitBreaker) onFailure() {
	b.lastFailureAt = b.clock.Now()

	switch b.state {
	case BreakerHalfOpen:
		b.transition(BreakerOpen, "probe failed")
		b.halfOpenProbes = 0
	case BreakerClosed:
		b.failureCount++
		if b.failureCount >= b.settings.FailureThreshold {
			b.transition(BreakerOpen, "failure threshold reached")
		}
	}
}

// transition must be called with the mutex held.
func (b *CircuitBreaker) transition(to BreakerState, reason string) {
	t := Transition{From: b.state, To: to, Reason: reason, At: b.clock.Now()}
	b.state = to
	b.transitions = append(b.transitions, t)
	if len(b.transitions) > maxTransitionHistory {
		b.transitions = b.transitions[len(b.transitions)-maxTransitionHistory:]
	}
	if b.onTransition != nil {
		b.onTransition(b.operation, t)
	}
}

// State returns the current breaker state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot describes one breaker for diagnostics.
type Snapshot struct {
	Operation     string       `json:"operation"`
	State         BreakerState `json:"state"`
	FailureCount  int          `json:"failure_count"`
	LastFailureAt time.Time    `json:"last_failure_at,omitempty"`
	Transitions   []Transition `json:"transitions,omitempty"`
}

// Snapshot returns a copy of the breaker's observable state.
func (b *CircuitBreaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	transitions := make([]Transition, len(b.transitions))
	copy(transitions, b.transitions)
	return Snapshot{
		Operation:     b.operation,
		State:         b.state,
		FailureCount:  b.failureCount,
		LastFailureAt: b.lastFailureAt,
		Transitions:   transitions,
	}
}

// BreakerRegistry owns one breaker per operation name. It is the only
// process-lifetime mutable state in the pipeline: breaker state
// deliberately survives across requests to protect unhealthy providers.
type BreakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	settings BreakerSettings
	clock    core.Clock
	logger   *logging.Logger

	onTransition func(operation string, t Transition)
}

// NewBreakerRegistry creates a breaker registry.
func NewBreakerRegistry(settings BreakerSettings, logger *logging.Logger) *BreakerRegistry {
	return &BreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
		settings: settings,
		clock:    core.SystemClock{},
		logger:   logger,
	}
}

// WithClock overrides the clock for breakers created afterwards.
func (r *BreakerRegistry) WithClock(clock core.Clock) *BreakerRegistry {
	r.clock = clock
	return r
}

// OnTransition registers a hook invoked on every state change (used for
// metrics). Must be set before first use.
func (r *BreakerRegistry) OnTransition(fn func(operation string, t Transition)) {
	r.onTransition = fn
}

// Get returns the breaker for an operation, creating it on first use.
func (r *BreakerRegistry) Get(operation string) *CircuitBreaker {
	r.mu.RLock()
	b, ok := r.breakers[operation]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[operation]; ok {
		return b
	}
	b = NewCircuitBreaker(operation, r.settings).WithClock(r.clock)
	b.onTransition = func(operation string, t Transition) {
		if r.logger != nil {
			r.logger.Info("circuit breaker transition",
				"operation", operation,
				"from", string(t.From),
				"to", string(t.To),
				"reason", t.Reason,
			)
		}
		if r.onTransition != nil {
			r.onTransition(operation, t)
		}
	}
	r.breakers[operation] = b
	return b
}

// Snapshots returns diagnostic snapshots of all breakers.
func (r *BreakerRegistry) Snapshots() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Snapshot, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, b.Snapshot())
	}
	return out
}
