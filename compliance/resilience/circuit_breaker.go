// Package resilience provides the two fault-tolerance primitives this
// runtime needs around external, possibly-flaky collaborators: a
// circuit breaker for the multi-region key provider's automatic
// failover decision, and exponential-backoff retry for erasure
// contributor calls. Grounded on the embedding platform's infrastructure/resilience
// package — which itself carries two incompatible circuit-breaker
// implementations in the same directory (a dependency-free hand-rolled
// one and a github.com/sony/gobreaker/v2-backed one whose dependency
// never made it into the embedding platform's own go.mod). Only the dependency-free
// implementation is usable without fabricating a dependency, so it is
// the one adapted here; see DESIGN.md for the full note.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is a circuit breaker's current disposition.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrOpen is returned by Execute while the breaker is open.
	ErrOpen = errors.New("circuit breaker is open")
	// ErrTooManyHalfOpenRequests is returned when more than HalfOpenMax
	// requests arrive while the breaker is probing in half-open state.
	ErrTooManyHalfOpenRequests = errors.New("too many requests in half-open state")
)

// Config configures a CircuitBreaker.
type Config struct {
	MaxFailures   int
	Timeout       time.Duration
	HalfOpenMax   int
	OnStateChange func(from, to State)
}

func (c Config) withDefaults() Config {
	if c.MaxFailures <= 0 {
		c.MaxFailures = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HalfOpenMax <= 0 {
		c.HalfOpenMax = 3
	}
	return c
}

// CircuitBreaker trips open after MaxFailures consecutive failures, then
// waits Timeout before allowing HalfOpenMax probe calls through; a probe
// success count reaching HalfOpenMax closes it again, a probe failure
// reopens it immediately.
type CircuitBreaker struct {
	mu           sync.Mutex
	config       Config
	state        State
	failures     int
	successes    int
	halfOpenReqs int
	lastFailure  time.Time
}

// New constructs a CircuitBreaker in the closed state.
func New(cfg Config) *CircuitBreaker {
	return &CircuitBreaker{config: cfg.withDefaults(), state: StateClosed}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker back to the closed state, clearing its
// failure/success counters. Used by callers that recover a dependency
// through an out-of-band signal (an operator-triggered failback, say)
// rather than through Execute observing a run of successes.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setStateLocked(StateClosed)
}

// Execute runs fn under the breaker's protection, returning ErrOpen or
// ErrTooManyHalfOpenRequests without calling fn when the breaker refuses
// the call.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}
	err := fn()
	cb.afterRequest(err == nil)
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) > cb.config.Timeout {
			cb.setStateLocked(StateHalfOpen)
			cb.halfOpenReqs = 1
			return nil
		}
		return ErrOpen
	case StateHalfOpen:
		if cb.halfOpenReqs >= cb.config.HalfOpenMax {
			return ErrTooManyHalfOpenRequests
		}
		cb.halfOpenReqs++
	}
	return nil
}

func (cb *CircuitBreaker) afterRequest(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if success {
		cb.onSuccessLocked()
	} else {
		cb.onFailureLocked()
	}
}

func (cb *CircuitBreaker) onSuccessLocked() {
	switch cb.state {
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.HalfOpenMax {
			cb.setStateLocked(StateClosed)
		}
	case StateClosed:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) onFailureLocked() {
	cb.failures++
	cb.lastFailure = time.Now()
	switch cb.state {
	case StateHalfOpen:
		cb.setStateLocked(StateOpen)
	case StateClosed:
		if cb.failures >= cb.config.MaxFailures {
			cb.setStateLocked(StateOpen)
		}
	}
}

func (cb *CircuitBreaker) setStateLocked(newState State) {
	if cb.state == newState {
		return
	}
	old := cb.state
	cb.state = newState
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenReqs = 0
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(old, newState)
	}
}
