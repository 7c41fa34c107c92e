// Package circuitbreaker short-circuits calls to a dependency after a
// failure streak. An open circuit rejects calls outright; once a cooldown
// passes, a limited number of probe calls decide whether it closes again.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

type Config struct {
	// MaxRequests caps concurrent probe calls while half-open.
	MaxRequests uint32
	// Interval, when positive, restarts the closed-state failure streak
	// periodically. Zero keeps counting forever.
	Interval time.Duration
	// Timeout is how long an open circuit waits before half-opening.
	Timeout time.Duration
	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold uint32
	// SuccessThreshold consecutive probe successes close it again.
	SuccessThreshold uint32
	OnStateChange    func(name string, from State, to State)
	Logger           *zap.Logger
}

// CircuitBreaker tracks consecutive results of guarded calls and moves
// between closed, open and half-open. All bookkeeping is versioned by a
// window counter so a slow call that finishes after a state change
// cannot corrupt the new state's counts.
type CircuitBreaker struct {
	name             string
	maxRequests      uint32
	interval         time.Duration
	timeout          time.Duration
	failureThreshold uint32
	successThreshold uint32
	onStateChange    func(name string, from State, to State)
	logger           *zap.Logger

	mu            sync.Mutex
	state         State
	window        uint64
	probes        uint32
	successStreak uint32
	failureStreak uint32
	deadline      time.Time
}

func NewCircuitBreaker(name string, cfg Config) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:             name,
		maxRequests:      cfg.MaxRequests,
		interval:         cfg.Interval,
		timeout:          cfg.Timeout,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		onStateChange:    cfg.OnStateChange,
		logger:           cfg.Logger,
	}

	if cb.maxRequests == 0 {
		cb.maxRequests = 1
	}
	if cb.timeout == 0 {
		cb.timeout = 60 * time.Second
	}
	if cb.failureThreshold == 0 {
		cb.failureThreshold = 5
	}
	if cb.successThreshold == 0 {
		cb.successThreshold = 2
	}

	cb.reset(time.Now())

	return cb
}

// Execute runs fn under the breaker. It returns ErrCircuitOpen while the
// circuit is open, ErrTooManyRequests when half-open probes are already
// in flight, and otherwise fn's own error.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	window, err := cb.admit()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			cb.settle(window, false)
			panic(r)
		}
	}()

	err = fn()
	cb.settle(window, err == nil)
	return err
}

// State reports the current state, applying any transition the clock
// owes first.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.advance(time.Now())
	return cb.state
}

func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.advance(time.Now())

	switch {
	case cb.state == StateOpen:
		return cb.window, ErrCircuitOpen
	case cb.state == StateHalfOpen && cb.probes >= cb.maxRequests:
		return cb.window, ErrTooManyRequests
	}

	cb.probes++
	return cb.window, nil
}

// settle records a call result. Results from a window older than the
// current one are dropped.
func (cb *CircuitBreaker) settle(window uint64, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	cb.advance(now)
	if cb.window != window {
		return
	}

	if ok {
		cb.successStreak++
		cb.failureStreak = 0
		if cb.state == StateHalfOpen && cb.successStreak >= cb.successThreshold {
			cb.transition(StateClosed, now)
		}
		return
	}

	cb.successStreak = 0
	cb.failureStreak++
	switch cb.state {
	case StateClosed:
		if cb.failureStreak >= cb.failureThreshold {
			cb.transition(StateOpen, now)
		}
	case StateHalfOpen:
		cb.transition(StateOpen, now)
	}
}

// advance applies transitions owed to the clock rather than to a call
// result: an expired open cooldown half-opens, an expired closed
// interval starts a fresh streak window.
func (cb *CircuitBreaker) advance(now time.Time) {
	switch cb.state {
	case StateClosed:
		if !cb.deadline.IsZero() && cb.deadline.Before(now) {
			cb.reset(now)
		}
	case StateOpen:
		if cb.deadline.Before(now) {
			cb.transition(StateHalfOpen, now)
		}
	}
}

func (cb *CircuitBreaker) transition(to State, now time.Time) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to
	cb.reset(now)

	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
	if cb.logger != nil {
		cb.logger.Info("Circuit breaker state changed",
			zap.String("name", cb.name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
}

// reset opens a new window: counters go back to zero and the deadline is
// set per state. Closed circuits expire after Interval, open ones after
// Timeout, half-open ones only by call results.
func (cb *CircuitBreaker) reset(now time.Time) {
	cb.window++
	cb.probes = 0
	cb.successStreak = 0
	cb.failureStreak = 0

	switch cb.state {
	case StateClosed:
		cb.deadline = time.Time{}
		if cb.interval > 0 {
			cb.deadline = now.Add(cb.interval)
		}
	case StateOpen:
		cb.deadline = now.Add(cb.timeout)
	default:
		cb.deadline = time.Time{}
	}
}
