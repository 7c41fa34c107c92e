package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend failure")

func failingBreaker(t *testing.T, timeout time.Duration) *CircuitBreaker {
	t.Helper()
	return NewCircuitBreaker("test", Config{
		MaxRequests:      2,
		Timeout:          timeout,
		FailureThreshold: 3,
		SuccessThreshold: 2,
	})
}

func trip(t *testing.T, cb *CircuitBreaker) {
	t.Helper()
	for i := 0; i < 3; i++ {
		err := cb.Execute(context.Background(), func() error { return errBackend })
		require.ErrorIs(t, err, errBackend)
	}
}

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	cb := failingBreaker(t, time.Minute)

	for i := 0; i < 10; i++ {
		err := cb.Execute(context.Background(), func() error { return nil })
		require.NoError(t, err)
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := failingBreaker(t, time.Minute)

	trip(t, cb)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(context.Background(), func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	cb := failingBreaker(t, time.Minute)

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func() error { return errBackend })
	}
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func() error { return errBackend })
	}

	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerHalfOpensAfterTimeout(t *testing.T) {
	cb := failingBreaker(t, 20*time.Millisecond)

	trip(t, cb)
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	// Two consecutive successes close the breaker again.
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := failingBreaker(t, 20*time.Millisecond)

	trip(t, cb)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	err := cb.Execute(context.Background(), func() error { return errBackend })
	require.ErrorIs(t, err, errBackend)
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerLimitsHalfOpenProbes(t *testing.T) {
	cb := NewCircuitBreaker("test", Config{
		MaxRequests:      1,
		Timeout:          20 * time.Millisecond,
		FailureThreshold: 3,
		SuccessThreshold: 2,
	})

	trip(t, cb)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = cb.Execute(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := cb.Execute(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrTooManyRequests)
	close(release)
}

func TestBreakerExecuteHonorsContext(t *testing.T) {
	cb := failingBreaker(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBreakerStateChangeCallback(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker("llm", Config{
		MaxRequests:      1,
		Timeout:          time.Minute,
		FailureThreshold: 2,
		SuccessThreshold: 1,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = cb.Execute(context.Background(), func() error { return errBackend })
	_ = cb.Execute(context.Background(), func() error { return errBackend })

	require.Len(t, transitions, 1)
	assert.Equal(t, "closed->open", transitions[0])
}
