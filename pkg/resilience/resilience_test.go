package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
)

var errBackend = errors.New("backend down")

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker("redis-cache", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		OnStateChange:    func(_ string, to State) { transitions = append(transitions, to) },
	})

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errBackend }), errBackend)
	}
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, []State{StateOpen}, transitions)
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker("redis-cache", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errBackend })
	require.Equal(t, StateOpen, cb.GetState())

	now = now.Add(2 * time.Second)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker("redis-cache", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errBackend })
	now = now.Add(2 * time.Second)
	_ = cb.Execute(func() error { return errBackend })
	assert.Equal(t, StateOpen, cb.GetState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "ping", RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}, func() error {
		attempts++
		if attempts < 3 {
			return errBackend
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "ping", RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Retryable:    func(err error) bool { return !errors.Is(err, apperrors.ErrInvalidInput) },
	}, func() error {
		attempts++
		return apperrors.New(apperrors.ErrInvalidInput, "bad event")
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, 1, attempts)
}

func TestRetryExhausted(t *testing.T) {
	err := Retry(context.Background(), "ping", RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}, func() error {
		return errBackend
	})
	assert.ErrorIs(t, err, errBackend)
	assert.Contains(t, err.Error(), "all 2 attempts failed")
}

func TestWithTimeoutExceeded(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "search", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithTimeoutPassesThroughResult(t *testing.T) {
	err := WithTimeout(context.Background(), time.Second, "search", func(ctx context.Context) error {
		return errBackend
	})
	assert.ErrorIs(t, err, errBackend)
	assert.NoError(t, WithTimeout(context.Background(), 0, "search", func(context.Context) error { return nil }))
}
