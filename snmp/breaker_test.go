package snmp

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failing() error { return errBoom }
func succeeding() error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker(WithFailureThreshold(3))

	for i := 0; i < 3; i++ {
		assert.Equal(t, BreakerClosed, b.State("a"))
		err := b.Call("a", 0, failing)
		require.ErrorIs(t, err, errBoom)
	}
	assert.Equal(t, BreakerOpen, b.State("a"))

	// Open state fails fast without invoking the callable.
	called := false
	err := b.Call("a", 0, func() error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerRecoveryCycle(t *testing.T) {
	b := NewBreaker(
		WithFailureThreshold(2),
		WithRecoveryTimeout(50*time.Millisecond),
		WithRequiredSuccesses(3),
		WithHalfOpenMaxCalls(5))

	for i := 0; i < 2; i++ {
		b.Call("a", 0, failing)
	}
	require.Equal(t, BreakerOpen, b.State("a"))
	require.ErrorIs(t, b.Call("a", 0, succeeding), ErrCircuitOpen)

	time.Sleep(60 * time.Millisecond)

	// First probe after the recovery timeout transitions to half-open.
	require.NoError(t, b.Call("a", 0, succeeding))
	assert.Equal(t, BreakerHalfOpen, b.State("a"))

	require.NoError(t, b.Call("a", 0, succeeding))
	require.NoError(t, b.Call("a", 0, succeeding))
	assert.Equal(t, BreakerClosed, b.State("a"))

	require.NoError(t, b.Call("a", 0, succeeding))
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	b := NewBreaker(
		WithFailureThreshold(1),
		WithRecoveryTimeout(30*time.Millisecond))

	b.Call("a", 0, failing)
	require.Equal(t, BreakerOpen, b.State("a"))

	time.Sleep(40 * time.Millisecond)

	require.ErrorIs(t, b.Call("a", 0, failing), errBoom)
	assert.Equal(t, BreakerOpen, b.State("a"))
}

func TestBreakerCallTimeout(t *testing.T) {
	b := NewBreaker(WithFailureThreshold(1))

	err := b.Call("a", 30*time.Millisecond, func() error {
		time.Sleep(500 * time.Millisecond)
		return nil
	})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, BreakerOpen, b.State("a"))
}

func TestBreakerPerTargetIsolation(t *testing.T) {
	b := NewBreaker(WithFailureThreshold(1))

	b.Call("a", 0, failing)
	assert.Equal(t, BreakerOpen, b.State("a"))
	assert.Equal(t, BreakerClosed, b.State("b"))

	require.NoError(t, b.Call("b", 0, succeeding))
}

func TestBreakerIgnoresTerminalErrors(t *testing.T) {
	b := NewBreaker(WithFailureThreshold(1), WithIgnoreTerminal(true))

	b.Call("a", 0, func() error { return ErrInvalidOID })
	b.Call("a", 0, func() error { return NewProtocolError(NoSuchName, 1, nil) })
	assert.Equal(t, BreakerClosed, b.State("a"))

	strict := NewBreaker(WithFailureThreshold(1), WithIgnoreTerminal(false))
	strict.Call("a", 0, func() error { return ErrInvalidOID })
	assert.Equal(t, BreakerOpen, strict.State("a"))
}

func TestBreakerManualControls(t *testing.T) {
	b := NewBreaker()

	b.ForceOpen("a")
	assert.Equal(t, BreakerOpen, b.State("a"))

	b.ForceClose("a")
	assert.Equal(t, BreakerClosed, b.State("a"))

	b.Call("a", 0, failing)
	snap, ok := b.Snapshot("a")
	require.True(t, ok)
	assert.Equal(t, 1, snap.FailureCount)

	b.Reset("a")
	_, ok = b.Snapshot("a")
	assert.False(t, ok)

	b.Call("x", 0, failing)
	b.Call("y", 0, failing)
	assert.Len(t, b.Snapshots(), 2)
	b.ResetAll()
	assert.Empty(t, b.Snapshots())
}

// TestBreakerFSMFuzz drives one target with a deterministic
// pseudo-random mix of outcomes and asserts the FSM never leaves its
// defined state set and only performs legal transitions.
func TestBreakerFSMFuzz(t *testing.T) {
	b := NewBreaker(
		WithFailureThreshold(3),
		WithRecoveryTimeout(time.Millisecond),
		WithRequiredSuccesses(2),
		WithHalfOpenMaxCalls(2))

	seed := uint64(42)
	next := func() uint64 {
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		return seed
	}

	prev := b.State("t")
	for i := 0; i < 5000; i++ {
		fn := succeeding
		if next()%3 == 0 {
			fn = failing
		}
		err := b.Call("t", 0, fn)
		if err != nil {
			assert.True(t,
				errors.Is(err, errBoom) || errors.Is(err, ErrCircuitOpen),
				"unexpected error %v", err)
		}

		state := b.State("t")
		switch state {
		case BreakerClosed, BreakerOpen, BreakerHalfOpen:
		default:
			t.Fatalf("undefined breaker state %v", state)
		}

		// closed never transitions straight to half-open.
		if prev == BreakerClosed {
			assert.NotEqual(t, BreakerHalfOpen, state)
		}
		prev = state

		if i%100 == 0 {
			time.Sleep(2 * time.Millisecond)
		}
	}
}
