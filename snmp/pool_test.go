package snmp

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(t *testing.T, opts ...PoolOption) *EndpointPool {
	t.Helper()
	p := NewEndpointPool(opts...)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestPoolCheckoutCheckin(t *testing.T) {
	p := testPool(t, WithPoolSize(2))

	pe, err := p.Checkout()
	require.NoError(t, err)

	stats := p.Stats()
	assert.Equal(t, 1, stats.InUse)
	assert.Equal(t, 0, stats.Available)
	assert.Equal(t, 1, stats.Total)

	p.Checkin(pe)
	stats = p.Stats()
	assert.Equal(t, 0, stats.InUse)
	assert.Equal(t, 1, stats.Available)

	// A later checkout reuses the idle endpoint.
	pe2, err := p.Checkout()
	require.NoError(t, err)
	assert.Same(t, pe, pe2)
	assert.EqualValues(t, 2, pe2.UseCount())
}

func TestPoolExhausted(t *testing.T) {
	p := testPool(t, WithPoolSize(2))

	a, err := p.Checkout()
	require.NoError(t, err)
	b, err := p.Checkout()
	require.NoError(t, err)

	_, err = p.Checkout()
	require.ErrorIs(t, err, ErrPoolExhausted)

	p.Checkin(a)
	c, err := p.Checkout()
	require.NoError(t, err)

	p.Checkin(b)
	p.Checkin(c)
}

func TestPoolErrorEviction(t *testing.T) {
	p := testPool(t, WithPoolSize(1))

	var pe *PooledEndpoint
	for i := 0; i < endpointErrorThreshold; i++ {
		got, err := p.Checkout()
		require.NoError(t, err)
		if pe == nil {
			pe = got
		}
		p.CheckinError(got, ErrReceiveFailed)
	}

	// The endpoint crossed the error threshold and was removed.
	stats := p.Stats()
	assert.Equal(t, 0, stats.Total)
	assert.EqualValues(t, 1, stats.Evicted)

	// The pool allocates a replacement on demand.
	fresh, err := p.Checkout()
	require.NoError(t, err)
	assert.NotSame(t, pe, fresh)
	p.Checkin(fresh)
}

func TestPoolIdleSweep(t *testing.T) {
	p := testPool(t,
		WithPoolSize(2),
		WithMaxIdleTime(30*time.Millisecond),
		WithCleanupInterval(10*time.Millisecond))

	pe, err := p.Checkout()
	require.NoError(t, err)
	p.Checkin(pe)

	require.Eventually(t, func() bool {
		return p.Stats().Total == 0
	}, time.Second, 10*time.Millisecond, "idle endpoint should be swept")
}

func TestPoolAccountingUnderConcurrency(t *testing.T) {
	const size = 8
	p := testPool(t, WithPoolSize(size))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				pe, err := p.Checkout()
				if err != nil {
					require.True(t, errors.Is(err, ErrPoolExhausted))
					continue
				}
				stats := p.Stats()
				assert.Equal(t, stats.Total, stats.Available+stats.InUse)
				assert.LessOrEqual(t, stats.Total, size)
				p.Checkin(pe)
			}
		}()
	}
	wg.Wait()

	stats := p.Stats()
	assert.Equal(t, 0, stats.InUse)
	assert.LessOrEqual(t, stats.Total, size)
}

func TestPoolDoubleCheckinIgnored(t *testing.T) {
	p := testPool(t, WithPoolSize(1))

	pe, err := p.Checkout()
	require.NoError(t, err)
	p.Checkin(pe)
	p.Checkin(pe)

	stats := p.Stats()
	assert.Equal(t, 1, stats.Available)
	assert.Equal(t, 0, stats.InUse)
}

func TestPoolClosedCheckout(t *testing.T) {
	p := NewEndpointPool(WithPoolSize(1))
	require.NoError(t, p.Close())

	_, err := p.Checkout()
	require.ErrorIs(t, err, ErrEngineClosed)
}
