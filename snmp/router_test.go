package snmp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngines(t *testing.T, n int) []*Engine {
	t.Helper()
	engines := make([]*Engine, n)
	for i := range engines {
		engines[i] = testEngine(t)
	}
	return engines
}

func TestRouterRoundRobin(t *testing.T) {
	engines := testEngines(t, 3)
	r := NewRouter(engines)

	var order []*Engine
	for i := 0; i < 6; i++ {
		e, err := r.Route("target")
		require.NoError(t, err)
		order = append(order, e)
	}

	assert.Same(t, order[0], order[3])
	assert.Same(t, order[1], order[4])
	assert.Same(t, order[2], order[5])
	assert.NotSame(t, order[0], order[1])
}

func TestRouterLeastConnections(t *testing.T) {
	engines := testEngines(t, 2)
	r := NewRouter(engines, WithStrategy(RouteLeastConnections))

	// All engines idle: the first is picked.
	e, err := r.Route("t")
	require.NoError(t, err)
	assert.Same(t, engines[0], e)
}

func TestRouterWeighted(t *testing.T) {
	engines := testEngines(t, 2)
	r := NewRouter(engines, WithStrategy(RouteWeighted), WithWeights(9, 1))

	counts := map[*Engine]int{}
	for i := 0; i < 1000; i++ {
		e, err := r.Route("t")
		require.NoError(t, err)
		counts[e]++
	}

	// Weight 9:1 should dominate decisively.
	assert.Greater(t, counts[engines[0]], counts[engines[1]])
	assert.Greater(t, counts[engines[0]], 700)
}

func TestRouterAffinity(t *testing.T) {
	engines := testEngines(t, 4)
	r := NewRouter(engines, WithStrategy(RouteAffinity))

	first, err := r.Route("device-17")
	require.NoError(t, err)

	// Same target always lands on the same engine.
	for i := 0; i < 20; i++ {
		e, err := r.Route("device-17")
		require.NoError(t, err)
		assert.Same(t, first, e)
	}

	// Different targets spread across engines.
	seen := map[*Engine]bool{}
	for i := 0; i < 64; i++ {
		e, err := r.Route(string(rune('a'+i%26)) + "-device")
		require.NoError(t, err)
		seen[e] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestRouterUnhealthySkipped(t *testing.T) {
	engines := testEngines(t, 2)
	r := NewRouter(engines, WithErrorThreshold(2))

	for i := 0; i < 2; i++ {
		r.ReportResult(engines[0], ErrTimeout)
	}
	assert.Equal(t, 1, r.Healthy())

	for i := 0; i < 10; i++ {
		e, err := r.Route("t")
		require.NoError(t, err)
		assert.Same(t, engines[1], e)
	}
}

func TestRouterNoHealthyEngine(t *testing.T) {
	engines := testEngines(t, 1)
	r := NewRouter(engines, WithErrorThreshold(1))

	r.ReportResult(engines[0], ErrTimeout)

	_, err := r.Route("t")
	require.ErrorIs(t, err, ErrNoHealthyEngine)
}

func TestRouterHealthCheckRestores(t *testing.T) {
	engines := testEngines(t, 1)
	r := NewRouter(engines,
		WithErrorThreshold(1),
		WithHealthCheckInterval(20*time.Millisecond))
	r.Start()
	defer r.Stop()

	r.ReportResult(engines[0], ErrTimeout)
	_, err := r.Route("t")
	require.ErrorIs(t, err, ErrNoHealthyEngine)

	require.Eventually(t, func() bool {
		_, err := r.Route("t")
		return err == nil
	}, time.Second, 10*time.Millisecond, "health check should restore the engine")
}

func TestRouterSuccessDoesNotCount(t *testing.T) {
	engines := testEngines(t, 1)
	r := NewRouter(engines, WithErrorThreshold(1))

	r.ReportResult(engines[0], nil)
	assert.Equal(t, 1, r.Healthy())
}

func TestRouterAffinityFallback(t *testing.T) {
	engines := testEngines(t, 2)
	r := NewRouter(engines, WithStrategy(RouteAffinity), WithErrorThreshold(1))

	first, err := r.Route("device-1")
	require.NoError(t, err)

	// Break the affine engine; routing must fall back, not fail.
	r.ReportResult(first, ErrTimeout)

	e, err := r.Route("device-1")
	require.NoError(t, err)
	assert.NotSame(t, first, e)
}

func TestRouteBatch(t *testing.T) {
	engines := testEngines(t, 2)
	r := NewRouter(engines)

	reqs := []TargetRequest{
		{Target: "a", OID: "1.3.6.1.2.1.1.1.0"},
		{Target: "b", OID: "1.3.6.1.2.1.1.1.0"},
		{Target: "c", OID: "1.3.6.1.2.1.1.1.0"},
		{Target: "d", OID: "1.3.6.1.2.1.1.1.0"},
	}

	grouped := r.RouteBatch(reqs)

	total := 0
	for engine, group := range grouped {
		require.NotNil(t, engine)
		total += len(group)
	}
	assert.Equal(t, len(reqs), total)
	assert.Len(t, grouped, 2, "round-robin over two engines groups into two batches")
}
