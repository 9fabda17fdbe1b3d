package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensOnThreshold(t *testing.T) {
	b := New(nil,
		WithRegisterGlobal(false),
		WithBucketSpan(time.Hour),
		WithBucketNum(3),
		WithStatInterval(time.Hour),
		WithWaitThreshold(4),
		WithThreshold(0.5),
	)
	defer b.Destroy()

	var opened bool
	b.OnCircuitOpen(func() { opened = true })

	c := b.NewCircuit(func(ctx context.Context, args ...any) (any, error) { return "ok", nil })
	failing := b.NewCircuit(func(ctx context.Context, args ...any) (any, error) { return nil, errors.New("x") })

	// S, F, F, F, F — total=5 after the 5th event, successful=1, ratio=0.2 < 0.5.
	mustExec(t, c)
	mustExecErr(t, failing)
	mustExecErr(t, failing)
	mustExecErr(t, failing)
	mustExecErr(t, failing)

	assert.True(t, opened)
	assert.True(t, b.IsOpen())
	assert.Equal(t, uint64(2), b.generationID())
}

func TestBreakerDoesNotOpenAtOrBelowWaitThreshold(t *testing.T) {
	b := New(nil,
		WithRegisterGlobal(false),
		WithBucketSpan(time.Hour),
		WithBucketNum(3),
		WithStatInterval(time.Hour),
		WithWaitThreshold(4),
		WithThreshold(0.9),
	)
	defer b.Destroy()

	failing := b.NewCircuit(func(ctx context.Context, args ...any) (any, error) { return nil, errors.New("x") })
	for i := 0; i < 4; i++ {
		mustExecErr(t, failing)
	}

	assert.False(t, b.IsOpen())
}

func TestBreakerShortCircuitDoesNotReopenOrRetrip(t *testing.T) {
	b := New(nil,
		WithRegisterGlobal(false),
		WithBucketSpan(time.Hour),
		WithBucketNum(3),
		WithStatInterval(time.Hour),
		WithWaitThreshold(0),
		WithThreshold(0.5),
	)
	defer b.Destroy()

	b.openCircuit()
	b.stopTimers() // prevent the cooldown from closing it mid-test

	c := b.NewCircuit(func(ctx context.Context, args ...any) (any, error) { return "ok", nil })
	for i := 0; i < 10; i++ {
		_, _ = c.Exec(context.Background())
	}

	totals := b.Stats().Totals()
	assert.Equal(t, 10, totals.ShortCircuited)
	assert.Equal(t, 0, totals.Total)
	assert.True(t, b.IsOpen())
}

func TestBreakerCooldownCloses(t *testing.T) {
	b := New(nil,
		WithRegisterGlobal(false),
		WithBucketSpan(time.Hour),
		WithBucketNum(3),
		WithStatInterval(time.Hour),
		WithCircuitDuration(20*time.Millisecond),
	)
	defer b.Destroy()

	var closed bool
	b.OnCircuitClosed(func() { closed = true })

	b.openCircuit()
	require.True(t, b.IsOpen())

	assert.Eventually(t, func() bool { return closed }, time.Second, 5*time.Millisecond)
	assert.False(t, b.IsOpen())
}

func TestBreakerHealthCheckHealing(t *testing.T) {
	attempts := 0
	b := New(nil,
		WithRegisterGlobal(false),
		WithBucketSpan(time.Hour),
		WithBucketNum(3),
		WithStatInterval(time.Hour),
		WithHealthCheck(func() error {
			attempts++
			if attempts < 2 {
				return errors.New("still down")
			}
			return nil
		}, 10*time.Millisecond),
	)
	defer b.Destroy()

	var failedCount int
	var closed bool
	b.OnHealthCheckFailed(func(err error) { failedCount++ })
	b.OnCircuitClosed(func() { closed = true })

	b.openCircuit()

	assert.Eventually(t, func() bool { return closed }, time.Second, 5*time.Millisecond)
	assert.False(t, b.IsOpen())
	assert.Equal(t, 1, failedCount)
}

func TestBreakerGenerationFiltersStaleOutcomes(t *testing.T) {
	b := New(nil,
		WithRegisterGlobal(false),
		WithBucketSpan(time.Hour),
		WithBucketNum(3),
		WithStatInterval(time.Hour),
	)
	defer b.Destroy()

	staleGen := b.generationID()
	b.openCircuit() // bumps the generation

	b.emitSuccess(5, staleGen)

	totals := b.Stats().Totals()
	assert.Equal(t, 0, totals.Total)
}

func TestBreakerDestroyIsIdempotentAndLeavesStatsRunning(t *testing.T) {
	b := New(nil, WithRegisterGlobal(false))
	b.Destroy()
	b.Destroy() // must not panic

	// Stats timers are intentionally left running; recording after destroy
	// still works since Stats itself was never torn down.
	b.Stats().record(outcomeSuccess, 1)
	assert.Equal(t, 1, b.Stats().Totals().Total)
}

func TestGlobalRegistryRegistersAndDeregisters(t *testing.T) {
	before := GlobalRegistry.InstanceCount()

	b := New(nil, WithName("registry-test-breaker"))
	assert.Equal(t, before+1, GlobalRegistry.InstanceCount())

	found, ok := GlobalRegistry.Lookup("registry-test-breaker")
	assert.True(t, ok)
	assert.Same(t, b, found)

	b.Destroy()
	assert.Equal(t, before, GlobalRegistry.InstanceCount())
}

func mustExec(t *testing.T, c *Circuit) {
	t.Helper()
	_, err := c.Exec(context.Background())
	require.NoError(t, err)
}

func mustExecErr(t *testing.T, c *Circuit) {
	t.Helper()
	_, err := c.Exec(context.Background())
	require.Error(t, err)
}
