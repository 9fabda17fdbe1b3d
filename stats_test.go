package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BucketSpan = time.Hour
	cfg.BucketNum = 3
	cfg.StatInterval = time.Hour
	cfg.RegisterGlobal = false
	return cfg
}

func TestPercentileRule(t *testing.T) {
	sorted := []int64{10, 20, 30, 40, 50}

	assert.Equal(t, int64(0), percentile(0.5, nil))
	assert.Equal(t, int64(10), percentile(0, sorted))
	assert.Equal(t, int64(10), percentile(0.01, sorted))
	assert.Equal(t, int64(50), percentile(1, sorted))
	assert.Equal(t, int64(30), percentile(0.5, sorted))
}

func TestLatencyMean(t *testing.T) {
	assert.Equal(t, int64(0), latencyMean(nil))
	assert.Equal(t, int64(20), latencyMean([]int64{10, 20, 30}))
	assert.Equal(t, int64(2), latencyMean([]int64{1, 2})) // rounds .5 up
}

func TestStatsRecordUpdatesActiveBucket(t *testing.T) {
	cfg := testConfig()
	s := newStats(cfg, nil)
	defer s.StopRotation()
	defer s.StopSnapshots()

	s.record(outcomeSuccess, 10)
	s.record(outcomeFailure, 20)
	s.record(outcomeTimeout, 30)

	totals := s.Totals()
	assert.Equal(t, 3, totals.Total)
	assert.Equal(t, 1, totals.Successful)
	assert.Equal(t, 1, totals.Failed)
	assert.Equal(t, 1, totals.TimedOut)
}

func TestStatsRecordCarriesOverLatencyWithoutRecompute(t *testing.T) {
	cfg := testConfig()
	s := newStats(cfg, nil)
	defer s.StopRotation()
	defer s.StopSnapshots()

	s.mu.Lock()
	s.totals.LatencyMean = 777
	s.mu.Unlock()

	s.record(outcomeSuccess, 10)

	totals := s.Totals()
	assert.Equal(t, int64(777), totals.LatencyMean)
}

func TestStatsSnapshotRecomputesLatencyAndResetsDerivatives(t *testing.T) {
	cfg := testConfig()
	s := newStats(cfg, nil)
	defer s.StopRotation()
	defer s.StopSnapshots()

	s.record(outcomeSuccess, 100)
	s.record(outcomeSuccess, 200)

	var published TotalStats
	s.OnSnapshot(func(totals TotalStats) { published = totals })

	s.doSnapshot()

	assert.Equal(t, int64(150), published.LatencyMean)
	assert.Equal(t, int64(2), published.Cumulative.CountSuccessDeriv)
	assert.Equal(t, int64(0), s.cumulative.snapshot().CountSuccessDeriv)
	assert.Equal(t, int64(2), published.Cumulative.CountSuccess)
}

func TestStatsRotateDropsOldestBucket(t *testing.T) {
	cfg := testConfig()
	cfg.BucketNum = 2
	s := newStats(cfg, nil)
	defer s.StopRotation()
	defer s.StopSnapshots()

	s.record(outcomeSuccess, 1)
	s.rotate()
	s.record(outcomeFailure, 2)

	totals := s.Totals()
	assert.Equal(t, 2, totals.Total)
	assert.Equal(t, 1, totals.Successful)
	assert.Equal(t, 1, totals.Failed)
}

func TestStatsResetClearsWindowNotCumulative(t *testing.T) {
	cfg := testConfig()
	s := newStats(cfg, nil)
	defer s.StopRotation()
	defer s.StopSnapshots()

	s.record(outcomeSuccess, 1)
	s.record(outcomeFailure, 2)

	s.Reset()

	totals := s.Totals()
	assert.Equal(t, 0, totals.Total)
	assert.Equal(t, int64(2), totals.Cumulative.CountTotal)
}

func TestStatsStopIsIdempotent(t *testing.T) {
	cfg := testConfig()
	s := newStats(cfg, nil)

	assert.True(t, s.StopRotation())
	assert.False(t, s.StopRotation())
	assert.True(t, s.StopSnapshots())
	assert.False(t, s.StopSnapshots())
}
