package breaker

import (
	"math"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/breaker/logger"
)

// TotalStats is one published aggregate of the current rolling window,
// produced by Stats.generateStatsLocked.
type TotalStats struct {
	Total          int
	Successful     int
	Failed         int
	TimedOut       int
	ShortCircuited int

	LatencyMean int64
	Percentiles map[string]int64

	Cumulative CumulativeStats
}

// percentileKey formats p the way the dashboard mapping and
// TotalStats.Percentiles expect: "0", "0.25", "1", not "0.000".
func percentileKey(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// percentile returns the p-th percentile of sorted (already sorted
// ascending): a[0] for p<=0, else a[ceil(p*n)-1], clamped to bounds.
func percentile(p float64, sorted []int64) int64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	idx := int(math.Ceil(p * float64(n)))
	if idx < 1 {
		idx = 1
	}
	if idx > n {
		idx = n
	}
	return sorted[idx-1]
}

// latencyMean is round(sum(sorted) / len(sorted)), or 0 if empty.
func latencyMean(sorted []int64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	var sum int64
	for _, v := range sorted {
		sum += v
	}
	return int64(math.Round(float64(sum) / float64(len(sorted))))
}

// Stats is the rolling-window statistics engine: a
// fixed-length ring of Buckets, a rotation timer, a snapshot timer, and
// the aggregation/percentile machinery published from it.
type Stats struct {
	mu      sync.Mutex
	buckets []*Bucket
	cumulative *CumulativeStats

	bucketSpan   time.Duration
	bucketNum    int
	statInterval time.Duration
	percentiles  []float64

	totals TotalStats

	rotateStop      chan struct{}
	snapshotStop    chan struct{}
	rotateStopped   atomic.Bool
	snapshotStopped atomic.Bool

	updateListeners   listeners[TotalStats]
	snapshotListeners listeners[TotalStats]

	log logger.Logger
}

func newStats(cfg Config, log logger.Logger) *Stats {
	if log == nil {
		log = logger.Noop()
	}

	cumulative := newCumulativeStats()
	buckets := make([]*Bucket, cfg.BucketNum)
	for i := range buckets {
		buckets[i] = newBucket(cumulative)
	}

	s := &Stats{
		buckets:      buckets,
		cumulative:   cumulative,
		bucketSpan:   cfg.BucketSpan,
		bucketNum:    cfg.BucketNum,
		statInterval: cfg.StatInterval,
		percentiles:  append([]float64(nil), cfg.Percentiles...),
		rotateStop:   make(chan struct{}),
		snapshotStop: make(chan struct{}),
		log:          log.Named("stats"),
	}

	s.mu.Lock()
	s.totals = s.generateStatsLocked(true)
	s.mu.Unlock()

	go s.rotationLoop()
	go s.snapshotLoop()

	return s
}

// rotationLoop and snapshotLoop run as ordinary goroutines driven by
// time.Timer. Go goroutines and timers never keep the process alive on
// their own — when main returns, every goroutine is torn down regardless
// of pending timers — so nothing here needs an Unref()-equivalent call.
func (s *Stats) rotationLoop() {
	timer := time.NewTimer(s.bucketSpan)
	defer timer.Stop()
	for {
		select {
		case <-s.rotateStop:
			return
		case <-timer.C:
			s.rotate()
			timer.Reset(s.bucketSpan)
		}
	}
}

func (s *Stats) snapshotLoop() {
	timer := time.NewTimer(s.statInterval)
	defer timer.Stop()
	for {
		select {
		case <-s.snapshotStop:
			return
		case <-timer.C:
			s.doSnapshot()
			timer.Reset(s.statInterval)
		}
	}
}

// rotate appends a fresh bucket and drops the oldest; no aggregation runs
// here.
func (s *Stats) rotate() {
	s.mu.Lock()
	dropped := s.buckets[0]
	s.buckets = append(s.buckets[1:], newBucket(s.cumulative))
	s.mu.Unlock()

	s.log.Debug("bucket rotated",
		logger.Int("dropped_total", dropped.Total),
		logger.Int("dropped_short_circuited", dropped.ShortCircuited))
}

func (s *Stats) doSnapshot() {
	s.mu.Lock()
	stats := s.generateStatsLocked(true)
	s.mu.Unlock()

	s.log.Debug("stats snapshot",
		logger.Int("total", stats.Total),
		logger.Int64("latency_mean_ms", stats.LatencyMean))

	s.snapshotListeners.emit(stats)
	s.cumulative.resetDerivatives()
}

// generateStatsLocked recomputes TotalStats from the current buckets.
// Caller must hold s.mu.
func (s *Stats) generateStatsLocked(includeLatency bool) TotalStats {
	var total, successful, failed, timedOut, shortCircuited int
	var allTimes []int64

	for _, b := range s.buckets {
		total += b.Total
		successful += b.Successful
		failed += b.Failed
		timedOut += b.TimedOut
		shortCircuited += b.ShortCircuited
		if includeLatency {
			allTimes = append(allTimes, b.RequestTimes...)
		}
	}

	ts := TotalStats{
		Total:          total,
		Successful:     successful,
		Failed:         failed,
		TimedOut:       timedOut,
		ShortCircuited: shortCircuited,
	}

	if includeLatency {
		sort.Slice(allTimes, func(i, j int) bool { return allTimes[i] < allTimes[j] })

		ts.LatencyMean = latencyMean(allTimes)
		ts.Percentiles = make(map[string]int64, len(s.percentiles))
		for _, p := range s.percentiles {
			ts.Percentiles[percentileKey(p)] = percentile(p, allTimes)
		}
	} else {
		// carried over verbatim from the last latency-bearing snapshot,
		// including on an all-empty window — this re-use is intentional.
		ts.LatencyMean = s.totals.LatencyMean
		ts.Percentiles = s.totals.Percentiles
	}

	ts.Cumulative = s.cumulative.snapshot()
	s.totals = ts
	return ts
}

// record applies kind to the active bucket and emits an update event.
func (s *Stats) record(kind outcomeKind, elapsedMs int64) {
	s.mu.Lock()
	active := s.buckets[len(s.buckets)-1]
	switch kind {
	case outcomeSuccess:
		active.success(elapsedMs)
	case outcomeFailure:
		active.failure(elapsedMs)
	case outcomeTimeout:
		active.timeout(elapsedMs)
	}
	stats := s.generateStatsLocked(false)
	s.mu.Unlock()

	s.updateListeners.emit(stats)
}

// recordShortCircuit applies a short-circuit tally and emits an update event.
func (s *Stats) recordShortCircuit() {
	s.mu.Lock()
	active := s.buckets[len(s.buckets)-1]
	active.shortCircuit()
	stats := s.generateStatsLocked(false)
	s.mu.Unlock()

	s.updateListeners.emit(stats)
}

// Reset replaces every bucket with a fresh one sharing the same
// CumulativeStats, then emits an update event.
// Cumulative counters are not reset.
func (s *Stats) Reset() {
	s.mu.Lock()
	fresh := make([]*Bucket, s.bucketNum)
	for i := range fresh {
		fresh[i] = newBucket(s.cumulative)
	}
	s.buckets = fresh
	stats := s.generateStatsLocked(false)
	s.mu.Unlock()

	s.updateListeners.emit(stats)
}

// Totals returns the most recently published aggregate.
func (s *Stats) Totals() TotalStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// OnUpdate registers fn to run on every update event; returns an unsubscribe func.
func (s *Stats) OnUpdate(fn func(TotalStats)) func() { return s.updateListeners.add(fn) }

// OnSnapshot registers fn to run on every snapshot event; returns an unsubscribe func.
func (s *Stats) OnSnapshot(fn func(TotalStats)) func() { return s.snapshotListeners.add(fn) }

// StopRotation idempotently stops the rotation timer, returning whether it
// was actually cancelled by this call.
func (s *Stats) StopRotation() bool {
	if s.rotateStopped.CompareAndSwap(false, true) {
		close(s.rotateStop)
		return true
	}
	return false
}

// StopSnapshots idempotently stops the snapshot timer, returning whether it
// was actually cancelled by this call.
func (s *Stats) StopSnapshots() bool {
	if s.snapshotStopped.CompareAndSwap(false, true) {
		close(s.snapshotStop)
		return true
	}
	return false
}
