package breaker

import (
	"fmt"
	"sync/atomic"
)

// CumulativeStats holds lifetime counters plus their snapshot-interval
// derivatives. It is shared by reference between every Bucket in a Stats
// ring and the Stats itself; only the active bucket writes to it. Plain
// int64 fields would suffice under a strictly single-threaded caller, but
// atomics make the type safe to use from concurrent goroutines as well,
// without an extra mutex hop.
type CumulativeStats struct {
	CountTotal          int64
	CountTotalDeriv     int64
	CountSuccess        int64
	CountSuccessDeriv   int64
	CountFailure        int64
	CountFailureDeriv   int64
	CountTimeout        int64
	CountTimeoutDeriv   int64
	CountShortCircuited      int64
	CountShortCircuitedDeriv int64
}

func newCumulativeStats() *CumulativeStats {
	return &CumulativeStats{}
}

// snapshot returns a value copy of the cumulative counters, suitable for
// embedding in a published TotalStats without exposing the shared pointer.
func (c *CumulativeStats) snapshot() CumulativeStats {
	return CumulativeStats{
		CountTotal:               atomic.LoadInt64(&c.CountTotal),
		CountTotalDeriv:          atomic.LoadInt64(&c.CountTotalDeriv),
		CountSuccess:             atomic.LoadInt64(&c.CountSuccess),
		CountSuccessDeriv:        atomic.LoadInt64(&c.CountSuccessDeriv),
		CountFailure:             atomic.LoadInt64(&c.CountFailure),
		CountFailureDeriv:        atomic.LoadInt64(&c.CountFailureDeriv),
		CountTimeout:             atomic.LoadInt64(&c.CountTimeout),
		CountTimeoutDeriv:        atomic.LoadInt64(&c.CountTimeoutDeriv),
		CountShortCircuited:      atomic.LoadInt64(&c.CountShortCircuited),
		CountShortCircuitedDeriv: atomic.LoadInt64(&c.CountShortCircuitedDeriv),
	}
}

// resetDerivatives zeroes the …Deriv siblings at a snapshot boundary,
// leaving the lifetime counters untouched.
func (c *CumulativeStats) resetDerivatives() {
	atomic.StoreInt64(&c.CountTotalDeriv, 0)
	atomic.StoreInt64(&c.CountSuccessDeriv, 0)
	atomic.StoreInt64(&c.CountFailureDeriv, 0)
	atomic.StoreInt64(&c.CountTimeoutDeriv, 0)
	atomic.StoreInt64(&c.CountShortCircuitedDeriv, 0)
}

// Bucket represents outcomes within one rolling-window time slice.
type Bucket struct {
	Total          int
	Successful     int
	Failed         int
	TimedOut       int
	ShortCircuited int

	// RequestTimes holds latency samples in ms, insertion order, for
	// successful/failed/timed-out outcomes only (not short circuits).
	RequestTimes []int64

	cumulative *CumulativeStats
}

func newBucket(cumulative *CumulativeStats) *Bucket {
	return &Bucket{cumulative: cumulative}
}

// success records a successful outcome with the given run time in ms.
func (b *Bucket) success(runTimeMs int64) {
	b.Total++
	b.Successful++
	b.RequestTimes = append(b.RequestTimes, runTimeMs)
	atomic.AddInt64(&b.cumulative.CountTotal, 1)
	atomic.AddInt64(&b.cumulative.CountTotalDeriv, 1)
	atomic.AddInt64(&b.cumulative.CountSuccess, 1)
	atomic.AddInt64(&b.cumulative.CountSuccessDeriv, 1)
}

// failure records a failed outcome with the given run time in ms.
func (b *Bucket) failure(runTimeMs int64) {
	b.Total++
	b.Failed++
	b.RequestTimes = append(b.RequestTimes, runTimeMs)
	atomic.AddInt64(&b.cumulative.CountTotal, 1)
	atomic.AddInt64(&b.cumulative.CountTotalDeriv, 1)
	atomic.AddInt64(&b.cumulative.CountFailure, 1)
	atomic.AddInt64(&b.cumulative.CountFailureDeriv, 1)
}

// timeout records a timed-out outcome with the given run time in ms.
func (b *Bucket) timeout(runTimeMs int64) {
	b.Total++
	b.TimedOut++
	b.RequestTimes = append(b.RequestTimes, runTimeMs)
	atomic.AddInt64(&b.cumulative.CountTotal, 1)
	atomic.AddInt64(&b.cumulative.CountTotalDeriv, 1)
	atomic.AddInt64(&b.cumulative.CountTimeout, 1)
	atomic.AddInt64(&b.cumulative.CountTimeoutDeriv, 1)
}

// shortCircuit records a rejection that never reached the protected
// operation. It does not touch Total, RequestTimes, or CountTotal.
func (b *Bucket) shortCircuit() {
	b.ShortCircuited++
	atomic.AddInt64(&b.cumulative.CountShortCircuited, 1)
	atomic.AddInt64(&b.cumulative.CountShortCircuitedDeriv, 1)
}

// BucketField names a Bucket counter field recognised by percent.
type BucketField string

const (
	FieldTotal          BucketField = "total"
	FieldSuccessful     BucketField = "successful"
	FieldFailed         BucketField = "failed"
	FieldTimedOut       BucketField = "timedOut"
	FieldShortCircuited BucketField = "shortCircuited"
)

// percent returns field/total, or 0 if total is 0. It fails with
// InvalidBucketField for an unrecognised field name.
func (b *Bucket) percent(field BucketField) (float64, error) {
	var numerator int
	switch field {
	case FieldTotal:
		numerator = b.Total
	case FieldSuccessful:
		numerator = b.Successful
	case FieldFailed:
		numerator = b.Failed
	case FieldTimedOut:
		numerator = b.TimedOut
	case FieldShortCircuited:
		numerator = b.ShortCircuited
	default:
		return 0, &InvalidBucketField{Field: string(field)}
	}

	if b.Total == 0 {
		return 0, nil
	}
	return float64(numerator) / float64(b.Total), nil
}

// InvalidBucketField is returned by Bucket.percent for an unrecognised
// counter name.
type InvalidBucketField struct {
	Field string
}

func (e *InvalidBucketField) Error() string {
	return fmt.Sprintf("breaker: invalid bucket field %q", e.Field)
}
