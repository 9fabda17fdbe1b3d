package breaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketSuccessFailureTimeout(t *testing.T) {
	cum := newCumulativeStats()
	b := newBucket(cum)

	b.success(10)
	b.failure(20)
	b.timeout(30)

	assert.Equal(t, 3, b.Total)
	assert.Equal(t, 1, b.Successful)
	assert.Equal(t, 1, b.Failed)
	assert.Equal(t, 1, b.TimedOut)
	assert.Equal(t, []int64{10, 20, 30}, b.RequestTimes)

	snap := cum.snapshot()
	assert.Equal(t, int64(3), snap.CountTotal)
	assert.Equal(t, int64(1), snap.CountSuccess)
	assert.Equal(t, int64(1), snap.CountFailure)
	assert.Equal(t, int64(1), snap.CountTimeout)
}

func TestBucketShortCircuitDoesNotTouchTotal(t *testing.T) {
	cum := newCumulativeStats()
	b := newBucket(cum)

	b.shortCircuit()
	b.shortCircuit()

	assert.Equal(t, 0, b.Total)
	assert.Empty(t, b.RequestTimes)
	assert.Equal(t, 2, b.ShortCircuited)

	snap := cum.snapshot()
	assert.Equal(t, int64(0), snap.CountTotal)
	assert.Equal(t, int64(2), snap.CountShortCircuited)
	assert.Equal(t, int64(2), snap.CountShortCircuitedDeriv)
}

func TestCumulativeResetDerivatives(t *testing.T) {
	cum := newCumulativeStats()
	b := newBucket(cum)
	b.success(5)
	b.failure(5)

	cum.resetDerivatives()
	snap := cum.snapshot()

	assert.Equal(t, int64(2), snap.CountTotal)
	assert.Equal(t, int64(0), snap.CountTotalDeriv)
	assert.Equal(t, int64(1), snap.CountSuccess)
	assert.Equal(t, int64(0), snap.CountSuccessDeriv)
}

func TestBucketPercent(t *testing.T) {
	cum := newCumulativeStats()
	b := newBucket(cum)

	pct, err := b.percent(FieldTotal)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, pct)

	b.success(1)
	b.success(1)
	b.failure(1)

	pct, err = b.percent(FieldSuccessful)
	assert.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, pct, 1e-9)

	_, err = b.percent(BucketField("nonsense"))
	assert.Error(t, err)
	var invalid *InvalidBucketField
	assert.ErrorAs(t, err, &invalid)
	assert.Equal(t, "nonsense", invalid.Field)
}
