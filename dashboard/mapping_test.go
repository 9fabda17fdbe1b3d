package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	breaker "github.com/xraph/breaker"
)

func TestMapErrorPercentage(t *testing.T) {
	snap := breaker.Snapshot{
		Name:  "checkout",
		Group: "payments",
		Time:  time.Unix(0, 0),
		Stats: breaker.TotalStats{
			Total:      10,
			Successful: 6,
		},
	}

	env := Map(snap)
	assert.Equal(t, 40, env.ErrorPercentage)
	assert.Equal(t, "HystrixCommand", env.Type)
	assert.Equal(t, "checkout", env.Name)
	assert.Equal(t, "payments", env.Group)
}

func TestMapZeroTotalErrorPercentage(t *testing.T) {
	env := Map(breaker.Snapshot{Stats: breaker.TotalStats{Total: 0}})
	assert.Equal(t, 0, env.ErrorPercentage)
}

func TestMapPercentileKeysNotBackfilled(t *testing.T) {
	snap := breaker.Snapshot{
		Stats: breaker.TotalStats{
			Percentiles: map[string]int64{
				"0.5": 42,
				"1":   99,
			},
		},
	}

	env := Map(snap)
	assert.Len(t, env.LatencyExecute, 2)
	assert.Equal(t, int64(42), env.LatencyExecute["50"])
	assert.Equal(t, int64(99), env.LatencyExecute["100"])
	_, ok := env.LatencyExecute["95"]
	assert.False(t, ok)
}

func TestMapUnknownPercentileKeySkipped(t *testing.T) {
	snap := breaker.Snapshot{
		Stats: breaker.TotalStats{
			Percentiles: map[string]int64{"0.42": 7},
		},
	}

	env := Map(snap)
	assert.Empty(t, env.LatencyExecute)
}
