// Package dashboard translates breaker snapshots into the third-party
// Hystrix-dashboard JSON envelope and streams them as server-sent events.
// It sits outside the core state machine entirely: it only ever reads a
// published Snapshot.
package dashboard

import (
	"math"
	"strconv"

	breaker "github.com/xraph/breaker"
)

// percentileLabel maps the fractional percentile keys Stats publishes
// ("0", "0.25", "0.5", ...) to the integer-ish labels the dashboard feed
// convention expects (0, 25, 50, ..., 99.5, 100).
var percentileLabel = map[string]float64{
	"0":     0,
	"0.25":  25,
	"0.5":   50,
	"0.75":  75,
	"0.9":   90,
	"0.95":  95,
	"0.99":  99,
	"0.995": 99.5,
	"1":     100,
}

// Envelope is the dashboard-JSON object a Hystrix-compatible stream
// consumer expects, built from a breaker.Snapshot.
type Envelope struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	Group         string `json:"group"`
	CurrentTime   int64  `json:"currentTime"`
	IsCircuitOpen bool   `json:"isCircuitBreakerOpen"`

	ErrorPercentage int `json:"errorPercentage"`

	RollingCountSuccess        int `json:"rollingCountSuccess"`
	RollingCountFailure        int `json:"rollingCountFailure"`
	RollingCountTimeout        int `json:"rollingCountTimeout"`
	RollingCountShortCircuited int `json:"rollingCountShortCircuited"`

	LatencyExecuteMean int64 `json:"latencyExecute_mean"`

	LatencyExecute map[string]int64 `json:"latencyExecute"`
	LatencyTotal   map[string]int64 `json:"latencyTotal"`

	CircuitBreakerOpenThreshold float64 `json:"circuitBreakerOpenThreshold"`
	CircuitBreakerForceClosed   bool    `json:"circuitBreakerForceClosed"`

	PropertyValueCircuitBreakerRequestVolumeThreshold int `json:"propertyValue_circuitBreakerRequestVolumeThreshold"`
	PropertyValueCircuitBreakerSleepWindowInMs        int `json:"propertyValue_circuitBreakerSleepWindowInMilliseconds"`
	PropertyValueCircuitBreakerErrorThresholdPercent  int `json:"propertyValue_circuitBreakerErrorThresholdPercentage"`
}

// Map builds the dashboard envelope for snap. Percentile keys with no
// corresponding published bucket (percentiles the breaker wasn't
// configured with) are simply absent from LatencyExecute/LatencyTotal —
// they are not backfilled with zeroes, matching the upstream feed's own
// behavior for unreported buckets.
func Map(snap breaker.Snapshot) Envelope {
	stats := snap.Stats

	errPct := 0
	if stats.Total > 0 {
		errPct = int(math.Round((1 - float64(stats.Successful)/float64(stats.Total)) * 100))
	}

	latency := make(map[string]int64, len(stats.Percentiles))
	for key, ms := range stats.Percentiles {
		label, ok := percentileLabel[key]
		if !ok {
			continue
		}
		latency[formatPercentLabel(label)] = ms
	}

	return Envelope{
		Type:          "HystrixCommand",
		Name:          snap.Name,
		Group:         snap.Group,
		CurrentTime:   snap.Time.UnixMilli(),
		IsCircuitOpen: snap.Open,

		ErrorPercentage: errPct,

		RollingCountSuccess:        stats.Successful,
		RollingCountFailure:        stats.Failed,
		RollingCountTimeout:        stats.TimedOut,
		RollingCountShortCircuited: stats.ShortCircuited,

		LatencyExecuteMean: stats.LatencyMean,
		LatencyExecute:     latency,
		LatencyTotal:       latency,

		CircuitBreakerOpenThreshold: snap.Threshold,
		CircuitBreakerForceClosed:   false,

		PropertyValueCircuitBreakerRequestVolumeThreshold: snap.WaitThreshold,
		PropertyValueCircuitBreakerSleepWindowInMs:        int(snap.CircuitDuration.Milliseconds()),
		PropertyValueCircuitBreakerErrorThresholdPercent:  int(snap.Threshold * 100),
	}
}

// formatPercentLabel renders a dashboard percentile label the way the
// upstream feed convention keys them: integers without a trailing ".0",
// the one fractional case ("99.5") kept as-is.
func formatPercentLabel(label float64) string {
	return strconv.FormatFloat(label, 'f', -1, 64)
}
