// Package metrics exposes every registered breaker's Stats as Prometheus
// metrics. It is a pure read adapter: it never mutates breaker state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	breaker "github.com/xraph/breaker"
)

// Collector implements prometheus.Collector over a breaker.Registry,
// describing every currently-registered breaker on each scrape.
type Collector struct {
	registry *breaker.Registry

	total          *prometheus.Desc
	successful     *prometheus.Desc
	failed         *prometheus.Desc
	timedOut       *prometheus.Desc
	shortCircuited *prometheus.Desc
	latencyMean    *prometheus.Desc
	latencyPercent *prometheus.Desc
	open           *prometheus.Desc
	cumulative     *prometheus.Desc
}

// NewCollector builds a Collector reading from reg. Register it with a
// prometheus.Registry the way any other collector is registered.
func NewCollector(reg *breaker.Registry) *Collector {
	labels := []string{"name", "group"}
	return &Collector{
		registry: reg,

		total: prometheus.NewDesc(
			"breaker_window_total", "Total outcomes in the current rolling window.", labels, nil),
		successful: prometheus.NewDesc(
			"breaker_window_successful", "Successful outcomes in the current rolling window.", labels, nil),
		failed: prometheus.NewDesc(
			"breaker_window_failed", "Failed outcomes in the current rolling window.", labels, nil),
		timedOut: prometheus.NewDesc(
			"breaker_window_timed_out", "Timed-out outcomes in the current rolling window.", labels, nil),
		shortCircuited: prometheus.NewDesc(
			"breaker_window_short_circuited", "Short-circuited calls in the current rolling window.", labels, nil),
		latencyMean: prometheus.NewDesc(
			"breaker_latency_mean_ms", "Mean latency over the current rolling window, in milliseconds.", labels, nil),
		latencyPercent: prometheus.NewDesc(
			"breaker_latency_percentile_ms", "Latency percentile over the current rolling window, in milliseconds.",
			append(append([]string{}, labels...), "percentile"), nil),
		open: prometheus.NewDesc(
			"breaker_open", "1 if the breaker is currently open, 0 otherwise.", labels, nil),
		cumulative: prometheus.NewDesc(
			"breaker_cumulative_total", "Lifetime outcome count by kind.",
			append(append([]string{}, labels...), "kind"), nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.successful
	ch <- c.failed
	ch <- c.timedOut
	ch <- c.shortCircuited
	ch <- c.latencyMean
	ch <- c.latencyPercent
	ch <- c.open
	ch <- c.cumulative
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, b := range c.registry.Breakers() {
		name, group := b.Name(), b.Group()
		totals := b.Stats().Totals()

		ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(totals.Total), name, group)
		ch <- prometheus.MustNewConstMetric(c.successful, prometheus.GaugeValue, float64(totals.Successful), name, group)
		ch <- prometheus.MustNewConstMetric(c.failed, prometheus.GaugeValue, float64(totals.Failed), name, group)
		ch <- prometheus.MustNewConstMetric(c.timedOut, prometheus.GaugeValue, float64(totals.TimedOut), name, group)
		ch <- prometheus.MustNewConstMetric(c.shortCircuited, prometheus.GaugeValue, float64(totals.ShortCircuited), name, group)
		ch <- prometheus.MustNewConstMetric(c.latencyMean, prometheus.GaugeValue, float64(totals.LatencyMean), name, group)

		for key, ms := range totals.Percentiles {
			ch <- prometheus.MustNewConstMetric(c.latencyPercent, prometheus.GaugeValue, float64(ms), name, group, key)
		}

		openVal := 0.0
		if b.IsOpen() {
			openVal = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, openVal, name, group)

		cum := totals.Cumulative
		ch <- prometheus.MustNewConstMetric(c.cumulative, prometheus.CounterValue, float64(cum.CountSuccess), name, group, "success")
		ch <- prometheus.MustNewConstMetric(c.cumulative, prometheus.CounterValue, float64(cum.CountFailure), name, group, "failure")
		ch <- prometheus.MustNewConstMetric(c.cumulative, prometheus.CounterValue, float64(cum.CountTimeout), name, group, "timeout")
		ch <- prometheus.MustNewConstMetric(c.cumulative, prometheus.CounterValue, float64(cum.CountShortCircuited), name, group, "short_circuited")
	}
}
