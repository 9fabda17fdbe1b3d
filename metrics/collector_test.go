package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	breaker "github.com/xraph/breaker"
)

func TestCollectorExportsBreakerGauges(t *testing.T) {
	b := breaker.New(nil,
		breaker.WithName("checkout-metrics-test"),
		breaker.WithGroup("payments"),
		breaker.WithBucketSpan(time.Hour),
		breaker.WithBucketNum(2),
		breaker.WithStatInterval(time.Hour),
	)
	defer b.Destroy()

	c := b.NewCircuit(func(ctx context.Context, args ...any) (any, error) { return "ok", nil })
	_, err := c.Exec(context.Background())
	require.NoError(t, err)

	promReg := prometheus.NewRegistry()
	collector := NewCollector(breaker.GlobalRegistry)
	promReg.MustRegister(collector)

	families, err := promReg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "breaker_window_total" {
			found = true
			for _, m := range f.GetMetric() {
				for _, l := range m.GetLabel() {
					if l.GetName() == "name" && l.GetValue() == "checkout-metrics-test" {
						assert.Equal(t, 1.0, m.GetGauge().GetValue())
					}
				}
			}
		}
	}
	assert.True(t, found)
}
