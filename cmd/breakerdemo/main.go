// Command breakerdemo drives a deliberately flaky operation through a
// breaker and prints live state transitions, for manually exercising the
// runtime without wiring up a dashboard.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/fatih/color"

	breaker "github.com/xraph/breaker"
	"github.com/xraph/breaker/logger"
)

func main() {
	log := logger.NewDevelopment()
	defer log.Sync()

	failRate := 0.0

	flaky := func(ctx context.Context, args ...any) (any, error) {
		time.Sleep(20 * time.Millisecond)
		if rand.Float64() < failRate {
			return nil, fmt.Errorf("upstream unavailable")
		}
		return "ok", nil
	}

	b := breaker.New(flaky,
		breaker.WithName("demo"),
		breaker.WithWaitThreshold(10),
		breaker.WithThreshold(0.5),
		breaker.WithBucketSpan(time.Second),
		breaker.WithBucketNum(10),
		breaker.WithStatInterval(time.Second),
		breaker.WithCircuitDuration(3*time.Second),
	)
	defer b.Destroy()

	b.OnCircuitOpen(func() {
		fmt.Println(color.RedString("circuit open"))
	})
	b.OnCircuitClosed(func() {
		fmt.Println(color.GreenString("circuit closed"))
	})

	ctx := context.Background()

	for i := 0; i < 200; i++ {
		if i == 50 {
			failRate = 0.9
			fmt.Println(color.YellowString("--- injecting failures ---"))
		}
		if i == 120 {
			failRate = 0.0
			fmt.Println(color.YellowString("--- upstream recovered ---"))
		}

		_, err := b.Exec(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("exec error: %v", err))
		}

		time.Sleep(30 * time.Millisecond)
	}

	totals := b.Stats().Totals()
	fmt.Printf("final window: total=%d successful=%d failed=%d timedOut=%d shortCircuited=%d\n",
		totals.Total, totals.Successful, totals.Failed, totals.TimedOut, totals.ShortCircuited)
}
