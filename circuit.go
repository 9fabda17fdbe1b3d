package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/breaker/logger"
)

// Callable is the single (args) → (result, error) contract the core
// accepts. There's no reflection on a callable's parameter shape to
// auto-detect callback-vs-promise style; callers bring their own adapter
// if they need one.
type Callable func(ctx context.Context, args ...any) (any, error)

// CircuitOption configures a single Circuit, overriding the parent
// Breaker's defaults for timeout and failure classification.
type CircuitOption func(*circuitConfig)

type circuitConfig struct {
	Timeout   time.Duration
	IsFailure func(error) bool
}

// WithCircuitTimeout overrides the parent breaker's default timeout for
// this circuit only.
func WithCircuitTimeout(d time.Duration) CircuitOption {
	return func(c *circuitConfig) { c.Timeout = d }
}

// WithCircuitIsFailure overrides the parent breaker's error classifier for
// this circuit only.
func WithCircuitIsFailure(fn func(error) bool) CircuitOption {
	return func(c *circuitConfig) { c.IsFailure = fn }
}

// Circuit is a (primary, fallback?) pair bound to a parent Breaker.
// Rather than a single overloaded constructor dispatching on whether the
// second positional argument is callable or an options mapping, the
// breaker exposes two explicit constructors: Breaker.NewCircuit (no
// fallback) and Breaker.NewCircuitWithFallback.
type Circuit struct {
	breaker  *Breaker
	primary  Callable
	fallback Callable
	cfg      circuitConfig
}

func newCircuit(b *Breaker, primary, fallback Callable, opts ...CircuitOption) *Circuit {
	var cfg circuitConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Circuit{breaker: b, primary: primary, fallback: fallback, cfg: cfg}
}

func (c *Circuit) timeout() time.Duration {
	if c.cfg.Timeout > 0 {
		return c.cfg.Timeout
	}
	return c.breaker.cfg.Timeout
}

func (c *Circuit) isFailure(err error) bool {
	if c.cfg.IsFailure != nil {
		return c.cfg.IsFailure(err)
	}
	return c.breaker.cfg.IsFailure(err)
}

type execResult struct {
	val any
	err error
}

// Exec runs the circuit's protected operation under the configured
// timeout, recording the outcome on the parent Breaker and dispatching a
// fallback where one applies.
func (c *Circuit) Exec(ctx context.Context, args ...any) (any, error) {
	b := c.breaker
	b.emitExec()
	gen := b.generationID()

	if b.isOpen() {
		b.log.Warn("short circuit", logger.String("name", b.cfg.Name))
		b.stats.recordShortCircuit()
		return c.runFallbackOrOpenError(ctx, args)
	}

	start := time.Now()
	done := make(chan execResult, 1)
	go func() {
		val, err := c.primary(ctx, args...)
		done <- execResult{val, err}
	}()

	var result execResult
	timedOut := false

	timer := time.NewTimer(c.timeout())
	defer timer.Stop()

	select {
	case result = <-done:
	case <-timer.C:
		timedOut = true
		result.err = &TimeoutError{}
	}

	elapsed := time.Since(start).Milliseconds()

	if result.err == nil {
		b.emitSuccess(elapsed, gen)
		return result.val, nil
	}

	var isTimeout bool
	if timedOut {
		isTimeout = true
	} else {
		var te *TimeoutError
		isTimeout = errors.As(result.err, &te)
	}

	switch {
	case isTimeout:
		b.log.Warn("exec timeout",
			logger.String("name", b.cfg.Name),
			logger.Duration("after", c.timeout()))
		b.emitTimeout(elapsed, result.err, gen)
	case c.isFailure(result.err):
		b.log.Warn("exec failure",
			logger.String("name", b.cfg.Name),
			logger.Error(result.err))
		b.emitFailure(elapsed, result.err, gen)
	default:
		// unclassified: the operation failed but the breaker treats it
		// as a non-signal.
	}

	if c.fallback != nil {
		return c.fallback(ctx, args...)
	}
	if b.cfg.Fallback != nil {
		return b.cfg.Fallback(ctx, args...)
	}

	outErr := result.err
	if b.cfg.ModifyError && b.cfg.Name != "" {
		outErr = prefixError(b.cfg.Name, outErr)
	}
	return nil, outErr
}

func (c *Circuit) runFallbackOrOpenError(ctx context.Context, args []any) (any, error) {
	b := c.breaker
	if c.fallback != nil {
		return c.fallback(ctx, args...)
	}
	if b.cfg.Fallback != nil {
		return b.cfg.Fallback(ctx, args...)
	}

	totals := b.stats.Totals()
	failPct := 0.0
	if totals.Total > 0 {
		failPct = 1 - float64(totals.Successful)/float64(totals.Total)
	}
	return nil, &CircuitOpenError{Name: b.cfg.Name, FailPercentage: failPct, Threshold: b.cfg.Threshold}
}
