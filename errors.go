package breaker

import "fmt"

// TimeoutError is returned when an exec's wall-clock deadline elapses
// before the wrapped operation resolves.
type TimeoutError struct{}

func (e *TimeoutError) Error() string { return "Request Timed out" }

// CircuitOpenError is returned by Circuit.Exec when the breaker is open and
// no fallback absorbed the call. FailPercentage is the observed failure
// ratio (1 - successful/total, 0 on an empty window) and Threshold the
// configured minimum success ratio, both at the time of rejection.
type CircuitOpenError struct {
	Name           string
	FailPercentage float64
	Threshold      float64
}

func (e *CircuitOpenError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("[Breaker: %s] circuit open: %.1f%% failures (threshold %.1f%%)",
			e.Name, e.FailPercentage*100, e.Threshold*100)
	}
	return fmt.Sprintf("circuit open: %.1f%% failures (threshold %.1f%%)",
		e.FailPercentage*100, e.Threshold*100)
}

// prefixedError implements the "[Breaker: <name>] " message-modification
// behaviour without discarding the original error from the errors.Is/
// errors.As chain.
type prefixedError struct {
	prefix string
	err    error
}

func (e *prefixedError) Error() string { return e.prefix + e.err.Error() }
func (e *prefixedError) Unwrap() error { return e.err }

func prefixError(name string, err error) error {
	return &prefixedError{prefix: fmt.Sprintf("[Breaker: %s] ", name), err: err}
}
