package breaker

import "time"

// DefaultPercentiles is the percentile set published on every snapshot
// unless overridden.
var DefaultPercentiles = []float64{0, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99, 0.995, 1}

// Config holds the recognised construction options for a Breaker.
type Config struct {
	Name string
	Group string

	BucketSpan   time.Duration
	BucketNum    int
	StatInterval time.Duration
	Percentiles  []float64

	CircuitDuration time.Duration
	WaitThreshold   int
	Threshold       float64
	Timeout         time.Duration

	HealthCheck         func() error
	HealthCheckInterval time.Duration

	IsFailure func(err error) bool

	Fallback Callable

	RegisterGlobal bool
	ModifyError    bool
}

// DefaultConfig returns the recommended default option values.
func DefaultConfig() Config {
	return Config{
		Name:                "defaultBrake",
		Group:               "defaultBrakeGroup",
		BucketSpan:          time.Second,
		BucketNum:           60,
		StatInterval:        1200 * time.Millisecond,
		Percentiles:         append([]float64(nil), DefaultPercentiles...),
		CircuitDuration:     30 * time.Second,
		WaitThreshold:       100,
		Threshold:           0.5,
		Timeout:             15 * time.Second,
		HealthCheckInterval: 5 * time.Second,
		IsFailure:           func(err error) bool { return true },
		RegisterGlobal:      true,
		ModifyError:         true,
	}
}

// Option mutates a Config at construction time.
type Option func(*Config)

func WithName(name string) Option { return func(c *Config) { c.Name = name } }
func WithGroup(group string) Option { return func(c *Config) { c.Group = group } }

func WithBucketSpan(d time.Duration) Option { return func(c *Config) { c.BucketSpan = d } }
func WithBucketNum(n int) Option            { return func(c *Config) { c.BucketNum = n } }
func WithStatInterval(d time.Duration) Option {
	return func(c *Config) { c.StatInterval = d }
}
func WithPercentiles(p ...float64) Option {
	return func(c *Config) { c.Percentiles = append([]float64(nil), p...) }
}

func WithCircuitDuration(d time.Duration) Option {
	return func(c *Config) { c.CircuitDuration = d }
}
func WithWaitThreshold(n int) Option     { return func(c *Config) { c.WaitThreshold = n } }
func WithThreshold(f float64) Option     { return func(c *Config) { c.Threshold = f } }
func WithTimeout(d time.Duration) Option { return func(c *Config) { c.Timeout = d } }

func WithHealthCheck(fn func() error, interval time.Duration) Option {
	return func(c *Config) {
		c.HealthCheck = fn
		if interval > 0 {
			c.HealthCheckInterval = interval
		}
	}
}

func WithIsFailure(fn func(err error) bool) Option {
	return func(c *Config) { c.IsFailure = fn }
}

func WithFallback(fn Callable) Option { return func(c *Config) { c.Fallback = fn } }

func WithRegisterGlobal(b bool) Option { return func(c *Config) { c.RegisterGlobal = b } }
func WithModifyError(b bool) Option    { return func(c *Config) { c.ModifyError = b } }

func newConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
