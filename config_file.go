package breaker

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk, YAML-shaped view of a breaker's Config. Durations
// are strings ("30s", "1200ms") rather than time.Duration, following the same
// convention as every other duration field this codebase loads from YAML.
type FileConfig struct {
	Name  string `yaml:"name"`
	Group string `yaml:"group"`

	BucketSpan   string    `yaml:"bucketSpan"`
	BucketNum    int       `yaml:"bucketNum"`
	StatInterval string    `yaml:"statInterval"`
	Percentiles  []float64 `yaml:"percentiles,omitempty"`

	CircuitDuration string  `yaml:"circuitDuration"`
	WaitThreshold   int     `yaml:"waitThreshold"`
	Threshold       float64 `yaml:"threshold"`
	Timeout         string  `yaml:"timeout"`

	HealthCheckInterval string `yaml:"healthCheckInterval,omitempty"`

	RegisterGlobal *bool `yaml:"registerGlobal,omitempty"`
	ModifyError    *bool `yaml:"modifyError,omitempty"`
}

// LoadFileConfig reads and parses a YAML breaker configuration file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("failed to read breaker config: %w", err)
	}

	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("failed to parse breaker config: %w", err)
	}

	return fc, nil
}

// Options converts the parsed file config into functional Options, applying
// only the fields the file actually set (zero-value string durations and
// zero-value numeric fields are left at Breaker's built-in defaults).
func (fc FileConfig) Options() ([]Option, error) {
	var opts []Option

	if fc.Name != "" {
		opts = append(opts, WithName(fc.Name))
	}
	if fc.Group != "" {
		opts = append(opts, WithGroup(fc.Group))
	}
	if fc.BucketSpan != "" {
		d, err := time.ParseDuration(fc.BucketSpan)
		if err != nil {
			return nil, fmt.Errorf("invalid bucketSpan %q: %w", fc.BucketSpan, err)
		}
		opts = append(opts, WithBucketSpan(d))
	}
	if fc.BucketNum > 0 {
		opts = append(opts, WithBucketNum(fc.BucketNum))
	}
	if fc.StatInterval != "" {
		d, err := time.ParseDuration(fc.StatInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid statInterval %q: %w", fc.StatInterval, err)
		}
		opts = append(opts, WithStatInterval(d))
	}
	if len(fc.Percentiles) > 0 {
		opts = append(opts, WithPercentiles(fc.Percentiles...))
	}
	if fc.CircuitDuration != "" {
		d, err := time.ParseDuration(fc.CircuitDuration)
		if err != nil {
			return nil, fmt.Errorf("invalid circuitDuration %q: %w", fc.CircuitDuration, err)
		}
		opts = append(opts, WithCircuitDuration(d))
	}
	if fc.WaitThreshold > 0 {
		opts = append(opts, WithWaitThreshold(fc.WaitThreshold))
	}
	if fc.Threshold > 0 {
		opts = append(opts, WithThreshold(fc.Threshold))
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", fc.Timeout, err)
		}
		opts = append(opts, WithTimeout(d))
	}
	if fc.HealthCheckInterval != "" {
		d, err := time.ParseDuration(fc.HealthCheckInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid healthCheckInterval %q: %w", fc.HealthCheckInterval, err)
		}
		// HealthCheck itself has to be supplied in code; the file only ever
		// tunes its interval.
		opts = append(opts, func(c *Config) { c.HealthCheckInterval = d })
	}
	if fc.RegisterGlobal != nil {
		opts = append(opts, WithRegisterGlobal(*fc.RegisterGlobal))
	}
	if fc.ModifyError != nil {
		opts = append(opts, WithModifyError(*fc.ModifyError))
	}

	return opts, nil
}

// NewFromFile constructs a Breaker from a YAML config file, layering any
// extra Options (e.g. a HealthCheck function, which cannot be expressed in
// YAML) on top of the file's settings.
func NewFromFile(path string, primary Callable, extra ...Option) (*Breaker, error) {
	fc, err := LoadFileConfig(path)
	if err != nil {
		return nil, err
	}

	fileOpts, err := fc.Options()
	if err != nil {
		return nil, err
	}

	opts := append(fileOpts, extra...)
	return New(primary, opts...), nil
}
