package logger

import (
	"context"

	"go.uber.org/zap"
)

// Logger is the structured logging interface used throughout the breaker runtime.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})

	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
	Named(name string) Logger

	Sync() error
}

// Field represents a structured log field.
type Field interface {
	Key() string
	Value() interface{}
	// ZapField returns the underlying zap.Field for efficient conversion.
	ZapField() zap.Field
}

// Config controls logger construction.
type Config struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	Environment string `yaml:"environment"`
}
