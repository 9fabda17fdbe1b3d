package logger

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ANSI color codes for development logging.
const (
	reset      = "\033[0m"
	debugColor = "\033[36m"
	infoColor  = "\033[32m"
	warnColor  = "\033[33m"
	errorColor = "\033[31m"
	fatalColor = "\033[35m"
)

var globalLogger *logger

// logger implements Logger using zap.
type logger struct {
	zap *zap.Logger
}

type contextKey int

const loggerKey contextKey = iota

// New creates a new logger from the given configuration.
func New(cfg Config) Logger {
	level := zapcore.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zapcore.DebugLevel
	case "warn", "warning":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	case "fatal":
		level = zapcore.FatalLevel
	}

	var zl *zap.Logger
	if cfg.Environment == "production" || cfg.Format == "json" {
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
		zl, _ = zc.Build(zap.AddCallerSkip(1))
	} else {
		zl = newDevelopmentLogger(level)
	}

	return &logger{zap: zl}
}

// NewDevelopment returns a colorized logger suitable for local runs.
func NewDevelopment() Logger {
	return &logger{zap: newDevelopmentLogger(zapcore.DebugLevel)}
}

// Noop returns a logger that discards everything; used as a safe default.
func Noop() Logger {
	return &logger{zap: zap.NewNop()}
}

func newDevelopmentLogger(level zapcore.Level) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    colorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		zap.NewAtomicLevelAt(level),
	)

	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

func colorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var color string
	switch level {
	case zapcore.DebugLevel:
		color = debugColor
	case zapcore.InfoLevel:
		color = infoColor
	case zapcore.WarnLevel:
		color = warnColor
	case zapcore.ErrorLevel:
		color = errorColor
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		color = fatalColor
	default:
		color = reset
	}
	enc.AppendString(color + level.CapitalString() + reset)
}

// Global returns the process-wide default logger, creating one on first use.
func Global() Logger {
	if globalLogger == nil {
		globalLogger = NewDevelopment().(*logger)
	}
	return globalLogger
}

// SetGlobal installs l as the process-wide default logger.
func SetGlobal(l Logger) {
	if lg, ok := l.(*logger); ok {
		globalLogger = lg
	}
}

func (l *logger) Debug(msg string, fields ...Field) { l.zap.Debug(msg, fieldsToZap(fields)...) }
func (l *logger) Info(msg string, fields ...Field)  { l.zap.Info(msg, fieldsToZap(fields)...) }
func (l *logger) Warn(msg string, fields ...Field)  { l.zap.Warn(msg, fieldsToZap(fields)...) }
func (l *logger) Error(msg string, fields ...Field) { l.zap.Error(msg, fieldsToZap(fields)...) }
func (l *logger) Fatal(msg string, fields ...Field) { l.zap.Fatal(msg, fieldsToZap(fields)...) }

func (l *logger) Debugf(template string, args ...interface{}) {
	l.zap.Debug(fmt.Sprintf(template, args...))
}
func (l *logger) Infof(template string, args ...interface{}) {
	l.zap.Info(fmt.Sprintf(template, args...))
}
func (l *logger) Warnf(template string, args ...interface{}) {
	l.zap.Warn(fmt.Sprintf(template, args...))
}
func (l *logger) Errorf(template string, args ...interface{}) {
	l.zap.Error(fmt.Sprintf(template, args...))
}

func (l *logger) With(fields ...Field) Logger {
	return &logger{zap: l.zap.With(fieldsToZap(fields)...)}
}

func (l *logger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return &logger{zap: l.zap.With(fieldsToZap(fields)...)}
	}
	return l
}

func (l *logger) Named(name string) Logger {
	return &logger{zap: l.zap.Named(name)}
}

func (l *logger) Sync() error {
	return l.zap.Sync()
}

func fieldsToZap(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if f != nil {
			out = append(out, f.ZapField())
		}
	}
	return out
}

// WithLogger stores l in ctx.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext retrieves the logger previously stored with WithLogger, or the
// global logger if none was stored.
func FromContext(ctx context.Context) Logger {
	if ctx == nil {
		return Global()
	}
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Global()
}
