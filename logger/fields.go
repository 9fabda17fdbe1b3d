package logger

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// zapField adapts a zap.Field to the Field interface.
type zapField struct{ f zap.Field }

func (z zapField) Key() string          { return z.f.Key }
func (z zapField) Value() interface{}   { return z.f.Interface }
func (z zapField) ZapField() zap.Field  { return z.f }

// Field constructors.
var (
	String = func(key, val string) Field { return zapField{zap.String(key, val)} }
	Int    = func(key string, val int) Field { return zapField{zap.Int(key, val)} }
	Int64  = func(key string, val int64) Field { return zapField{zap.Int64(key, val)} }
	Float64 = func(key string, val float64) Field { return zapField{zap.Float64(key, val)} }
	Bool   = func(key string, val bool) Field { return zapField{zap.Bool(key, val)} }
	Duration = func(key string, val time.Duration) Field { return zapField{zap.Duration(key, val)} }
	Time   = func(key string, val time.Time) Field { return zapField{zap.Time(key, val)} }
	Error  = func(err error) Field { return zapField{zap.Error(err)} }
	Any    = func(key string, val interface{}) Field { return zapField{zap.Any(key, val)} }
)

// Request/trace context propagation, read by Logger.WithContext.
type requestIDKey struct{}

// WithRequestID stores a request id in ctx for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext extracts the request id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// ContextFields collects the structured fields carried on ctx.
func ContextFields(ctx context.Context) []Field {
	var fields []Field
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, String("request_id", id))
	}
	return fields
}
