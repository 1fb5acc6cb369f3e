package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	accountKey   contextKey = "account"
)

// Account identifies the caller in log entries
type Account struct {
	Type    string
	ID      string
	OwnerID string
}

// WithContext returns a new context carrying l
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored in ctx or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request ID stored in ctx
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithAccount stores the authenticated caller in ctx
func WithAccount(ctx context.Context, acc Account) context.Context {
	return context.WithValue(ctx, accountKey, acc)
}

// GetAccount returns the caller stored in ctx
func GetAccount(ctx context.Context) (Account, bool) {
	acc, ok := ctx.Value(accountKey).(Account)
	return acc, ok
}

// L returns the context logger enriched with trace, request and account fields.
// Usage: logger.L(ctx).Info("store bound", zap.String("store_id", id))
func L(ctx context.Context) *zap.Logger {
	return Enrich(ctx, FromContext(ctx))
}

// Enrich adds the correlation fields found in ctx to l
func Enrich(ctx context.Context, l *zap.Logger) *zap.Logger {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if acc, ok := GetAccount(ctx); ok {
		fields = append(fields,
			zap.String("account_type", acc.Type),
			zap.String("account_id", acc.ID),
		)
		if acc.OwnerID != "" && acc.OwnerID != acc.ID {
			fields = append(fields, zap.String("owner_id", acc.OwnerID))
		}
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
