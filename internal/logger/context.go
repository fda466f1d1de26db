package logger

import (
	"context"
	"log/slog"
)

// contextKey is private so no other package can collide with it.
type contextKey struct{}

// WithContext returns a copy of ctx carrying logger.
// Request middleware uses it to hand a request-scoped logger to handlers.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default() if there is none.
// It never returns nil.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// With enriches the logger stored in ctx with attrs and stores the result
// in a new context. Handlers use it once the user and pet names are known.
func With(ctx context.Context, attrs ...any) context.Context {
	return WithContext(ctx, FromContext(ctx).With(attrs...))
}
