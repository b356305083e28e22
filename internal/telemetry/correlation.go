package telemetry

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type corrKey struct{}

// WithCorrelation returns ctx carrying id, generating one when id is empty.
func WithCorrelation(ctx context.Context, id string) (context.Context, string) {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, corrKey{}, id), id
}

// Correlation returns the correlation id stored in ctx, or "".
func Correlation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey{}).(string); ok {
		return s
	}
	return ""
}

// Logger returns base annotated with the context's correlation id.
func Logger(ctx context.Context, base *slog.Logger) *slog.Logger {
	if id := Correlation(ctx); id != "" {
		return base.With("corr", id)
	}
	return base
}
