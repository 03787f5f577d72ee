package http

import (
	"context"
	"log/slog"

	"github.com/example/masjid-scheduler/internal/application"
	"github.com/example/masjid-scheduler/internal/logging"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	gatewayContextKey   contextKey = "gateway"
)

// ContextWithPrincipal returns a derived context containing the calling principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the calling principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// contextWithGateway marks the request as relayed by the trusted gateway.
func contextWithGateway(ctx context.Context) context.Context {
	return context.WithValue(ctx, gatewayContextKey, true)
}

func viaGateway(ctx context.Context) bool {
	trusted, _ := ctx.Value(gatewayContextKey).(bool)
	return trusted
}

// ContextWithLogger attaches a request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
