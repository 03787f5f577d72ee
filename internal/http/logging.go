package http

import (
	"context"
	"log/slog"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger prefers the request logger installed by RequestLogger and tags
// it with the handler, operation and, for admin calls, the acting principal.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
	}

	pairs := []any{"handler", handlerName, "operation", operation}
	if principal, ok := PrincipalFromContext(ctx); ok && principal.UserID != "" {
		pairs = append(pairs, "principal_id", principal.UserID)
	}
	return logger.With(pairs...)
}
