package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/masjid-scheduler/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// serviceLogger prefers the request logger carried by ctx. When only the
// service's own logger is available, the request id is attached so log lines
// still correlate with the HTTP access log.
func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	pairs := make([]any, 0, 6+len(attrs))
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
		if id := logging.RequestIDFromContext(ctx); id != "" {
			pairs = append(pairs, "request_id", id)
		}
	}

	pairs = append(pairs, "service", serviceName)
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	pairs = append(pairs, attrs...)
	return logger.With(pairs...)
}

// errorKinds is checked in order; the first sentinel matched by errors.Is
// names the failure.
var errorKinds = []struct {
	target error
	label  string
}{
	{ErrUnauthorized, "unauthorized"},
	{ErrNotFound, "not_found"},
	{ErrAlreadyExists, "already_exists"},
	{ErrSlotUnavailable, "slot_unavailable"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrAvailabilityUnknown, "availability_unknown"},
}

// ErrorKind labels err for the error_kind log attribute and the booking
// outcome metric. It returns "" for nil and "unexpected" for errors outside
// the service vocabulary.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, kind := range errorKinds {
		if errors.Is(err, kind.target) {
			return kind.label
		}
	}
	if vErr := (*ValidationError)(nil); errors.As(err, &vErr) {
		return "validation"
	}
	return "unexpected"
}
