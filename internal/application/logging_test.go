package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/masjid-scheduler/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}
	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLogger_PrefersContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctxLogger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := logging.ContextWithLogger(context.Background(), ctxLogger)

	serviceLogger(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), "ReservationService", "Submit", "date", "2025-03-15").
		Info("reservation submitted")

	out := buf.String()
	for _, want := range []string{"service=ReservationService", "operation=Submit", "date=2025-03-15"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestServiceLogger_TagsRequestIDOnFallback(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := logging.ContextWithRequestID(context.Background(), "req-7")

	serviceLogger(ctx, base, "ActivityService", "Create").Info("activity created")

	out := buf.String()
	for _, want := range []string{"request_id=req-7", "service=ActivityService", "operation=Create"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrUnauthorized, "unauthorized"},
		{fmt.Errorf("get: %w", ErrNotFound), "not_found"},
		{ErrAlreadyExists, "already_exists"},
		{ErrSlotUnavailable, "slot_unavailable"},
		{fmt.Errorf("%w: reservation is approved", ErrInvalidTransition), "invalid_transition"},
		{fmt.Errorf("%w: timeout", ErrAvailabilityUnknown), "availability_unknown"},
		{&ValidationError{FieldErrors: map[string]string{"name": "required"}}, "validation"},
		{errors.New("boom"), "unexpected"},
	}

	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
