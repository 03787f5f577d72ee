package application

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	t.Parallel()

	t.Run("nil error renders empty", func(t *testing.T) {
		var err *ValidationError
		if err.Error() != "" || err.HasErrors() {
			t.Fatalf("expected nil ValidationError to be empty")
		}
	})

	t.Run("first message per field wins", func(t *testing.T) {
		vErr := &ValidationError{}
		vErr.add("date", "date is required")
		vErr.add("date", "date must use YYYY-MM-DD")

		if !vErr.HasErrors() {
			t.Fatalf("expected HasErrors after add")
		}
		if got := vErr.FieldErrors["date"]; got != "date is required" {
			t.Fatalf("expected first message to be kept, got %q", got)
		}
		if vErr.Error() != "validation failed" {
			t.Fatalf("unexpected message %q", vErr.Error())
		}
	})

	t.Run("survives wrapping", func(t *testing.T) {
		vErr := &ValidationError{}
		vErr.add("phone", "phone is required")
		wrapped := fmt.Errorf("submit: %w", vErr)

		var got *ValidationError
		if !errors.As(wrapped, &got) || got.FieldErrors["phone"] == "" {
			t.Fatalf("expected ValidationError through wrapping")
		}
	})
}
