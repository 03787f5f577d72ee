package testfixtures

import "testing"

func TestIDGenerator(t *testing.T) {
	gen := NewIDGenerator("res")

	first := gen.Next()
	second := gen.NextFunc()()

	if first != "res-1" || second != "res-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if gen.Issued() != 2 {
		t.Fatalf("expected 2 issued identifiers, got %d", gen.Issued())
	}
	if got := NewIDGenerator("").Next(); got != "id-1" {
		t.Fatalf("expected default prefix, got %q", got)
	}
}
