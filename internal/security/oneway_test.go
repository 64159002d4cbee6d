package security

import "testing"

func TestHashOneWay_Consistent(t *testing.T) {
	h1 := HashOneWay("device-abc")
	h2 := HashOneWay("device-abc")
	if h1 != h2 {
		t.Errorf("HashOneWay not consistent: %q vs %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 (SHA-256 hex)", len(h1))
	}
}

func TestHashOneWay_DifferentInputs(t *testing.T) {
	if HashOneWay("a") == HashOneWay("b") {
		t.Error("HashOneWay produced same hash for different inputs")
	}
}

func TestHashOneWay_DoesNotContainInput(t *testing.T) {
	raw := "0123456789abcdef0123456789abcdef"
	if HashOneWay(raw) == raw {
		t.Error("HashOneWay returned its input")
	}
}
