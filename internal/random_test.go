package internal

import (
	"strings"
	"testing"
)

func TestNewOTPDigits(t *testing.T) {
	code, err := NewOTP(6)
	if err != nil {
		t.Fatalf("NewOTP: %v", err)
	}
	if len(code) != 6 || strings.Trim(code, "0123456789") != "" {
		t.Fatalf("unexpected code %q", code)
	}
	if _, err := NewOTP(3); err == nil {
		t.Fatal("expected error for 3 digits")
	}
}

func TestResetTokenHashing(t *testing.T) {
	a, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	b, _ := NewResetToken()
	if a == b {
		t.Fatal("tokens should differ")
	}
	if HashToken(a) != HashToken(a) || HashToken(a) == HashToken(b) {
		t.Fatal("hash must be stable and distinct")
	}
	if len(HashToken(a)) != 64 {
		t.Fatalf("hash length = %d", len(HashToken(a)))
	}
}
