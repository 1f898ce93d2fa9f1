package authflow

import (
	"slices"
	"testing"
)

func TestOTPInputTypingAdvancesFocus(t *testing.T) {
	in := NewOTPInput(6)
	for i, d := range []string{"1", "2", "3"} {
		if !in.Set(i, d) {
			t.Fatalf("Set(%d,%q) rejected", i, d)
		}
	}
	if in.view().Focus != 3 {
		t.Fatalf("expected focus 3, got %d", in.view().Focus)
	}
	if in.Set(3, "x") || in.Set(3, "12") || in.Set(9, "1") {
		t.Fatal("non-digit, multi-char and out of range input must be rejected")
	}
	if in.Complete() {
		t.Fatal("partial code is not complete")
	}
	if in.Code() != "123" {
		t.Fatalf("unexpected code %q", in.Code())
	}

	for i, d := range []string{"4", "5", "6"} {
		in.Set(3+i, d)
	}
	if !in.Complete() || in.Code() != "123456" {
		t.Fatalf("expected complete code, got %q", in.Code())
	}
	if in.view().Focus != 5 {
		t.Fatal("focus must stay on the last cell")
	}
}

func TestOTPInputBackspace(t *testing.T) {
	in := NewOTPInput(4)
	in.Paste("12")
	in.Backspace(2)
	if got := in.view(); !slices.Equal(got.Digits, []string{"1", "", "", ""}) || got.Focus != 1 {
		t.Fatalf("backspace on empty cell must clear the previous one, got %+v", got)
	}
	in.Backspace(0)
	if in.Code() != "" || in.view().Focus != 0 {
		t.Fatalf("unexpected state %+v", in.view())
	}
	in.Backspace(0)
	if in.view().Focus != 0 {
		t.Fatal("backspace at the first cell must stay there")
	}
}

func TestOTPInputPasteAndClear(t *testing.T) {
	in := NewOTPInput(6)
	in.Paste("code: 98 76 54 32")
	if in.Code() != "987654" {
		t.Fatalf("unexpected code %q", in.Code())
	}
	in.Paste("no digits here")
	if in.Code() != "987654" {
		t.Fatal("paste without digits must be ignored")
	}

	in.Set(2, "1")
	in.ClearDigits()
	if in.Code() != "" || in.view().Focus != 3 {
		t.Fatalf("ClearDigits must keep focus, got %+v", in.view())
	}
	in.Reset()
	if in.view().Focus != 0 {
		t.Fatal("Reset must move focus to the first cell")
	}
}
