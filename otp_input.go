package authflow

import "strings"

// OTPInput is the per-digit code buffer behind the verification form.
// Focus follows entry: a typed digit moves it right, backspace on an
// empty cell moves it left.
type OTPInput struct {
	digits []byte
	focus  int
}

func NewOTPInput(n int) OTPInput {
	if n <= 0 {
		n = 6
	}
	return OTPInput{digits: make([]byte, n)}
}

func (o *OTPInput) Len() int {
	return len(o.digits)
}

// Set writes value into cell i. An empty value clears the cell. Anything
// other than a single ASCII digit is ignored and reported as false.
func (o *OTPInput) Set(i int, value string) bool {
	if i < 0 || i >= len(o.digits) {
		return false
	}
	if value == "" {
		o.digits[i] = 0
		o.focus = i
		return true
	}
	if len(value) != 1 || value[0] < '0' || value[0] > '9' {
		return false
	}
	o.digits[i] = value[0]
	if i+1 < len(o.digits) {
		o.focus = i + 1
	} else {
		o.focus = i
	}
	return true
}

// Backspace clears cell i, or the previous cell when i is already empty.
func (o *OTPInput) Backspace(i int) {
	if i < 0 || i >= len(o.digits) {
		return
	}
	if o.digits[i] != 0 {
		o.digits[i] = 0
		o.focus = i
		return
	}
	if i > 0 {
		o.digits[i-1] = 0
		o.focus = i - 1
	}
}

// Paste fills the buffer from the digits of s, ignoring other characters.
func (o *OTPInput) Paste(s string) {
	n := 0
	for i := 0; i < len(s) && n < len(o.digits); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			o.digits[n] = s[i]
			n++
		}
	}
	if n == 0 {
		return
	}
	for i := n; i < len(o.digits); i++ {
		o.digits[i] = 0
	}
	o.focus = min(n, len(o.digits)-1)
}

// ClearDigits empties every cell and leaves focus where it was.
func (o *OTPInput) ClearDigits() {
	clear(o.digits)
}

// Reset empties every cell and moves focus to the first one.
func (o *OTPInput) Reset() {
	clear(o.digits)
	o.focus = 0
}

func (o *OTPInput) Complete() bool {
	for _, d := range o.digits {
		if d == 0 {
			return false
		}
	}
	return len(o.digits) > 0
}

// Code concatenates the entered digits.
func (o *OTPInput) Code() string {
	var b strings.Builder
	for _, d := range o.digits {
		if d != 0 {
			b.WriteByte(d)
		}
	}
	return b.String()
}

func (o *OTPInput) view() OTPView {
	out := OTPView{Digits: make([]string, len(o.digits)), Focus: o.focus}
	for i, d := range o.digits {
		if d != 0 {
			out.Digits[i] = string(rune(d))
		}
	}
	return out
}
