package authflow

import (
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nbutton23/zxcvbn-go"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return invalid("email", ErrFieldRequired, "Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndexByte(email, '@')+1:], ".") {
		return invalid("email", ErrInvalidEmail, "Please enter a valid email address")
	}
	return nil
}

func required(field, value, message string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, ErrFieldRequired, message)
	}
	return nil
}

// checkPassword applies the local policy. userInputs are fed to the
// strength estimator so that passwords built from the name or email score low.
func checkPassword(cfg PasswordConfig, password string, userInputs ...string) error {
	if password == "" {
		return invalid("password", ErrFieldRequired, "Password is required")
	}
	if utf8.RuneCountInString(password) < cfg.MinLength {
		return invalid("password", ErrWeakPassword,
			"Password must be at least "+strconv.Itoa(cfg.MinLength)+" characters")
	}
	if cfg.MinStrengthScore > 0 {
		inputs := make([]string, 0, len(userInputs))
		for _, in := range userInputs {
			if in != "" {
				inputs = append(inputs, in)
			}
		}
		if zxcvbn.PasswordStrength(password, inputs).Score < cfg.MinStrengthScore {
			return invalid("password", ErrWeakPassword, "Password is too weak")
		}
	}
	return nil
}

func checkConfirmation(password, confirm string) error {
	if password != confirm {
		return invalid("confirmPassword", ErrPasswordMismatch, "Passwords do not match")
	}
	return nil
}

func validateOTP(code string, digits int) error {
	if len(code) != digits {
		return invalid("otp", ErrInvalidOTP, "Please enter the "+strconv.Itoa(digits)+"-digit code")
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return invalid("otp", ErrInvalidOTP, "Please enter the "+strconv.Itoa(digits)+"-digit code")
		}
	}
	return nil
}
