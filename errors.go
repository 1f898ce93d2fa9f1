package authflow

import "errors"

var (
	// ErrFieldRequired is returned when a required form field is empty.
	ErrFieldRequired = errors.New("required field missing")
	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrPasswordMismatch is returned when a password and its confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrWeakPassword is returned when a password fails the password policy.
	ErrWeakPassword = errors.New("password does not meet policy")
	// ErrInvalidOTP is returned when a one-time code is not exactly the configured number of digits.
	ErrInvalidOTP = errors.New("invalid one-time code")
	// ErrResetTokenMissing is returned when the reset route carries no token.
	ErrResetTokenMissing = errors.New("reset token missing")
	// ErrOAuthTokenMissing is returned when the OAuth callback carries no token.
	ErrOAuthTokenMissing = errors.New("oauth callback token missing")
	// ErrInvalidTransition is returned when an operation is not allowed from the current flow state.
	ErrInvalidTransition = errors.New("operation not allowed in current flow state")
	// ErrOperationInFlight is returned when the same operation is already running.
	ErrOperationInFlight = errors.New("operation already in flight")
	// ErrResendCooldown is returned when a new code is requested before the cooldown elapsed.
	ErrResendCooldown = errors.New("otp resend cooldown active")
	// ErrNotAuthenticated is returned by authenticated calls without a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrLoginRejected is returned when the backend answers a login with success=false or without credentials.
	ErrLoginRejected = errors.New("login rejected")
	// ErrVerificationRejected is returned when OTP verification yields no token or user.
	ErrVerificationRejected = errors.New("otp verification rejected")
	// ErrResetRejected is returned when the backend answers a reset with success=false.
	ErrResetRejected = errors.New("password reset rejected")
	// ErrSessionPersist is logged when no token store accepted a write.
	ErrSessionPersist = errors.New("session token could not be persisted")
	// ErrControllerNotReady is returned by a nil or unbuilt Controller.
	ErrControllerNotReady = errors.New("controller not initialized")
)

// ValidationError is a local validation failure. It never reaches the
// network and unwraps to one of the sentinel errors above.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func invalid(field string, err error, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

// rejection carries the backend's explanation for a 2xx response that
// still refused the operation.
type rejection struct {
	err     error
	message string
}

func reject(err error, message string) error {
	return &rejection{err: err, message: message}
}

func (r *rejection) Error() string {
	if r.message == "" {
		return r.err.Error()
	}
	return r.err.Error() + ": " + r.message
}

func (r *rejection) Unwrap() error {
	return r.err
}
