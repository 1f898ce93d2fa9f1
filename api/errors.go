package api

import (
	"errors"
	"net/http"
	"strconv"
)

var (
	// ErrUnauthorized matches any *Error with status 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnavailable wraps transport failures (DNS, refused connection, aborted read).
	ErrUnavailable = errors.New("auth backend unavailable")
	// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed auth backend response")
)

// Error is a non-2xx response from the backend.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return "auth backend returned " + strconv.Itoa(e.StatusCode)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e != nil && e.StatusCode == http.StatusUnauthorized
}

// Message extracts the human-readable message carried by err. Backend
// errors yield the server's message; anything else yields fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
