package tokenstore

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultAccessTTL is the fixed lifetime of a persisted access token.
	DefaultAccessTTL = 7 * 24 * time.Hour
	// DefaultRefreshTTL is the fixed lifetime of a persisted refresh token.
	DefaultRefreshTTL = 30 * 24 * time.Hour

	// DefaultAccessName is the cookie name of the access token.
	DefaultAccessName = "token"
	// DefaultRefreshName is the cookie name of the refresh token.
	DefaultRefreshName = "refreshToken"
)

var (
	// ErrUnavailable is returned when a backend cannot be reached.
	ErrUnavailable = errors.New("token store unavailable")
	// ErrEmptyToken is returned by Set when no access token is supplied.
	ErrEmptyToken = errors.New("empty access token")
)

// Tokens is the pair of credentials persisted for one client.
type Tokens struct {
	Access  string
	Refresh string
}

// Empty reports whether no access token is present.
func (t Tokens) Empty() bool {
	return t.Access == ""
}

// Store is the single set/get/clear contract for token persistence.
//
// Get returns the zero Tokens and a nil error when nothing is stored.
// Clear removes both the access and the refresh token.
type Store interface {
	Set(ctx context.Context, tokens Tokens) error
	Get(ctx context.Context) (Tokens, error)
	Clear(ctx context.Context) error
}

// TTLConfig holds the expiry applied to each token kind.
type TTLConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (c TTLConfig) withDefaults() TTLConfig {
	if c.AccessTTL <= 0 {
		c.AccessTTL = DefaultAccessTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = DefaultRefreshTTL
	}
	return c
}
