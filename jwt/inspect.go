package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned for tokens that are not three-segment JWTs.
var ErrNotJWT = errors.New("token is not a jwt")

// Claims is the subset of registered claims the client cares about.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Roles     []string
}

// HasExpiry reports whether the token carried an exp claim.
func (c *Claims) HasExpiry() bool {
	return c != nil && !c.ExpiresAt.IsZero()
}

// Expired reports whether exp is before now minus leeway. Tokens without
// an exp claim never expire client-side.
func (c *Claims) Expired(now time.Time, leeway time.Duration) bool {
	if !c.HasExpiry() {
		return false
	}
	return c.ExpiresAt.Before(now.Add(-leeway))
}

type inspectedClaims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser(jwt.WithoutClaimsValidation())

// Inspect decodes token without verifying its signature.
func Inspect(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return nil, ErrNotJWT
	}

	var claims inspectedClaims
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return nil, errors.Join(ErrNotJWT, err)
	}

	out := &Claims{
		Subject: claims.Subject,
		Roles:   claims.Roles,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
