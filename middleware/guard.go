package middleware

import (
	"context"
	"net/http"
)

// Authorizer answers route questions for one client session.
// *authflow.Controller implements it.
type Authorizer interface {
	IsAuthenticated() bool
	HasAnyRole(roles ...string) bool
	Authorize(path string) (bool, string)
}

// Resolver finds the Authorizer for the client that sent r.
type Resolver func(r *http.Request) (Authorizer, error)

type authorizerContextKey struct{}

// AuthorizerFromContext returns the Authorizer a guard resolved for the
// current request.
func AuthorizerFromContext(ctx context.Context) (Authorizer, bool) {
	a, ok := ctx.Value(authorizerContextKey{}).(Authorizer)
	return a, ok
}

func withAuthorizer(r *http.Request, a Authorizer) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), authorizerContextKey{}, a))
}

// Guard redirects with 302 Found when the resolved Authorizer denies the
// request path. The redirect target is the one Authorize reports, or home
// when the client cannot be resolved. denied may be nil; it runs before
// the redirect is written.
func Guard(resolve Resolver, home string, denied func(r *http.Request)) func(http.Handler) http.Handler {
	if home == "" {
		home = "/"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, err := resolveAuthorizer(resolve, r)
			if err != nil {
				redirect(w, r, home, denied)
				return
			}

			ok, target := a.Authorize(r.URL.Path)
			if !ok {
				if target == "" {
					target = home
				}
				redirect(w, r, target, denied)
				return
			}

			next.ServeHTTP(w, withAuthorizer(r, a))
		})
	}
}

func redirect(w http.ResponseWriter, r *http.Request, target string, denied func(*http.Request)) {
	if denied != nil {
		denied(r)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func resolveAuthorizer(resolve Resolver, r *http.Request) (Authorizer, error) {
	if resolve == nil {
		return nil, errNoResolver
	}
	a, err := resolve(r)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errNoAuthorizer
	}
	return a, nil
}
