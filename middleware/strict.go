package middleware

import (
	"errors"
	"net/http"
)

var (
	errNoResolver   = errors.New("middleware: nil resolver")
	errNoAuthorizer = errors.New("middleware: no authorizer for request")
)

// RequireAuthenticated answers 401 instead of redirecting. It suits JSON
// endpoints where a redirect would be followed silently by the caller.
func RequireAuthenticated(resolve Resolver) func(http.Handler) http.Handler {
	return RequireRole(resolve)
}

// RequireRole answers 401 for anonymous clients and 403 for authenticated
// clients holding none of roles. With no roles only authentication is
// checked.
func RequireRole(resolve Resolver, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, err := resolveAuthorizer(resolve, r)
			if err != nil || !a.IsAuthenticated() {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if len(roles) > 0 && !a.HasAnyRole(roles...) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, withAuthorizer(r, a))
		})
	}
}
