package authflow

import (
	"context"

	"github.com/MrEthical07/authflow/api"
)

type clientIDContextKey struct{}

// WithClientID attaches the browser-client identifier to ctx. The HTTP
// layer uses it to find the Controller that owns a request.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDContextKey{}, clientID)
}

// ClientIDFromContext returns the identifier set by WithClientID.
func ClientIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(clientIDContextKey{}).(string)
	return id
}

// WithRequestID pins the X-Request-ID sent with every backend call made
// under ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return api.WithRequestID(ctx, id)
}
