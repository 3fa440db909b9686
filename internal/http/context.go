package http

import (
	"context"

	"github.com/example/hangr/internal/application"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	clientKeyContextKey contextKey = "client_key"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

func principalPtr(ctx context.Context) *application.Principal {
	if principal, ok := PrincipalFromContext(ctx); ok {
		return &principal
	}
	return nil
}

// ContextWithClientKey attaches the anonymous client key of the request.
func ContextWithClientKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, clientKeyContextKey, key)
}

// ClientKeyFromContext returns the client key attached by ClientSession.
func ClientKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(clientKeyContextKey).(string)
	return key
}
