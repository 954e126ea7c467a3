package auth

import (
	"context"
)

type contextKey int

const (
	claimsKey contextKey = iota
)

// Claims returns the orchestrator claims from context, or nil if not
// authenticated.
func Claims(ctx context.Context) *OrchestratorClaims {
	claims, _ := ctx.Value(claimsKey).(*OrchestratorClaims)
	return claims
}

// OrchestratorID returns the token subject from context, or empty string
// if not authenticated.
func OrchestratorID(ctx context.Context) string {
	claims := Claims(ctx)
	if claims == nil {
		return ""
	}
	return claims.Subject
}

// Environment returns the orchestrator's environment from context, or
// empty string if not available.
func Environment(ctx context.Context) string {
	claims := Claims(ctx)
	if claims == nil {
		return ""
	}
	return claims.Environment
}

// IsAuthenticated returns true if the request has valid authentication.
func IsAuthenticated(ctx context.Context) bool {
	return Claims(ctx) != nil
}

// HasScope checks if the token carries a specific scope.
func HasScope(ctx context.Context, scope string) bool {
	claims := Claims(ctx)
	if claims == nil {
		return false
	}
	for _, s := range claims.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
