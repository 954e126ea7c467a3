package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// WithClaims returns a new context with the given claims.
// This is primarily for testing purposes.
func WithClaims(ctx context.Context, claims *OrchestratorClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// NewTestClaims creates an OrchestratorClaims with the given subject and
// environment. This is primarily for testing purposes.
func NewTestClaims(orchestratorID, environment string) *OrchestratorClaims {
	return &OrchestratorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: orchestratorID,
		},
		Environment: environment,
	}
}
