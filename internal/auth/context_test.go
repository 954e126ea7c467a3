package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestClaims(t *testing.T) {
	t.Run("returns nil for empty context", func(t *testing.T) {
		ctx := context.Background()
		assert.Nil(t, Claims(ctx))
	})

	t.Run("returns claims from context", func(t *testing.T) {
		claims := &OrchestratorClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject: "orch_123",
			},
			Environment: "staging",
		}
		ctx := context.WithValue(context.Background(), claimsKey, claims)

		got := Claims(ctx)
		assert.NotNil(t, got)
		assert.Equal(t, "orch_123", got.Subject)
		assert.Equal(t, "staging", got.Environment)
	})
}

func TestOrchestratorID(t *testing.T) {
	t.Run("returns empty string for empty context", func(t *testing.T) {
		ctx := context.Background()
		assert.Equal(t, "", OrchestratorID(ctx))
	})

	t.Run("returns subject from claims", func(t *testing.T) {
		claims := &OrchestratorClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject: "orch_abc123",
			},
		}
		ctx := context.WithValue(context.Background(), claimsKey, claims)
		assert.Equal(t, "orch_abc123", OrchestratorID(ctx))
	})
}

func TestEnvironment(t *testing.T) {
	t.Run("returns empty string for empty context", func(t *testing.T) {
		ctx := context.Background()
		assert.Equal(t, "", Environment(ctx))
	})

	t.Run("returns environment from claims", func(t *testing.T) {
		claims := &OrchestratorClaims{
			Environment: "production",
		}
		ctx := context.WithValue(context.Background(), claimsKey, claims)
		assert.Equal(t, "production", Environment(ctx))
	})
}

func TestIsAuthenticated(t *testing.T) {
	t.Run("returns false for empty context", func(t *testing.T) {
		ctx := context.Background()
		assert.False(t, IsAuthenticated(ctx))
	})

	t.Run("returns true when claims present", func(t *testing.T) {
		claims := &OrchestratorClaims{}
		ctx := context.WithValue(context.Background(), claimsKey, claims)
		assert.True(t, IsAuthenticated(ctx))
	})
}

func TestHasScope(t *testing.T) {
	t.Run("returns false for empty context", func(t *testing.T) {
		ctx := context.Background()
		assert.False(t, HasScope(ctx, "sessions:write"))
	})

	t.Run("returns false for missing scope", func(t *testing.T) {
		claims := &OrchestratorClaims{
			Scopes: []string{"sessions:write", "interactions:write"},
		}
		ctx := context.WithValue(context.Background(), claimsKey, claims)
		assert.False(t, HasScope(ctx, "dashboard:read"))
	})

	t.Run("returns true for existing scope", func(t *testing.T) {
		claims := &OrchestratorClaims{
			Scopes: []string{"sessions:write", "interactions:write"},
		}
		ctx := context.WithValue(context.Background(), claimsKey, claims)
		assert.True(t, HasScope(ctx, "sessions:write"))
	})
}

func TestExtractBearerToken(t *testing.T) {
	t.Run("missing header", func(t *testing.T) {
		r := newRequestWithAuth("")
		assert.Equal(t, "", extractBearerToken(r))
	})

	t.Run("wrong scheme", func(t *testing.T) {
		r := newRequestWithAuth("Basic dXNlcjpwYXNz")
		assert.Equal(t, "", extractBearerToken(r))
	})

	t.Run("bearer token", func(t *testing.T) {
		r := newRequestWithAuth("Bearer abc.def.ghi")
		assert.Equal(t, "abc.def.ghi", extractBearerToken(r))
	})

	t.Run("case-insensitive scheme", func(t *testing.T) {
		r := newRequestWithAuth("bearer token123")
		assert.Equal(t, "token123", extractBearerToken(r))
	})
}
