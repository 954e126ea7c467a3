package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fieldscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FIELDSCOPE_ADDR", "FIELDSCOPE_RATE_LIMIT", "FIELDSCOPE_RATE_BURST",
		"DATABASE_URL", "FIELDSCOPE_AUTH_ISSUER", "FIELDSCOPE_AUTH_AUDIENCE",
		"GOOGLE_API_KEY", "FIELDSCOPE_LLM_MODEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 50.0, cfg.Server.RateLimit)
	assert.Empty(t, cfg.Database.URL)
}

func TestLoadMissingFileIsFine(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  addr: ":9090"
  rate_limit: 10
  rate_burst: 20
database:
  url: postgres://localhost/fieldscope
auth:
  issuer: https://auth.example.com
  audience: fieldscope-api
llm:
  api_key: file-key
  model: gemini-2.5-pro
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 10.0, cfg.Server.RateLimit)
	assert.Equal(t, 20, cfg.Server.RateBurst)
	assert.Equal(t, "postgres://localhost/fieldscope", cfg.Database.URL)
	assert.Equal(t, "https://auth.example.com", cfg.Auth.Issuer)
	assert.Equal(t, "fieldscope-api", cfg.Auth.Audience)
	assert.Equal(t, "file-key", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  addr: ":9090"
database:
  url: postgres://file/db
`)
	t.Setenv("FIELDSCOPE_ADDR", ":7070")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("FIELDSCOPE_RATE_LIMIT", "2.5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
	assert.Equal(t, 2.5, cfg.Server.RateLimit)
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server: [not a map")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
