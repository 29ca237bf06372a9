package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENROUTER_MODEL", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openrouter", c.DefaultProvider)
	assert.Equal(t, 0.2, c.Temperature)
	assert.Equal(t, 3, c.RetryMaxAttempts)
	assert.Equal(t, ":8080", c.ListenAddr)
	assert.Equal(t, []string{"*"}, c.CORSOrigins)
	assert.Equal(t, 30, c.SessionTTLMin)
	assert.Empty(t, c.APIKey)
}

func TestLoadOpenRouterEnvAndOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("OPENROUTER_MODEL", "openai/gpt-4o-mini")
	t.Setenv("AGS_CURRENCY", "EUR")
	t.Setenv("AGS_SENTRY_DSN", "https://key@sentry.example/1")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-or-test", c.APIKey)
	assert.Equal(t, "openai/gpt-4o-mini", c.DefaultModel)
	assert.Equal(t, "EUR", c.Currency)
	assert.Equal(t, "https://key@sentry.example/1", c.SentryDSN)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.Unsetenv("OPENROUTER_API_KEY"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENROUTER_API_KEY=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("OPENROUTER_API_KEY") })

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", c.APIKey)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "config.yaml")
	in := &Global{DefaultProvider: "ollama", DefaultModel: "mistral:7b-instruct", Temperature: 0.4, Currency: "USD", MaxTokens: 256}
	require.NoError(t, Save(in, path))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", out.DefaultProvider)
	assert.Equal(t, "mistral:7b-instruct", out.DefaultModel)
	assert.Equal(t, 0.4, out.Temperature)
	assert.Equal(t, "USD", out.Currency)
	assert.Equal(t, 256, out.MaxTokens)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
