package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg := &Config{Path: filepath.Join(t.TempDir(), "keyops.yaml")}

	require.NoError(t, cfg.Load())
	assert.Equal(t, "secrets", cfg.Definition.SecretsDir)
	assert.Equal(t, "llm-bot", cfg.Definition.Service.Name)
	assert.Equal(t, 60*time.Second, cfg.Definition.HealthTimeout())
	assert.Equal(t, ":9465", cfg.Definition.Metrics.Listen)
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyops.yaml")
	content := `
secrets_dir: /opt/bot/secrets
service:
  name: telegram-bot
  health_url: http://127.0.0.1:8080/health
  health_timeout_seconds: 30
metrics:
  listen: 127.0.0.1:9900
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := &Config{Path: path}
	require.NoError(t, cfg.Load())

	assert.Equal(t, "/opt/bot/secrets", cfg.Definition.SecretsDir)
	assert.Equal(t, "telegram-bot", cfg.Definition.Service.Name)
	assert.Equal(t, "http://127.0.0.1:8080/health", cfg.Definition.Service.HealthURL)
	assert.Equal(t, 30*time.Second, cfg.Definition.HealthTimeout())
	assert.Equal(t, "127.0.0.1:9900", cfg.Definition.Metrics.Listen)
}

func TestLoadEnvOverridesSecretsDir(t *testing.T) {
	t.Setenv("KEYOPS_SECRETS_DIR", "/run/keyops")

	cfg := &Config{Path: filepath.Join(t.TempDir(), "keyops.yaml")}
	require.NoError(t, cfg.Load())
	assert.Equal(t, "/run/keyops", cfg.Definition.SecretsDir)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyops.yaml")
	require.NoError(t, os.WriteFile(path, []byte("secrets_dir: [unclosed"), 0o644))

	cfg := &Config{Path: path}
	assert.Error(t, cfg.Load())
}

func TestLoadFlagOverrideWinsOverEnv(t *testing.T) {
	t.Setenv("KEYOPS_SECRETS_DIR", "/run/keyops")

	cfg := &Config{
		Path:               filepath.Join(t.TempDir(), "keyops.yaml"),
		SecretsDirOverride: "/tmp/override",
	}
	require.NoError(t, cfg.Load())
	assert.Equal(t, "/tmp/override", cfg.Definition.SecretsDir)
}
