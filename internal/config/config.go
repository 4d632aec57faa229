// Package config loads keyops.yaml. Every field has a default; the file is
// only needed to override the deployment's names and paths.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/systmms/keyops/internal/logging"
)

// Config holds the runtime configuration shared by all commands.
type Config struct {
	Path           string
	Logger         *logging.Logger
	NonInteractive bool
	Definition     *Definition

	// SecretsDirOverride is set by the --secrets-dir flag and wins over
	// both the config file and the environment.
	SecretsDirOverride string
}

// Definition is the keyops.yaml structure.
type Definition struct {
	// SecretsDir is where secret files, backups and the ledger live.
	SecretsDir string `yaml:"secrets_dir"`

	Service ServiceConfig `yaml:"service"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServiceConfig names the consuming service and how to judge its health
// after a reload.
type ServiceConfig struct {
	// Name is the container name passed to the reload trigger.
	Name string `yaml:"name"`

	// HealthURL, when set, is probed over HTTP instead of the container
	// healthcheck.
	HealthURL string `yaml:"health_url"`

	// HealthTimeoutSeconds bounds the post-restart health wait.
	HealthTimeoutSeconds int `yaml:"health_timeout_seconds"`
}

// MetricsConfig configures the expiry watcher's metrics endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

const (
	defaultSecretsDir    = "secrets"
	defaultServiceName   = "llm-bot"
	defaultHealthTimeout = 60
	defaultMetricsListen = ":9465"
)

// Load parses the config file at cfg.Path. A missing file is not an error;
// defaults apply. Called lazily by each command's RunE.
func (c *Config) Load() error {
	def := &Definition{}

	data, err := os.ReadFile(c.Path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, def); err != nil {
			return fmt.Errorf("failed to parse %s: %w", c.Path, err)
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return fmt.Errorf("failed to read %s: %w", c.Path, err)
	}

	if def.SecretsDir == "" {
		def.SecretsDir = defaultSecretsDir
	}
	if env := os.Getenv("KEYOPS_SECRETS_DIR"); env != "" {
		def.SecretsDir = env
	}
	if c.SecretsDirOverride != "" {
		def.SecretsDir = c.SecretsDirOverride
	}
	if def.Service.Name == "" {
		def.Service.Name = defaultServiceName
	}
	if def.Service.HealthTimeoutSeconds <= 0 {
		def.Service.HealthTimeoutSeconds = defaultHealthTimeout
	}
	if def.Metrics.Listen == "" {
		def.Metrics.Listen = defaultMetricsListen
	}

	c.Definition = def
	return nil
}

// HealthTimeout returns the configured health wait as a duration.
func (d *Definition) HealthTimeout() time.Duration {
	return time.Duration(d.Service.HealthTimeoutSeconds) * time.Second
}
