package reload

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/systmms/keyops/internal/logging"
)

const defaultPollInterval = 2 * time.Second

// DockerTrigger drives the docker CLI to restart the consuming container
// and polls its health. When HealthURL is set, health is an HTTP probe;
// otherwise the container's own healthcheck status is inspected.
type DockerTrigger struct {
	logger       *logging.Logger
	healthURL    string
	pollInterval time.Duration
	httpClient   *http.Client

	// runCommand is swapped out by tests.
	runCommand func(ctx context.Context, name string, args ...string) (string, error)
}

// NewDockerTrigger creates a trigger using the docker CLI. healthURL is
// optional; when empty the container healthcheck is used.
func NewDockerTrigger(logger *logging.Logger, healthURL string) *DockerTrigger {
	return &DockerTrigger{
		logger:       logger,
		healthURL:    healthURL,
		pollInterval: defaultPollInterval,
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		runCommand:   runDockerCommand,
	}
}

func runDockerCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// IsRunning inspects the container's running state. Existence is checked
// first with `docker ps`, which exits zero whether or not the name matches,
// so a missing container is detected from empty output rather than by
// parsing version-dependent error text.
func (d *DockerTrigger) IsRunning(ctx context.Context, service string) (bool, error) {
	// Container names carry a leading slash internally; the anchored filter
	// needs it for an exact match.
	out, err := d.runCommand(ctx, "docker", "ps", "-aq", "--filter", "name=^/"+service+"$")
	if err != nil {
		return false, err
	}
	if out == "" {
		return false, nil
	}

	out, err = d.runCommand(ctx, "docker", "inspect", "--type", "container", "-f", "{{.State.Running}}", service)
	if err != nil {
		return false, err
	}
	return out == "true", nil
}

// RestartGraceful restarts the container with a stop grace period so the
// service can drain in-flight work before re-reading its secrets.
func (d *DockerTrigger) RestartGraceful(ctx context.Context, service string) error {
	d.logger.Step("Restarting %s", service)
	if _, err := d.runCommand(ctx, "docker", "restart", "-t", "10", service); err != nil {
		return fmt.Errorf("failed to restart %s: %w", service, err)
	}
	return nil
}

// WaitHealthy polls until the service is healthy or the timeout elapses.
// The bound is enforced here; exceeding it is reported with ErrHealthTimeout
// and left to the caller to treat as a warning.
func (d *DockerTrigger) WaitHealthy(ctx context.Context, service string, timeout time.Duration) (HealthStatus, error) {
	deadline := time.Now().Add(timeout)

	for {
		healthy, err := d.probe(ctx, service)
		if err == nil && healthy {
			return StatusHealthy, nil
		}
		if err != nil {
			d.logger.Debug("health probe for %s: %v", service, err)
		}

		if time.Now().After(deadline) {
			return StatusUnknown, fmt.Errorf("%s: %w", service, ErrHealthTimeout)
		}

		select {
		case <-ctx.Done():
			return StatusUnknown, ctx.Err()
		case <-time.After(d.pollInterval):
		}
	}
}

func (d *DockerTrigger) probe(ctx context.Context, service string) (bool, error) {
	if d.healthURL != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.healthURL, nil)
		if err != nil {
			return false, err
		}
		resp, err := d.httpClient.Do(req)
		if err != nil {
			return false, err
		}
		defer resp.Body.Close()
		return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
	}

	out, err := d.runCommand(ctx, "docker", "inspect", "-f", "{{.State.Health.Status}}", service)
	if err != nil {
		return false, err
	}
	return out == "healthy", nil
}
