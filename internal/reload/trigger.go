// Package reload signals the consuming service to pick up rotated secrets.
// By the time the trigger fires, the secret change is already durable:
// reload failures are warnings, never rotation failures.
package reload

import (
	"context"
	"errors"
	"time"
)

// HealthStatus is the outcome of waiting for the service after a reload.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusUnknown   HealthStatus = "unknown"
)

// ErrHealthTimeout is returned when the service did not become healthy
// within the wait bound. Non-fatal: reported as a warning by callers.
var ErrHealthTimeout = errors.New("service did not become healthy before the deadline")

// Trigger is the deployment layer's contract: query, recreate, and wait on
// the consuming service by name.
type Trigger interface {
	// IsRunning reports whether the named service currently runs.
	IsRunning(ctx context.Context, service string) (bool, error)

	// RestartGraceful recreates the service so it re-reads its secrets,
	// without downtime to dependents.
	RestartGraceful(ctx context.Context, service string) error

	// WaitHealthy polls the service's health until it reports healthy or
	// the timeout elapses (ErrHealthTimeout).
	WaitHealthy(ctx context.Context, service string, timeout time.Duration) (HealthStatus, error)
}
