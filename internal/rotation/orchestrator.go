// Package rotation drives the credential lifecycle: first-time
// initialization and the backup → input → validate → atomic-write →
// metadata-update → reload sequence for one or all credentials.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/systmms/keyops/internal/credential"
	kerrors "github.com/systmms/keyops/internal/errors"
	"github.com/systmms/keyops/internal/ledger"
	"github.com/systmms/keyops/internal/logging"
	"github.com/systmms/keyops/internal/prompt"
	"github.com/systmms/keyops/internal/reload"
	"github.com/systmms/keyops/internal/secure"
)

// SecretStore is the subset of the file store the orchestrator drives.
type SecretStore interface {
	Read(name string) (string, error)
	Write(name, value string) error
	Backup(name string) (string, error)
	Initialized() bool
	MarkInitialized() error
	Lock() (func(), error)
}

// Ledger is the subset of the metadata ledger the orchestrator drives.
type Ledger interface {
	Load() (*ledger.Document, error)
	Create(createdAt time.Time) error
	UpdateCredential(name string, createdAt time.Time, format, service string) error
	UpdateGlobal(createdAt time.Time) error
	Save(doc *ledger.Document) error
}

// Result records one successful credential rotation.
type Result struct {
	Credential string    `json:"credential"`
	Service    string    `json:"service"`
	BackupPath string    `json:"backup_path,omitempty"`
	RotatedAt  time.Time `json:"rotated_at"`
}

// Summary enumerates exactly what a run changed: which credentials were
// rotated, where their backups were written, and how the reload went.
type Summary struct {
	Rotated         []Result            `json:"rotated"`
	GlobalUpdated   bool                `json:"global_updated"`
	ReloadAttempted bool                `json:"reload_attempted"`
	Health          reload.HealthStatus `json:"health,omitempty"`
	Warnings        []string            `json:"warnings,omitempty"`
}

// Orchestrator sequences lifecycle runs. Strictly sequential: one credential
// at a time, one run at a time (enforced by the store lock).
type Orchestrator struct {
	store    SecretStore
	ledger   Ledger
	prompter prompt.Prompter
	trigger  reload.Trigger
	logger   *logging.Logger
	service  string
	healthTO time.Duration

	now func() time.Time
}

// New creates an orchestrator. service is the consuming service's name for
// the reload trigger; healthTimeout bounds the post-restart health wait.
func New(store SecretStore, led Ledger, prompter prompt.Prompter, trigger reload.Trigger,
	logger *logging.Logger, service string, healthTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		store:    store,
		ledger:   led,
		prompter: prompter,
		trigger:  trigger,
		logger:   logger,
		service:  service,
		healthTO: healthTimeout,
		now:      time.Now,
	}
}

// RotateAll rotates every catalog credential in fixed order. The run aborts
// on the first failed credential: earlier rotations stay in place (each one
// was individually complete and durable) and the summary reports them; no
// rollback is attempted. The global created_at/rotate_by pair advances only
// after all credentials succeeded, and the reload fires once at the end.
func (o *Orchestrator) RotateAll(ctx context.Context) (*Summary, error) {
	release, err := o.store.Lock()
	if err != nil {
		return nil, err
	}
	defer release()

	// Precondition is checked under the lock so a concurrent init cannot
	// slip between the check and the first rotation.
	if _, err := o.ledger.Load(); err != nil {
		return nil, notInitialized(err)
	}

	summary := &Summary{}
	for _, cred := range credential.Catalog() {
		result, err := o.rotateCredential(ctx, cred)
		if err != nil {
			return summary, err
		}
		summary.Rotated = append(summary.Rotated, *result)
	}

	if err := o.ledger.UpdateGlobal(o.now()); err != nil {
		return summary, fmt.Errorf("all credentials rotated, but the global rotation deadline was not updated: %w", err)
	}
	summary.GlobalUpdated = true

	o.reloadService(ctx, summary)
	return summary, nil
}

// RotateOne runs the same per-credential state machine for a single named
// credential, then reloads the service.
func (o *Orchestrator) RotateOne(ctx context.Context, name string) (*Summary, error) {
	cred, ok := credential.ByName(name)
	if !ok {
		return nil, kerrors.UserError{
			Message:    fmt.Sprintf("Unknown credential '%s'", name),
			Suggestion: "Valid credentials: " + strings.Join(credential.Names(), ", "),
		}
	}

	release, err := o.store.Lock()
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := o.ledger.Load(); err != nil {
		return nil, notInitialized(err)
	}

	summary := &Summary{}
	result, err := o.rotateCredential(ctx, cred)
	if err != nil {
		return summary, err
	}
	summary.Rotated = append(summary.Rotated, *result)

	o.reloadService(ctx, summary)
	return summary, nil
}

// rotateCredential runs the per-credential state machine. A failure at the
// backup or input step leaves the live secret and the ledger untouched; the
// old value stays authoritative.
func (o *Orchestrator) rotateCredential(ctx context.Context, cred credential.Credential) (*Result, error) {
	started := o.now()
	recordRotationStarted(cred.Name)

	o.logger.Step("Backing up %s", cred.Name)
	backupPath, err := o.store.Backup(cred.Name)
	if err != nil {
		recordRotationCompleted(cred.Name, "failed", o.now().Sub(started))
		if errors.Is(err, kerrors.ErrNotFound) {
			err = fmt.Errorf("%w: %s", kerrors.ErrNoExistingSecret, cred.Name)
		}
		return nil, kerrors.StepError{Credential: cred.Name, Step: "backup", Err: err}
	}
	o.logger.Debug("backup written to %s", backupPath)

	value, err := o.prompter.Prompt(ctx, cred)
	if err != nil {
		recordRotationCompleted(cred.Name, "failed", o.now().Sub(started))
		return nil, kerrors.StepError{Credential: cred.Name, Step: "input", Err: err}
	}
	defer value.Destroy()

	// The ledger entry is updated before the secret swap, and rolled back if
	// the swap fails, so a secret file can never end up newer than its
	// metadata.
	snapshot, err := o.ledger.Load()
	if err != nil {
		recordRotationCompleted(cred.Name, "failed", o.now().Sub(started))
		return nil, kerrors.StepError{Credential: cred.Name, Step: "metadata", Err: err}
	}

	rotatedAt := o.now()
	o.logger.Step("Updating metadata for %s", cred.Name)
	if err := o.ledger.UpdateCredential(cred.Name, rotatedAt, cred.Format, cred.Service); err != nil {
		recordRotationCompleted(cred.Name, "failed", o.now().Sub(started))
		return nil, kerrors.StepError{Credential: cred.Name, Step: "metadata", Err: err}
	}

	o.logger.Step("Writing %s", cred.Name)
	if err := o.writeSecret(cred.Name, value); err != nil {
		if restoreErr := o.ledger.Save(snapshot); restoreErr != nil {
			o.logger.Error("Could not restore metadata for %s after failed write: %v", cred.Name, restoreErr)
		}
		recordRotationCompleted(cred.Name, "failed", o.now().Sub(started))
		return nil, kerrors.StepError{Credential: cred.Name, Step: "write", Err: err}
	}

	recordRotationCompleted(cred.Name, "success", o.now().Sub(started))
	o.logger.Info("Rotated %s", cred.Name)
	return &Result{
		Credential: cred.Name,
		Service:    cred.Service,
		BackupPath: backupPath,
		RotatedAt:  rotatedAt,
	}, nil
}

// writeSecret unseals the accepted value just long enough to hand it to the
// store's atomic write.
func (o *Orchestrator) writeSecret(name string, value *secure.Buffer) error {
	locked, err := value.Open()
	if err != nil {
		return fmt.Errorf("failed to open sealed value: %w", err)
	}
	defer locked.Destroy()
	return o.store.Write(name, locked.String())
}

// notInitialized converts a missing-ledger error into operator guidance.
func notInitialized(err error) error {
	if errors.Is(err, kerrors.ErrUninitialized) {
		return kerrors.UserError{
			Message:    "Secrets are not initialized",
			Suggestion: "Run 'keyops init' to create all credentials first",
			Err:        err,
		}
	}
	return err
}

// reloadService signals the consuming service once per successful run.
// Failures here are warnings: the rotated secrets are already durable.
func (o *Orchestrator) reloadService(ctx context.Context, summary *Summary) {
	summary.ReloadAttempted = true

	running, err := o.trigger.IsRunning(ctx, o.service)
	if err != nil {
		o.warn(summary, "Could not query service %s: %v", o.service, err)
		return
	}
	if !running {
		o.warn(summary, "Service %s is not running; skipping reload", o.service)
		return
	}

	if err := o.trigger.RestartGraceful(ctx, o.service); err != nil {
		o.warn(summary, "Failed to restart %s: %v", o.service, err)
		return
	}

	status, err := o.trigger.WaitHealthy(ctx, o.service, o.healthTO)
	summary.Health = status
	if err != nil {
		o.warn(summary, "Health check for %s: %v", o.service, err)
		return
	}
	o.logger.Info("Service %s is healthy with the new secrets", o.service)
}

func (o *Orchestrator) warn(summary *Summary, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	summary.Warnings = append(summary.Warnings, msg)
	o.logger.Warn("%s", msg)
}
