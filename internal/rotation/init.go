package rotation

import (
	"context"
	"errors"
	"fmt"

	"github.com/systmms/keyops/internal/credential"
	kerrors "github.com/systmms/keyops/internal/errors"
)

// Initialize performs first-time population of every credential and the
// metadata ledger. A store that already completed initialization is left
// completely untouched unless force is set; forced re-initialization backs
// up any existing secret before overwriting it.
func (o *Orchestrator) Initialize(ctx context.Context, force bool) (*Summary, error) {
	if o.store.Initialized() && !force {
		return nil, kerrors.UserError{
			Message:    "Secrets are already initialized",
			Suggestion: "Re-run with --force to overwrite every credential",
			Err:        kerrors.ErrAlreadyInitialized,
		}
	}

	release, err := o.store.Lock()
	if err != nil {
		return nil, err
	}
	defer release()

	// A forced re-init (or a re-run after a partial one) keeps the existing
	// document and replaces entries one by one as each credential is
	// actually re-entered. An aborted run then never strips metadata from a
	// secret that still holds its old value. Only a missing ledger is
	// created fresh.
	preexisting := true
	if _, err := o.ledger.Load(); err != nil {
		if !errors.Is(err, kerrors.ErrUninitialized) {
			return nil, err
		}
		preexisting = false
		if err := o.ledger.Create(o.now()); err != nil {
			return nil, fmt.Errorf("failed to create metadata ledger: %w", err)
		}
	}

	summary := &Summary{}
	for _, cred := range credential.Catalog() {
		result, err := o.initializeCredential(ctx, cred)
		if err != nil {
			return summary, err
		}
		summary.Rotated = append(summary.Rotated, *result)
	}

	// Re-initialization over an existing ledger is a full refresh, so the
	// global deadline advances the same way a complete rotate-all does. A
	// fresh ledger already carries run-start timestamps from Create.
	if preexisting {
		if err := o.ledger.UpdateGlobal(o.now()); err != nil {
			return summary, fmt.Errorf("all credentials initialized, but the global rotation deadline was not updated: %w", err)
		}
		summary.GlobalUpdated = true
	}

	if err := o.store.MarkInitialized(); err != nil {
		return summary, err
	}

	o.logger.Info("All %d credentials initialized", len(summary.Rotated))
	return summary, nil
}

func (o *Orchestrator) initializeCredential(ctx context.Context, cred credential.Credential) (*Result, error) {
	var backupPath string
	if _, err := o.store.Read(cred.Name); err == nil {
		// Forced re-init over an existing secret: preserve the old value
		// the same way rotation would.
		path, err := o.store.Backup(cred.Name)
		if err != nil {
			return nil, kerrors.StepError{Credential: cred.Name, Step: "backup", Err: err}
		}
		backupPath = path
	}

	value, err := o.prompter.Prompt(ctx, cred)
	if err != nil {
		return nil, kerrors.StepError{Credential: cred.Name, Step: "input", Err: err}
	}
	defer value.Destroy()

	createdAt := o.now()
	if err := o.writeSecret(cred.Name, value); err != nil {
		return nil, kerrors.StepError{Credential: cred.Name, Step: "write", Err: err}
	}
	if err := o.ledger.UpdateCredential(cred.Name, createdAt, cred.Format, cred.Service); err != nil {
		return nil, kerrors.StepError{Credential: cred.Name, Step: "metadata", Err: err}
	}

	o.logger.Info("Initialized %s", cred.Name)
	return &Result{
		Credential: cred.Name,
		Service:    cred.Service,
		BackupPath: backupPath,
		RotatedAt:  createdAt,
	}, nil
}
