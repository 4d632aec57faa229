package commands

import (
	"path/filepath"

	"github.com/systmms/keyops/internal/config"
	kerrors "github.com/systmms/keyops/internal/errors"
	"github.com/systmms/keyops/internal/ledger"
	"github.com/systmms/keyops/internal/prompt"
	"github.com/systmms/keyops/internal/reload"
	"github.com/systmms/keyops/internal/rotation"
	"github.com/systmms/keyops/internal/secretstore"
)

// openLedger returns the ledger handle inside the configured secrets dir.
func openLedger(cfg *config.Config) *ledger.Ledger {
	return ledger.New(filepath.Join(cfg.Definition.SecretsDir, ledger.Filename))
}

// buildOrchestrator wires the store, ledger, prompter and reload trigger for
// the lifecycle commands.
func buildOrchestrator(cfg *config.Config) (*rotation.Orchestrator, error) {
	store, err := secretstore.New(cfg.Definition.SecretsDir)
	if err != nil {
		return nil, err
	}

	return rotation.New(
		store,
		openLedger(cfg),
		prompt.New(cfg.Logger),
		reload.NewDockerTrigger(cfg.Logger, cfg.Definition.Service.HealthURL),
		cfg.Logger,
		cfg.Definition.Service.Name,
		cfg.Definition.HealthTimeout(),
	), nil
}

// requireInteractive refuses prompting commands under --non-interactive
// instead of blocking forever on a read that can never be answered.
func requireInteractive(cfg *config.Config, operation string) error {
	if !cfg.NonInteractive {
		return nil
	}
	return kerrors.UserError{
		Message:    operation + " needs interactive secret entry",
		Suggestion: "Re-run without --non-interactive on a terminal",
	}
}
