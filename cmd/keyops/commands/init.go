package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/keyops/internal/config"
)

func NewInitCommand(cfg *config.Config) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize all credentials and the metadata ledger",
		Long: `Populate every managed credential interactively and create the metadata
ledger that tracks creation and expiry timestamps.

Each value is validated against the provider's key format before it is
accepted. An already-initialized secrets directory is refused unless --force
is given; forced re-initialization backs up every existing value first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			if err := requireInteractive(cfg, "init"); err != nil {
				return err
			}

			orch, err := buildOrchestrator(cfg)
			if err != nil {
				return err
			}

			summary, err := orch.Initialize(cmd.Context(), force)
			if err != nil {
				return err
			}

			printSummary(cmd, "initialized", summary)
			cfg.Logger.Info("Next steps:")
			cfg.Logger.Info("  1. Start the %s service to pick up the new secrets", cfg.Definition.Service.Name)
			cfg.Logger.Info("  2. Run 'keyops check-expiry' from your scheduler to track the 90 day deadline")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an already-initialized secrets directory")

	return cmd
}
