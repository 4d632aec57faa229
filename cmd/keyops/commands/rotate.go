package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/keyops/internal/config"
	"github.com/systmms/keyops/internal/credential"
	"github.com/systmms/keyops/internal/rotation"
)

func NewRotateCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rotate [credential]",
		Short: "Rotate one credential, or all of them",
		Long: `Rotate credentials: back up the current value, collect and validate a new
one, replace the secret file atomically, update the metadata ledger, and
reload the consuming service once at the end.

With no argument every credential is rotated in a fixed order and the global
rotation deadline advances by 90 days. A failure aborts the run; credentials
rotated before the failure stay rotated and are listed in the summary.`,
		Example: `  # Rotate everything ahead of the 90 day deadline
  keyops rotate

  # Rotate a single leaked key
  keyops rotate telegram_bot_token`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: credential.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			if err := requireInteractive(cfg, "rotate"); err != nil {
				return err
			}

			orch, err := buildOrchestrator(cfg)
			if err != nil {
				return err
			}

			var summary *rotation.Summary
			if len(args) == 1 {
				summary, err = orch.RotateOne(cmd.Context(), args[0])
			} else {
				summary, err = orch.RotateAll(cmd.Context())
			}

			// Even an aborted run reports what it did complete.
			if summary != nil && len(summary.Rotated) > 0 {
				printSummary(cmd, "rotated", summary)
			}
			return err
		},
	}

	return cmd
}

// printSummary enumerates exactly which credentials changed and where their
// backups were written.
func printSummary(cmd *cobra.Command, verb string, summary *rotation.Summary) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "\n%d credential(s) %s:\n", len(summary.Rotated), verb)
	for _, r := range summary.Rotated {
		fmt.Fprintf(out, "  %-20s %s", r.Credential, r.RotatedAt.Format("2006-01-02 15:04:05 MST"))
		if r.BackupPath != "" {
			fmt.Fprintf(out, "  backup: %s", r.BackupPath)
		}
		fmt.Fprintln(out)
	}
	if summary.GlobalUpdated {
		fmt.Fprintln(out, "Global rotation deadline advanced by 90 days.")
	}
}
