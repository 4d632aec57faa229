package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/keyops/internal/config"
	"github.com/systmms/keyops/internal/credential"
	kerrors "github.com/systmms/keyops/internal/errors"
	"github.com/systmms/keyops/internal/expiry"
)

// statusOutput is the --format json shape.
type statusOutput struct {
	Global        expiry.Report             `json:"global"`
	Credentials   []expiry.CredentialReport `json:"credentials"`
	Uninitialized []string                  `json:"uninitialized,omitempty"`
}

func NewStatusCommand(cfg *config.Config) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show every credential's age and rotation deadline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			if format != "table" && format != "json" {
				return kerrors.UserError{
					Message:    fmt.Sprintf("unknown format %q", format),
					Suggestion: "Use --format table or --format json",
				}
			}

			doc, err := openLedger(cfg).Load()
			if err != nil {
				if errors.Is(err, kerrors.ErrUninitialized) {
					return uninitializedError(err)
				}
				return err
			}

			now := time.Now()
			global, err := expiry.Evaluate(doc, now)
			if err != nil {
				return err
			}
			credReports, err := expiry.EvaluateCredentials(doc, credential.Names(), now)
			if err != nil {
				return err
			}

			var missing []string
			for _, name := range credential.Names() {
				if _, ok := doc.Secrets[name]; !ok {
					missing = append(missing, name)
				}
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(statusOutput{
					Global:        global,
					Credentials:   credReports,
					Uninitialized: missing,
				})
			}

			printStatusTable(cmd, global, credReports, missing)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func printStatusTable(cmd *cobra.Command, global expiry.Report, reports []expiry.CredentialReport, missing []string) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "CREDENTIAL\tSERVICE\tCREATED\tEXPIRES\tDAYS LEFT\tSTATUS")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.Name,
			r.Service,
			r.Created.Format("2006-01-02"),
			r.Expires.Format("2006-01-02"),
			r.DaysRemaining,
			r.Status,
		)
	}
	for _, name := range missing {
		fmt.Fprintf(w, "%s\t-\t-\t-\t-\tuninitialized\n", name)
	}
	_ = w.Flush()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nGlobal deadline: %s (%d day(s) remaining, %s)\n",
		global.RotateBy.Format("2006-01-02"), global.DaysRemaining, global.Status)
}
