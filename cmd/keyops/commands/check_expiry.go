package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/systmms/keyops/internal/config"
	"github.com/systmms/keyops/internal/credential"
	kerrors "github.com/systmms/keyops/internal/errors"
	"github.com/systmms/keyops/internal/expiry"
)

func NewCheckExpiryCommand(cfg *config.Config) *cobra.Command {
	var (
		watch    bool
		schedule string
		listen   string
	)

	cmd := &cobra.Command{
		Use:   "check-expiry",
		Short: "Report days remaining until the rotation deadline",
		Long: `Evaluate the metadata ledger against the current time and report how close
each credential is to its 90 day rotation deadline.

The command exits non-zero when the global deadline has passed, so it can be
wired straight into cron or a systemd timer as an alert. With --watch it
stays resident, re-evaluates on the given cron schedule, and exposes the
results as Prometheus gauges on --listen.`,
		Example: `  # One-shot check, suitable for cron
  keyops check-expiry

  # Resident watcher, evaluated daily at 09:00
  keyops check-expiry --watch --listen :9465`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			if !watch {
				return checkOnce(cfg, time.Now())
			}
			return runWatch(cmd, cfg, schedule, listen)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Stay resident and re-evaluate on a schedule")
	cmd.Flags().StringVar(&schedule, "schedule", "0 9 * * *", "Cron schedule for --watch evaluations")
	cmd.Flags().StringVar(&listen, "listen", "", "Expose Prometheus metrics on this address during --watch (default from config)")

	return cmd
}

// checkOnce evaluates the ledger and logs one line per credential plus the
// global verdict. Returns an error when the global deadline has passed so
// the process exits non-zero for schedulers.
func checkOnce(cfg *config.Config, now time.Time) error {
	doc, err := openLedger(cfg).Load()
	if err != nil {
		if errors.Is(err, kerrors.ErrUninitialized) {
			return uninitializedError(err)
		}
		return err
	}

	report, err := expiry.Evaluate(doc, now)
	if err != nil {
		return err
	}
	credReports, err := expiry.EvaluateCredentials(doc, credential.Names(), now)
	if err != nil {
		return err
	}

	for _, r := range credReports {
		logReportLine(cfg, r.Name, r.DaysRemaining, r.Status)
		expiry.RecordCredential(r)
	}
	logReportLine(cfg, "global deadline", report.DaysRemaining, report.Status)
	expiry.RecordReport(report)

	if report.Status == expiry.StatusExpired {
		return kerrors.UserError{
			Message:    fmt.Sprintf("rotation deadline passed %d day(s) ago", -report.DaysRemaining),
			Suggestion: "Run 'keyops rotate' now",
		}
	}
	return nil
}

func logReportLine(cfg *config.Config, name string, days int, status expiry.Status) {
	switch status {
	case expiry.StatusExpired:
		cfg.Logger.Error("%s: expired %d day(s) ago", name, -days)
	case expiry.StatusCritical:
		cfg.Logger.Warn("%s: %d day(s) remaining (critical)", name, days)
	case expiry.StatusNotice:
		cfg.Logger.Warn("%s: %d day(s) remaining", name, days)
	default:
		cfg.Logger.Info("%s: %d day(s) remaining", name, days)
	}
}

// runWatch keeps the process resident, re-evaluating on the cron schedule
// and serving metrics until the context is cancelled.
func runWatch(cmd *cobra.Command, cfg *config.Config, schedule, listen string) error {
	if listen == "" {
		listen = cfg.Definition.Metrics.Listen
	}

	expiry.InitMetrics()
	server := expiry.NewMetricsServer(listen)
	server.Start(func(err error) {
		cfg.Logger.Error("metrics server: %v", err)
	})
	cfg.Logger.Info("Serving metrics on %s", listen)

	evaluate := func() {
		// A missed evaluation is logged, never fatal. The watcher keeps
		// running so a transient read error does not take down metrics.
		if err := checkOnce(cfg, time.Now()); err != nil {
			cfg.Logger.Warn("expiry check: %v", err)
		}
	}

	runner := cron.New()
	if _, err := runner.AddFunc(schedule, evaluate); err != nil {
		return kerrors.UserError{
			Message:    fmt.Sprintf("invalid --schedule %q", schedule),
			Suggestion: "Use standard 5-field cron syntax, e.g. '0 9 * * *'",
			Err:        err,
		}
	}

	evaluate()
	runner.Start()

	<-cmd.Context().Done()
	cfg.Logger.Info("Shutting down")

	stopCtx := runner.Stop()
	<-stopCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}

func uninitializedError(err error) error {
	return kerrors.UserError{
		Message:    "secrets directory is not initialized",
		Suggestion: "Run 'keyops init' first",
		Err:        err,
	}
}
