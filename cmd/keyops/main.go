package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/systmms/keyops/cmd/keyops/commands"
	"github.com/systmms/keyops/internal/config"
	"github.com/systmms/keyops/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Wipe enclave buffers on any exit path, including signals handled
	// below via context cancellation.
	defer memguard.Purge()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		memguard.Purge()
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile     string
		secretsDir     string
		noColor        bool
		debug          bool
		nonInteractive bool
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "keyops",
		Short: "Lifecycle manager for the bot's provider credentials",
		Long: `keyops initializes, rotates and tracks the API keys the bot reads from
its secrets directory. Every value is validated against its provider's key
format, replaced atomically with a timestamped backup, and recorded in a
metadata ledger that drives the 90 day rotation deadline.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger with parsed flags
			logger := logging.New(debug, noColor)

			// Update config with parsed values
			cfg.Path = configFile
			cfg.Logger = logger
			cfg.NonInteractive = nonInteractive
			cfg.SecretsDirOverride = secretsDir
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "keyops.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&secretsDir, "secrets-dir", "", "Secrets directory (overrides config and KEYOPS_SECRETS_DIR)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Fail instead of prompting for input")

	rootCmd.AddCommand(
		commands.NewInitCommand(cfg),
		commands.NewRotateCommand(cfg),
		commands.NewCheckExpiryCommand(cfg),
		commands.NewStatusCommand(cfg),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}
