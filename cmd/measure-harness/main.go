package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/measure-harness/internal/config"
	"github.com/ehr/measure-harness/internal/platform/reporting"
)

// errRunFailed signals that the run completed but at least one test case
// failed or errored. The report has already been printed.
var errRunFailed = errors.New("test run failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "measure-harness",
		Short:         "Score and reconcile clinical quality measure test cases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	return rootCmd
}

// newLogger writes JSON to w, or console output in development and when w is
// a terminal.
func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	console := cfg.IsDev()
	if f, ok := w.(*os.File); ok && reporting.IsTerminal(f) {
		console = true
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(cfg.Level()).With().Timestamp().Logger()
}

// loadConfig loads configuration with the command's flags bound over the
// environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
