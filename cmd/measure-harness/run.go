package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/measure-harness/internal/config"
	"github.com/ehr/measure-harness/internal/domain/scoring"
	"github.com/ehr/measure-harness/internal/domain/testcase"
	"github.com/ehr/measure-harness/internal/domain/testrun"
	"github.com/ehr/measure-harness/internal/harness"
	"github.com/ehr/measure-harness/internal/platform/db"
	"github.com/ehr/measure-harness/internal/platform/evaluator"
	"github.com/ehr/measure-harness/internal/platform/reporting"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate, score and reconcile every test case of a measure",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg, os.Stderr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			color := false
			if f, ok := out.(*os.File); ok {
				color = reporting.IsTerminal(f)
			}

			rep, err := executeRun(ctx, cfg, out, color, logger)
			if err != nil {
				return err
			}
			if !rep.Summary.OK() {
				return errRunFailed
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String("manifest", "measure.yaml", "Measure manifest (YAML)")
	f.String("testcases", "testcases", "Directory of test-case bundles")
	f.String("evaluator", evaluator.KindFile, "Evaluator: file or command")
	f.String("results", "results", "Directory of precomputed evaluator output (file evaluator)")
	f.String("command", "", "Evaluator command template (command evaluator)")
	f.Duration("timeout", 60*time.Second, "Per-patient timeout for the command evaluator")
	f.Int("workers", 4, "Maximum patients evaluated in parallel")
	f.String("json", "", "Write comparisons as JSON to this path")
	f.String("xlsx", "", "Write an XLSX workbook to this path")
	f.String("db", "", "Postgres URL; persist the run when set")
	return cmd
}

// executeRun runs every discovered test case and writes the requested
// outputs. The returned report is nil only when err is set.
func executeRun(ctx context.Context, cfg *config.Config, out io.Writer, color bool, logger zerolog.Logger) (*reporting.Report, error) {
	manifest, err := harness.LoadManifest(cfg.MeasureManifest)
	if err != nil {
		return nil, err
	}

	sources, err := testcase.Discover(cfg.TestCasesDir)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no test cases found in %s", cfg.TestCasesDir)
	}

	eval, err := evaluator.New(cfg.Evaluator, evaluator.Options{
		ResultsDir: cfg.ResultsDir,
		Command:    cfg.EvaluatorCommand,
		Timeout:    cfg.EvaluatorTimeout,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("measure", manifest.Name).
		Str("evaluator", cfg.Evaluator).
		Int("test_cases", len(sources)).
		Int("workers", cfg.Workers).
		Msg("starting run")

	started := time.Now().UTC()
	results, err := harness.NewRunner(eval, manifest, cfg.Workers, logger).Run(ctx, sources)
	if err != nil {
		return nil, fmt.Errorf("run interrupted: %w", err)
	}

	rep := reporting.NewReport(manifest, results)
	reporting.NewConsole(out, color).Render(rep)

	if cfg.OutputJSON != "" {
		if err := reporting.WriteJSON(cfg.OutputJSON, rep.Results); err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.OutputJSON).Msg("wrote JSON results")
	}
	if cfg.OutputXLSX != "" {
		if err := reporting.WriteXLSX(cfg.OutputXLSX, rep); err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.OutputXLSX).Msg("wrote XLSX workbook")
	}

	if cfg.DatabaseURL != "" {
		if err := persistRun(ctx, cfg, rep, started, logger); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

func persistRun(ctx context.Context, cfg *config.Config, rep *reporting.Report, started time.Time, logger zerolog.Logger) error {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc := testrun.NewService(testrun.NewTestRunRepoPG(pool))
	run := testrun.FromReport(rep, cfg.Evaluator, started)
	if err := svc.RecordRun(ctx, run); err != nil {
		return err
	}
	logger.Info().Str("run_id", run.ID.String()).Msg("recorded test run")
	return nil
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one evaluator output file and print the six groups as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("results")
			patient, _ := cmd.Flags().GetString("patient")
			if path == "" {
				return fmt.Errorf("--results is required")
			}

			var names scoring.ExpressionNames
			if cmd.Flags().Changed("manifest") {
				manifestPath, _ := cmd.Flags().GetString("manifest")
				m, err := harness.LoadManifest(manifestPath)
				if err != nil {
					return err
				}
				names = m.Names
			}
			return scoreFile(cmd.OutOrStdout(), path, patient, names)
		},
	}
	cmd.Flags().String("results", "", "Evaluator output JSON (define name to value)")
	cmd.Flags().String("patient", "", "Patient id to select from a patientResults payload")
	cmd.Flags().String("manifest", "", "Measure manifest supplying criterion overrides")
	return cmd
}

func scoreFile(out io.Writer, path, patientID string, names scoring.ExpressionNames) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read results: %w", err)
	}
	raw, err := evaluator.DecodeResults(data, patientID)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	groups := scoring.BuildGroups(scoring.NewCriterionSets(raw, names))
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(groups)
}
