// Package harness runs a measure's test cases through an evaluator and
// reconciles the scored groups against each case's expected results.
package harness

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ehr/measure-harness/internal/domain/scoring"
	"github.com/ehr/measure-harness/internal/domain/testcase"
	"github.com/ehr/measure-harness/internal/platform/evaluator"
)

// Status is the outcome of one patient.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusErrored Status = "errored"
)

// PatientResult is the reconciliation of one test case.
type PatientResult struct {
	TestCase    string                    `json:"testCase"`
	PatientID   string                    `json:"patientId"`
	Error       string                    `json:"error,omitempty"`
	Comparisons []scoring.GroupComparison `json:"comparisons"`

	Err      error                 `json:"-"`
	Actual   []scoring.GroupRecord `json:"-"`
	Duration time.Duration         `json:"-"`
}

func (r PatientResult) Status() Status {
	switch {
	case r.Err != nil:
		return StatusErrored
	case scoring.AllPassed(r.Comparisons):
		return StatusPassed
	default:
		return StatusFailed
	}
}

// Runner evaluates test cases with bounded parallelism.
type Runner struct {
	eval     evaluator.Evaluator
	manifest *Manifest
	workers  int
	logger   zerolog.Logger
}

func NewRunner(eval evaluator.Evaluator, manifest *Manifest, workers int, logger zerolog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{eval: eval, manifest: manifest, workers: workers, logger: logger}
}

// Run evaluates every source. Results are in source order. A failing test
// case is recorded on its result; the returned error is only set when ctx
// ends before the run completes.
func (r *Runner) Run(ctx context.Context, sources []testcase.Source) ([]PatientResult, error) {
	results := make([]PatientResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, src := range sources {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = r.RunOne(gctx, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// RunOne loads, evaluates, scores and reconciles a single test case.
func (r *Runner) RunOne(ctx context.Context, src testcase.Source) PatientResult {
	start := time.Now()
	res := PatientResult{TestCase: src.Name}
	log := r.logger.With().Str("test_case", src.Name).Logger()

	fail := func(err error) PatientResult {
		res.Err = err
		res.Error = err.Error()
		res.Duration = time.Since(start)
		log.Error().Err(err).Str("patient_id", res.PatientID).Msg("test case errored")
		return res
	}

	tc, err := testcase.Load(src)
	if err != nil {
		return fail(err)
	}
	res.PatientID = tc.PatientID
	log = log.With().Str("patient_id", tc.PatientID).Logger()

	raw, err := r.eval.Evaluate(ctx, evaluator.Request{
		Library:     r.manifest.Library,
		TestCase:    tc.Name,
		BundlePath:  tc.BundlePath,
		PatientID:   tc.PatientID,
		PeriodStart: tc.Expected.MeasurementPeriod.Start,
		PeriodEnd:   tc.Expected.MeasurementPeriod.End,
	})
	if err != nil {
		return fail(err)
	}

	res.Actual = scoring.BuildGroups(scoring.NewCriterionSets(raw, r.manifest.Names))
	res.Comparisons = scoring.CompareGroups(tc.Expected.Groups, res.Actual)
	res.Duration = time.Since(start)

	if n := scoring.UnmatchedGroups(tc.Expected.Groups, res.Actual); n > 0 {
		log.Warn().
			Int("expected_groups", len(tc.Expected.Groups)).
			Int("actual_groups", len(res.Actual)).
			Msg("group count mismatch, unpaired groups not compared")
	}
	log.Info().
		Str("status", string(res.Status())).
		Dur("elapsed", res.Duration).
		Msg("test case evaluated")
	return res
}
