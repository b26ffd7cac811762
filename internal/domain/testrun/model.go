package testrun

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/measure-harness/internal/domain/scoring"
	"github.com/ehr/measure-harness/internal/harness"
	"github.com/ehr/measure-harness/internal/platform/reporting"
)

var ErrNotFound = errors.New("test run not found")

// TestRun maps to the test_run table.
type TestRun struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	Measure    string          `db:"measure" json:"measure"`
	Library    string          `db:"library" json:"library"`
	Evaluator  string          `db:"evaluator" json:"evaluator"`
	Total      int             `db:"total" json:"total"`
	Passed     int             `db:"passed" json:"passed"`
	Failed     int             `db:"failed" json:"failed"`
	Errored    int             `db:"errored" json:"errored"`
	Summary    harness.Summary `db:"summary" json:"summary"`
	StartedAt  time.Time       `db:"started_at" json:"started_at"`
	FinishedAt time.Time       `db:"finished_at" json:"finished_at"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`

	Results []*TestResult `db:"-" json:"results,omitempty"`
}

// TestResult maps to the test_result table: one row per group comparison,
// or a single row without a group for an errored patient.
type TestResult struct {
	ID            uuid.UUID                 `db:"id" json:"id"`
	RunID         uuid.UUID                 `db:"run_id" json:"run_id"`
	Position      int                       `db:"position" json:"position"`
	TestCase      string                    `db:"test_case" json:"test_case"`
	PatientID     string                    `db:"patient_id" json:"patient_id"`
	Status        string                    `db:"status" json:"status"`
	Error         *string                   `db:"error" json:"error,omitempty"`
	GroupID       *string                   `db:"group_id" json:"group_id,omitempty"`
	Passed        bool                      `db:"passed" json:"passed"`
	Expected      *scoring.PopulationCounts `db:"expected" json:"expected,omitempty"`
	Actual        *scoring.PopulationCounts `db:"actual" json:"actual,omitempty"`
	ExpectedScore *float64                  `db:"expected_score" json:"expected_score,omitempty"`
	ActualScore   *float64                  `db:"actual_score" json:"actual_score,omitempty"`
	Mismatches    []string                  `db:"mismatches" json:"mismatches"`
}

// FromReport flattens a report into a run and its result rows.
func FromReport(rep *reporting.Report, evaluator string, startedAt time.Time) *TestRun {
	run := &TestRun{
		Measure:    rep.Measure,
		Library:    rep.Library,
		Evaluator:  evaluator,
		Total:      rep.Summary.Total,
		Passed:     rep.Summary.Passed,
		Failed:     rep.Summary.Failed,
		Errored:    rep.Summary.Errored,
		Summary:    rep.Summary,
		StartedAt:  startedAt,
		FinishedAt: rep.GeneratedAt,
	}

	pos := 0
	for _, r := range rep.Results {
		status := string(r.Status())
		if len(r.Comparisons) == 0 {
			res := &TestResult{
				Position:   pos,
				TestCase:   r.TestCase,
				PatientID:  r.PatientID,
				Status:     status,
				Passed:     status == string(harness.StatusPassed),
				Mismatches: []string{},
			}
			if r.Error != "" {
				msg := r.Error
				res.Error = &msg
			}
			run.Results = append(run.Results, res)
			pos++
			continue
		}
		for _, c := range r.Comparisons {
			group := string(c.GroupID)
			expected, actual := c.Expected, c.Actual
			expectedScore, actualScore := c.ExpectedScore, c.ActualScore
			mismatches := c.Mismatches
			if mismatches == nil {
				mismatches = []string{}
			}
			run.Results = append(run.Results, &TestResult{
				Position:      pos,
				TestCase:      r.TestCase,
				PatientID:     r.PatientID,
				Status:        status,
				GroupID:       &group,
				Passed:        c.Passed,
				Expected:      &expected,
				Actual:        &actual,
				ExpectedScore: &expectedScore,
				ActualScore:   &actualScore,
				Mismatches:    mismatches,
			})
			pos++
		}
	}
	return run
}
