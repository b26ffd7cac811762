package testcase

import (
	"errors"
	"time"

	"github.com/ehr/measure-harness/internal/domain/scoring"
	"github.com/ehr/measure-harness/internal/platform/fhir"
)

// ErrNoExpectedResults is returned when a test case has neither a sidecar
// expected-results file nor a MeasureReport in its bundle.
var ErrNoExpectedResults = errors.New("test case has no expected results")

// MeasurementPeriod is the reporting period of a test case. Zero times mean
// the period was not given.
type MeasurementPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ExpectedResults are the per-patient expected group records.
type ExpectedResults struct {
	MeasurementPeriod MeasurementPeriod     `json:"measurementPeriod"`
	Groups            []scoring.GroupRecord `json:"groups"`
}

// Source locates the files of one test case before it is loaded.
type Source struct {
	Name         string
	BundlePath   string
	ExpectedPath string
}

// TestCase is a loaded patient test case.
type TestCase struct {
	Name       string
	BundlePath string
	PatientID  string
	Bundle     *fhir.Bundle
	Expected   ExpectedResults
}
