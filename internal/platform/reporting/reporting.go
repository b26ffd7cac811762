// Package reporting renders harness results for people and tools: a console
// report, a JSON export and an XLSX workbook.
package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ehr/measure-harness/internal/harness"
)

// Report is one completed run of a measure's test cases.
type Report struct {
	Measure     string                  `json:"measure"`
	Library     string                  `json:"library"`
	GeneratedAt time.Time               `json:"generatedAt"`
	Summary     harness.Summary         `json:"summary"`
	Results     []harness.PatientResult `json:"results"`
}

// NewReport summarizes results into a report.
func NewReport(m *harness.Manifest, results []harness.PatientResult) *Report {
	return &Report{
		Measure:     m.Name,
		Library:     m.Library,
		GeneratedAt: time.Now().UTC(),
		Summary:     harness.Summarize(results),
		Results:     results,
	}
}

// WriteJSON writes the per-patient comparisons as a JSON array.
func WriteJSON(path string, results []harness.PatientResult) error {
	if results == nil {
		results = []harness.PatientResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
