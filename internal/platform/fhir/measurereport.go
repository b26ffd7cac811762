package fhir

import (
	"encoding/json"
	"errors"
	"fmt"
)

// IsTestCaseExtension marks the MeasureReport that carries a test case's
// expected results.
const IsTestCaseExtension = "http://hl7.org/fhir/us/cqfmeasures/StructureDefinition/cqfm-isTestCase"

// ErrNoMeasureReport is returned when a bundle has no MeasureReport entry.
var ErrNoMeasureReport = errors.New("bundle has no MeasureReport")

// MeasureReport is the subset of the FHIR MeasureReport read from test cases.
type MeasureReport struct {
	ResourceType      string               `json:"resourceType"`
	ID                string               `json:"id,omitempty"`
	Status            string               `json:"status,omitempty"`
	Type              string               `json:"type,omitempty"`
	Measure           string               `json:"measure,omitempty"`
	Subject           *Reference           `json:"subject,omitempty"`
	Period            Period               `json:"period"`
	Group             []MeasureReportGroup `json:"group,omitempty"`
	ModifierExtension []Extension          `json:"modifierExtension,omitempty"`
	Extension         []Extension          `json:"extension,omitempty"`
}

// MeasureReportGroup holds population results for a measure group.
type MeasureReportGroup struct {
	ID           string                    `json:"id,omitempty"`
	Code         *CodeableConcept          `json:"code,omitempty"`
	Population   []MeasureReportPopulation `json:"population,omitempty"`
	MeasureScore *Quantity                 `json:"measureScore,omitempty"`
}

// MeasureReportPopulation holds one population count.
type MeasureReportPopulation struct {
	ID    string          `json:"id,omitempty"`
	Code  CodeableConcept `json:"code"`
	Count *int            `json:"count,omitempty"`
}

// IsTestCase reports whether the report carries the cqfm-isTestCase flag.
func (r *MeasureReport) IsTestCase() bool {
	for _, exts := range [][]Extension{r.ModifierExtension, r.Extension} {
		for _, ext := range exts {
			if ext.URL == IsTestCaseExtension && ext.ValueBoolean != nil && *ext.ValueBoolean {
				return true
			}
		}
	}
	return false
}

// TestCaseReport returns the bundle's test-case MeasureReport. When no report
// carries the test-case flag the first MeasureReport is used.
func (b *Bundle) TestCaseReport() (*MeasureReport, error) {
	raws := b.Resources("MeasureReport")
	if len(raws) == 0 {
		return nil, ErrNoMeasureReport
	}

	var first *MeasureReport
	for i, raw := range raws {
		var mr MeasureReport
		if err := json.Unmarshal(raw, &mr); err != nil {
			return nil, fmt.Errorf("decode MeasureReport entry %d: %w", i, err)
		}
		if mr.IsTestCase() {
			return &mr, nil
		}
		if first == nil {
			first = &mr
		}
	}
	return first, nil
}
