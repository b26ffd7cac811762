// Package evaluator obtains raw CQL define results for a test-case patient.
// Results are a map from define name to value, as produced by a CQL engine
// run against the patient's bundle.
package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoResults is returned when an evaluator has nothing for a patient.
var ErrNoResults = errors.New("no evaluation results")

// Request identifies one patient evaluation.
type Request struct {
	Library     string
	TestCase    string
	BundlePath  string
	PatientID   string
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// Evaluator returns the define results for one patient.
type Evaluator interface {
	Evaluate(ctx context.Context, req Request) (map[string]any, error)
}

// Kinds of evaluator selectable by configuration.
const (
	KindFile    = "file"
	KindCommand = "command"
)

// Options configures New.
type Options struct {
	ResultsDir string
	Command    string
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// New builds the evaluator named by kind.
func New(kind string, opts Options) (Evaluator, error) {
	switch kind {
	case KindFile:
		return NewFileEvaluator(opts.ResultsDir), nil
	case KindCommand:
		return NewCommandEvaluator(opts.Command, opts.Timeout, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown evaluator %q", kind)
	}
}

// DecodeResults parses an evaluator payload. A payload of the form
// {"patientResults": {"<id>": {...}}} is unwrapped to the entry for patientID,
// or to its only entry when patientID is not present; anything else is taken
// as the define map itself.
func DecodeResults(data []byte, patientID string) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode evaluation results: %w", err)
	}
	if payload == nil {
		return nil, ErrNoResults
	}

	wrapped, ok := payload["patientResults"]
	if !ok {
		return payload, nil
	}
	byPatient, ok := wrapped.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("patientResults is %T, expected an object", wrapped)
	}

	if r, ok := byPatient[patientID]; ok {
		return asResults(r, patientID)
	}
	if len(byPatient) == 1 {
		for id, r := range byPatient {
			return asResults(r, id)
		}
	}
	return nil, fmt.Errorf("patient %s: %w", patientID, ErrNoResults)
}

func asResults(v any, patientID string) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("results for patient %s are %T, expected an object", patientID, v)
	}
	return m, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
