package testcase

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ehr/measure-harness/internal/domain/scoring"
	"github.com/ehr/measure-harness/internal/platform/fhir"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// expectedDocument is the on-disk shape of an expected-results file.
type expectedDocument struct {
	MeasurementPeriod periodDocument  `json:"measurementPeriod" yaml:"measurementPeriod"`
	Groups            []groupDocument `json:"groups" yaml:"groups" validate:"required,min=1,max=6,dive"`
}

type periodDocument struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

type groupDocument struct {
	GroupID      string             `json:"groupId" yaml:"groupId" validate:"required,oneof=Group_1 Group_2 Group_3 Group_4 Group_5 Group_6"`
	Populations  populationDocument `json:"populations" yaml:"populations"`
	MeasureScore float64            `json:"measureScore" yaml:"measureScore" validate:"gte=0"`
}

type populationDocument struct {
	InitialPopulation          int   `json:"initialPopulation" yaml:"initialPopulation" validate:"gte=0"`
	MeasurePopulation          int   `json:"measurePopulation" yaml:"measurePopulation" validate:"gte=0"`
	MeasurePopulationExclusion int   `json:"measurePopulationExclusion" yaml:"measurePopulationExclusion" validate:"gte=0"`
	Observations               []int `json:"observations" yaml:"observations" validate:"max=4,dive,gte=0"`
}

// ParseExpected decodes an expected-results document. The format follows the
// file extension: .yaml/.yml is YAML, anything else JSON.
func ParseExpected(name string, data []byte) (ExpectedResults, error) {
	var doc expectedDocument
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return ExpectedResults{}, fmt.Errorf("decode %s: %w", name, err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return ExpectedResults{}, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return doc.toExpected()
}

func (d expectedDocument) toExpected() (ExpectedResults, error) {
	if err := validate.Struct(d); err != nil {
		return ExpectedResults{}, fmt.Errorf("invalid expected results: %w", err)
	}
	period, err := parsePeriod(d.MeasurementPeriod.Start, d.MeasurementPeriod.End)
	if err != nil {
		return ExpectedResults{}, err
	}

	out := ExpectedResults{MeasurementPeriod: period}
	for _, g := range d.Groups {
		pop := scoring.PopulationCounts{
			InitialPopulation:          g.Populations.InitialPopulation,
			MeasurePopulation:          g.Populations.MeasurePopulation,
			MeasurePopulationExclusion: g.Populations.MeasurePopulationExclusion,
		}
		copy(pop.Observations[:], g.Populations.Observations)
		out.Groups = append(out.Groups, scoring.GroupRecord{
			GroupID:      scoring.GroupID(g.GroupID),
			Kind:         scoring.KindExpected,
			Populations:  pop,
			MeasureScore: g.MeasureScore,
		})
	}
	return out, nil
}

// FromMeasureReport reads expected results from a test-case MeasureReport.
// Groups whose id is not Group_N are identified by position.
func FromMeasureReport(mr *fhir.MeasureReport) (ExpectedResults, error) {
	period, err := parsePeriod(mr.Period.Start, mr.Period.End)
	if err != nil {
		return ExpectedResults{}, err
	}
	if len(mr.Group) == 0 {
		return ExpectedResults{}, fmt.Errorf("MeasureReport %s has no groups", mr.ID)
	}
	if len(mr.Group) > scoring.GroupCount {
		return ExpectedResults{}, fmt.Errorf("MeasureReport %s has %d groups, at most %d expected", mr.ID, len(mr.Group), scoring.GroupCount)
	}

	out := ExpectedResults{MeasurementPeriod: period}
	for i, g := range mr.Group {
		id := scoring.GroupID(g.ID)
		if !id.Valid() {
			id = scoring.GroupIDs[i]
		}
		pop, err := populationsFromReport(g.Population)
		if err != nil {
			return ExpectedResults{}, fmt.Errorf("group %s: %w", id, err)
		}
		rec := scoring.GroupRecord{GroupID: id, Kind: scoring.KindExpected, Populations: pop}
		if g.MeasureScore != nil && g.MeasureScore.Value != nil {
			rec.MeasureScore = *g.MeasureScore.Value
		}
		out.Groups = append(out.Groups, rec)
	}
	return out, nil
}

func populationsFromReport(pops []fhir.MeasureReportPopulation) (scoring.PopulationCounts, error) {
	var counts scoring.PopulationCounts
	slot := 0
	for _, p := range pops {
		code, err := scoring.ParsePopulationCode(populationCode(p.Code))
		if err != nil {
			return counts, err
		}
		n := 0
		if p.Count != nil {
			n = *p.Count
		}
		if n < 0 {
			return counts, fmt.Errorf("%s count is negative: %d", code, n)
		}
		switch code {
		case scoring.PopulationInitial:
			counts.InitialPopulation = n
		case scoring.PopulationMeasure:
			counts.MeasurePopulation = n
		case scoring.PopulationMeasureExclusion:
			counts.MeasurePopulationExclusion = n
		case scoring.PopulationObservation:
			if slot >= scoring.ObservationSlots {
				return counts, fmt.Errorf("more than %d measure observations", scoring.ObservationSlots)
			}
			counts.Observations[slot] = n
			slot++
		default:
			return counts, fmt.Errorf("unhandled population code %s", code)
		}
	}
	return counts, nil
}

// populationCode prefers the coding from the measure-population system.
func populationCode(cc fhir.CodeableConcept) string {
	for _, c := range cc.Coding {
		if c.System == scoring.PopulationSystem {
			return c.Code
		}
	}
	return cc.FirstCode()
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func parsePeriod(start, end string) (MeasurementPeriod, error) {
	s, err := parseDate(start)
	if err != nil {
		return MeasurementPeriod{}, fmt.Errorf("measurement period start: %w", err)
	}
	e, err := parseDate(end)
	if err != nil {
		return MeasurementPeriod{}, fmt.Errorf("measurement period end: %w", err)
	}
	if !s.IsZero() && !e.IsZero() && e.Before(s) {
		return MeasurementPeriod{}, fmt.Errorf("measurement period end %s is before start %s", end, start)
	}
	return MeasurementPeriod{Start: s, End: e}, nil
}
