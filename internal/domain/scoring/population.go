package scoring

import "fmt"

// PopulationCode is the closed set of MeasureReport population codes the
// measure reports.
type PopulationCode int

const (
	PopulationInitial PopulationCode = iota + 1
	PopulationMeasure
	PopulationMeasureExclusion
	PopulationObservation
)

// PopulationSystem is the FHIR code system of population codes.
const PopulationSystem = "http://terminology.hl7.org/CodeSystem/measure-population"

var populationCodes = map[string]PopulationCode{
	"initial-population":           PopulationInitial,
	"measure-population":           PopulationMeasure,
	"measure-population-exclusion": PopulationMeasureExclusion,
	"measure-observation":          PopulationObservation,
}

// ParsePopulationCode maps a FHIR population code onto the enum. Codes of
// other scoring types (numerator, denominator, ...) are rejected.
func ParsePopulationCode(code string) (PopulationCode, error) {
	if p, ok := populationCodes[code]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("unsupported population code %q", code)
}

func (p PopulationCode) String() string {
	switch p {
	case PopulationInitial:
		return "initial-population"
	case PopulationMeasure:
		return "measure-population"
	case PopulationMeasureExclusion:
		return "measure-population-exclusion"
	case PopulationObservation:
		return "measure-observation"
	default:
		return fmt.Sprintf("PopulationCode(%d)", int(p))
	}
}
