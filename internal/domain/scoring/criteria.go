package scoring

import (
	"fmt"
	"sort"
)

// Criterion names one clinical predicate evaluated per encounter upstream.
type Criterion string

const (
	MeasurePopulation          Criterion = "measure-population"
	InitialPopulation          Criterion = "initial-population"
	MeasurePopulationExclusion Criterion = "measure-population-exclusion"
	ScreeningOrReferral        Criterion = "screening-or-referral"
	AtRiskOrReferral           Criterion = "at-risk-or-referral"
	NotAtRiskWithoutReferral   Criterion = "not-at-risk-without-referral"
	AssessmentWithStatus       Criterion = "assessment-with-status"
	ModerateOrSevereAssessment Criterion = "moderate-or-severe-assessment"
	NotMildAssessment          Criterion = "not-mild-assessment"
	Diagnosis                  Criterion = "diagnosis"
	CarePlan                   Criterion = "care-plan"
)

// AllCriteria lists every criterion the scorer understands, in a stable order.
var AllCriteria = []Criterion{
	MeasurePopulation,
	InitialPopulation,
	MeasurePopulationExclusion,
	ScreeningOrReferral,
	AtRiskOrReferral,
	NotAtRiskWithoutReferral,
	AssessmentWithStatus,
	ModerateOrSevereAssessment,
	NotMildAssessment,
	Diagnosis,
	CarePlan,
}

// DefaultExpressions maps each criterion to the CQL define that produces it
// in the Global Malnutrition Composite Score library.
var DefaultExpressions = map[Criterion]string{
	MeasurePopulation:          "Measure Population",
	InitialPopulation:          "Initial Population",
	MeasurePopulationExclusion: "Measure Population Exclusion",
	ScreeningOrReferral:        "Encounter With Malnutrition Risk Screening Or Dietitian Referral",
	AtRiskOrReferral:           "Encounter With Malnutrition Risk Screening At Risk Or Dietitian Referral",
	NotAtRiskWithoutReferral:   "Encounter With Malnutrition Not At Risk Screening And Without Dietitian Referral",
	AssessmentWithStatus:       "Encounter With Nutrition Assessment And Identified Status",
	ModerateOrSevereAssessment: "Encounter With Nutrition Assessment Moderately Or Severely Malnourished",
	NotMildAssessment:          "Encounter With Nutrition Assessment Not Or Mildly Malnourished",
	Diagnosis:                  "Encounter With Malnutrition Diagnosis",
	CarePlan:                   "Encounter With Nutrition Care Plan",
}

// ParseCriterion validates a criterion key.
func ParseCriterion(s string) (Criterion, error) {
	c := Criterion(s)
	if _, ok := DefaultExpressions[c]; !ok {
		return "", fmt.Errorf("unknown criterion %q", s)
	}
	return c, nil
}

// ExpressionNames overrides the define name used for some criteria.
type ExpressionNames map[Criterion]string

// ParseExpressionNames converts a manifest mapping into ExpressionNames,
// rejecting unknown criterion keys.
func ParseExpressionNames(m map[string]string) (ExpressionNames, error) {
	names := make(ExpressionNames, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c, err := ParseCriterion(k)
		if err != nil {
			return nil, err
		}
		if m[k] == "" {
			return nil, fmt.Errorf("criterion %q has an empty expression name", k)
		}
		names[c] = m[k]
	}
	return names, nil
}

// Expression returns the define name for c.
func (n ExpressionNames) Expression(c Criterion) string {
	if name, ok := n[c]; ok {
		return name
	}
	return DefaultExpressions[c]
}

// CriterionSets holds the encounter membership of every criterion for one
// patient execution. The zero value behaves as if every set were empty.
type CriterionSets struct {
	sets       map[Criterion]EncounterSet
	population []EncounterID
}

// NewCriterionSets builds the sets from raw evaluator output keyed by define
// name. Missing or null defines yield empty sets.
func NewCriterionSets(results map[string]any, names ExpressionNames) *CriterionSets {
	values := make(map[Criterion]any, len(AllCriteria))
	for _, c := range AllCriteria {
		if v, ok := results[names.Expression(c)]; ok && v != nil {
			values[c] = v
		}
	}
	return CriterionSetsFromValues(values)
}

// CriterionSetsFromValues builds the sets from values already keyed by
// criterion. The measure population keeps its list order; it drives the
// per-encounter groups.
func CriterionSetsFromValues(values map[Criterion]any) *CriterionSets {
	cs := &CriterionSets{sets: make(map[Criterion]EncounterSet, len(values))}
	for c, v := range values {
		if c == MeasurePopulation {
			cs.population = ToEncounterIDSequence(v)
			cs.sets[c] = NewEncounterSet(cs.population...)
			continue
		}
		cs.sets[c] = ToEncounterIDSet(v)
	}
	return cs
}

// Contains reports whether id satisfies criterion c.
func (cs *CriterionSets) Contains(c Criterion, id EncounterID) bool {
	if cs == nil {
		return false
	}
	return cs.sets[c].Has(id)
}

// Provided reports whether the evaluator returned a value for c.
func (cs *CriterionSets) Provided(c Criterion) bool {
	if cs == nil {
		return false
	}
	_, ok := cs.sets[c]
	return ok
}

// Count returns the size of the set for c.
func (cs *CriterionSets) Count(c Criterion) int {
	if cs == nil {
		return 0
	}
	return cs.sets[c].Len()
}

// Population returns a copy of the measure population in evaluator order.
func (cs *CriterionSets) Population() []EncounterID {
	if cs == nil {
		return nil
	}
	out := make([]EncounterID, len(cs.population))
	copy(out, cs.population)
	return out
}
