package scoring

// ObservationFlags holds the four per-encounter component flags, each 0 or 1.
type ObservationFlags [4]int

// Score is the number of components met by the encounter, 0 through 4.
func (f ObservationFlags) Score() int {
	return f[0] + f[1] + f[2] + f[3]
}

// Scorer computes per-encounter observations from a patient's criterion sets.
type Scorer struct {
	sets *CriterionSets
}

// NewScorer creates a Scorer over sets. A nil sets value scores every
// encounter as absent from all criteria.
func NewScorer(sets *CriterionSets) *Scorer {
	return &Scorer{sets: sets}
}

func (s *Scorer) in(c Criterion, id EncounterID) bool {
	return s.sets.Contains(c, id)
}

// Observe returns the component flags for one encounter.
//
// Membership in not-at-risk-without-referral forces components 2 to 4 to zero
// whatever else the encounter satisfies.
func (s *Scorer) Observe(id EncounterID) ObservationFlags {
	var f ObservationFlags
	if s.in(ScreeningOrReferral, id) {
		f[0] = 1
	}

	atRisk := !s.in(NotAtRiskWithoutReferral, id) && s.in(AtRiskOrReferral, id)
	if !atRisk {
		return f
	}
	if s.in(AssessmentWithStatus, id) {
		f[1] = 1
	}
	if s.in(ModerateOrSevereAssessment, id) {
		if s.in(Diagnosis, id) {
			f[2] = 1
		}
		if s.in(CarePlan, id) {
			f[3] = 1
		}
	}
	return f
}

// EligibleDenominator returns the maximum score attainable by the encounter:
// 1 when screened not at risk, 2 when at risk but without a moderate or severe
// assessment, 4 for the full pathway, and 2 when nothing applies.
func (s *Scorer) EligibleDenominator(id EncounterID) int {
	switch {
	case s.in(ScreeningOrReferral, id) && s.in(NotAtRiskWithoutReferral, id):
		return 1
	case s.in(AtRiskOrReferral, id) && (s.in(NotMildAssessment, id) || !s.in(AssessmentWithStatus, id)):
		return 2
	case s.in(ScreeningOrReferral, id):
		return 4
	default:
		return 2
	}
}
