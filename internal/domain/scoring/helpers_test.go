package scoring

// setsOf builds criterion sets from plain identifier lists.
func setsOf(m map[Criterion][]string) *CriterionSets {
	values := make(map[Criterion]any, len(m))
	for c, ids := range m {
		items := make([]any, len(ids))
		for i, id := range ids {
			items[i] = id
		}
		values[c] = items
	}
	return CriterionSetsFromValues(values)
}

// fullPathway is every criterion except the not-at-risk override.
var fullPathway = []Criterion{
	ScreeningOrReferral,
	AtRiskOrReferral,
	AssessmentWithStatus,
	ModerateOrSevereAssessment,
	Diagnosis,
	CarePlan,
}

func groupByID(groups []GroupRecord, id GroupID) GroupRecord {
	for _, g := range groups {
		if g.GroupID == id {
			return g
		}
	}
	return GroupRecord{}
}

func record(id GroupID, obs [ObservationSlots]int) GroupRecord {
	return GroupRecord{
		GroupID: id,
		Populations: PopulationCounts{
			InitialPopulation: 2,
			MeasurePopulation: 2,
			Observations:      obs,
		},
	}
}
