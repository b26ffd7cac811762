package scoring

import "math"

// EncounterScore is the per-encounter result feeding Group_5 and Group_6.
type EncounterScore struct {
	EncounterID EncounterID      `json:"encounterId"`
	Flags       ObservationFlags `json:"flags"`
	Score       int              `json:"score"`
	Denominator int              `json:"denominator"`
	Percentage  int              `json:"percentage"`
}

// ScoreEncounters scores every measure population encounter in evaluator
// order.
func ScoreEncounters(sets *CriterionSets) []EncounterScore {
	scorer := NewScorer(sets)
	population := sets.Population()
	out := make([]EncounterScore, 0, len(population))
	for _, id := range population {
		flags := scorer.Observe(id)
		denom := scorer.EligibleDenominator(id)
		score := flags.Score()
		out = append(out, EncounterScore{
			EncounterID: id,
			Flags:       flags,
			Score:       score,
			Denominator: denom,
			Percentage:  int(math.Round(float64(score) / float64(denom) * 100)),
		})
	}
	return out
}

// BuildGroups derives the six actual group records, in Group_1..Group_6
// order, from one patient's criterion sets.
func BuildGroups(sets *CriterionSets) []GroupRecord {
	encounters := ScoreEncounters(sets)
	base := basePopulation(sets, len(encounters))
	n := len(encounters)

	var totals [ObservationSlots]int
	var scoreSum, pctSum int
	var scoreSlots, pctSlots [ObservationSlots]int
	for i, enc := range encounters {
		for c := range totals {
			totals[c] += enc.Flags[c]
		}
		scoreSum += enc.Score
		pctSum += enc.Percentage
		if i < ObservationSlots {
			scoreSlots[i] = enc.Score
			pctSlots[i] = enc.Percentage
		}
	}

	groups := make([]GroupRecord, 0, GroupCount)
	for c := 0; c < ObservationSlots; c++ {
		pop := base
		pop.Observations = [ObservationSlots]int{totals[c]}
		groups = append(groups, GroupRecord{
			GroupID:      GroupIDs[c],
			Kind:         KindActual,
			Populations:  pop,
			MeasureScore: ratio(float64(totals[c]), float64(n)),
		})
	}

	g5 := base
	g5.Observations = scoreSlots
	groups = append(groups, GroupRecord{
		GroupID:      Group5,
		Kind:         KindActual,
		Populations:  g5,
		MeasureScore: ratio(float64(scoreSum), float64(n)),
	})

	g6 := base
	g6.Observations = pctSlots
	groups = append(groups, GroupRecord{
		GroupID:      Group6,
		Kind:         KindActual,
		Populations:  g6,
		MeasureScore: ratio(float64(pctSum), float64(n)*100),
	})
	return groups
}

// basePopulation is shared by every group. Without explicit initial
// population or exclusion sets the initial population equals the measure
// population and nothing is excluded.
func basePopulation(sets *CriterionSets, measurePopulation int) PopulationCounts {
	pop := PopulationCounts{
		InitialPopulation: measurePopulation,
		MeasurePopulation: measurePopulation,
	}
	if sets.Provided(InitialPopulation) {
		pop.InitialPopulation = sets.Count(InitialPopulation)
	}
	if sets.Provided(MeasurePopulationExclusion) {
		pop.MeasurePopulationExclusion = sets.Count(MeasurePopulationExclusion)
	}
	return pop
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
