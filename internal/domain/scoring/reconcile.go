package scoring

import (
	"fmt"
	"sort"
)

// GroupComparison is the verdict for one measure group.
type GroupComparison struct {
	GroupID       GroupID          `json:"groupId"`
	Expected      PopulationCounts `json:"expected"`
	Actual        PopulationCounts `json:"actual"`
	ExpectedScore float64          `json:"expectedScore"`
	ActualScore   float64          `json:"actualScore"`
	Passed        bool             `json:"passed"`
	Mismatches    []string         `json:"mismatches,omitempty"`
}

// CompareGroups reconciles expected against actual records by position.
// An index present on only one side is skipped rather than reported. The
// measure score is carried for reporting but does not affect the verdict.
func CompareGroups(expected, actual []GroupRecord) []GroupComparison {
	n := max(len(expected), len(actual))
	out := make([]GroupComparison, 0, min(len(expected), len(actual)))
	for i := 0; i < n; i++ {
		if i >= len(expected) || i >= len(actual) {
			continue
		}
		out = append(out, compareGroup(expected[i], actual[i]))
	}
	return out
}

// UnmatchedGroups returns how many positions CompareGroups skipped.
func UnmatchedGroups(expected, actual []GroupRecord) int {
	d := len(expected) - len(actual)
	if d < 0 {
		return -d
	}
	return d
}

func compareGroup(exp, act GroupRecord) GroupComparison {
	group := exp.GroupID
	if !group.Valid() {
		group = act.GroupID
	}

	var mismatches []string
	e, a := exp.Populations, act.Populations
	if e.InitialPopulation != a.InitialPopulation {
		mismatches = append(mismatches, fmt.Sprintf("initialPopulation: expected %d, got %d", e.InitialPopulation, a.InitialPopulation))
	}
	if e.MeasurePopulation != a.MeasurePopulation {
		mismatches = append(mismatches, fmt.Sprintf("measurePopulation: expected %d, got %d", e.MeasurePopulation, a.MeasurePopulation))
	}
	if e.MeasurePopulationExclusion != a.MeasurePopulationExclusion {
		mismatches = append(mismatches, fmt.Sprintf("measurePopulationExclusion: expected %d, got %d", e.MeasurePopulationExclusion, a.MeasurePopulationExclusion))
	}

	if group.PerEncounter() {
		er, ar := rankedObservations(e.Observations), rankedObservations(a.Observations)
		if !equalInts(er, ar) {
			mismatches = append(mismatches, fmt.Sprintf("observations: expected %v, got %v", er, ar))
		}
	} else if e.Observations[0] != a.Observations[0] {
		mismatches = append(mismatches, fmt.Sprintf("observation: expected %d, got %d", e.Observations[0], a.Observations[0]))
	}

	return GroupComparison{
		GroupID:       group,
		Expected:      e,
		Actual:        a,
		ExpectedScore: exp.MeasureScore,
		ActualScore:   act.MeasureScore,
		Passed:        len(mismatches) == 0,
		Mismatches:    mismatches,
	}
}

// rankedObservations drops zero slots and sorts the rest descending, so that
// per-encounter values compare as a multiset.
func rankedObservations(obs [ObservationSlots]int) []int {
	out := make([]int, 0, ObservationSlots)
	for _, v := range obs {
		if v != 0 {
			out = append(out, v)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AllPassed reports whether every comparison passed. An empty list passes.
func AllPassed(comparisons []GroupComparison) bool {
	for _, c := range comparisons {
		if !c.Passed {
			return false
		}
	}
	return true
}
