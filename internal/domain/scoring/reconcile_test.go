package scoring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareGroups_PerEncounterOrderIndependent(t *testing.T) {
	expected := []GroupRecord{record(Group5, [4]int{4, 3, 0, 0})}
	actual := []GroupRecord{record(Group5, [4]int{3, 4, 0, 0})}

	got := CompareGroups(expected, actual)
	require.Len(t, got, 1)
	assert.True(t, got[0].Passed)
	assert.Empty(t, got[0].Mismatches)
}

func TestCompareGroups_PerEncounterValueMismatch(t *testing.T) {
	expected := []GroupRecord{record(Group5, [4]int{4, 3, 0, 0})}
	actual := []GroupRecord{record(Group5, [4]int{4, 2, 0, 0})}

	got := CompareGroups(expected, actual)
	require.Len(t, got, 1)
	assert.False(t, got[0].Passed)
	assert.Equal(t, []string{"observations: expected [4 3], got [4 2]"}, got[0].Mismatches)
}

func TestCompareGroups_PerEncounterZerosIgnored(t *testing.T) {
	expected := []GroupRecord{record(Group6, [4]int{0, 100, 0, 50})}
	actual := []GroupRecord{record(Group6, [4]int{50, 100, 0, 0})}
	assert.True(t, CompareGroups(expected, actual)[0].Passed)

	actual = []GroupRecord{record(Group6, [4]int{50, 100, 50, 0})}
	assert.False(t, CompareGroups(expected, actual)[0].Passed)
}

func TestCompareGroups_PopulationLevelComparesFirstSlotOnly(t *testing.T) {
	for _, g := range []GroupID{Group1, Group2, Group3, Group4} {
		t.Run(string(g), func(t *testing.T) {
			for i := 0; i < 20; i++ {
				exp := record(g, [4]int{2, rand.Intn(5), rand.Intn(5), rand.Intn(5)})
				act := record(g, [4]int{2, rand.Intn(5), rand.Intn(5), rand.Intn(5)})
				assert.True(t, CompareGroups([]GroupRecord{exp}, []GroupRecord{act})[0].Passed)
			}
			exp := record(g, [4]int{2, 0, 0, 0})
			act := record(g, [4]int{1, 0, 0, 0})
			got := CompareGroups([]GroupRecord{exp}, []GroupRecord{act})[0]
			assert.False(t, got.Passed)
			assert.Equal(t, []string{"observation: expected 2, got 1"}, got.Mismatches)
		})
	}
}

func TestCompareGroups_PopulationMismatch(t *testing.T) {
	exp := record(Group1, [4]int{1})
	act := record(Group1, [4]int{1})
	act.Populations.MeasurePopulation = 3
	act.Populations.MeasurePopulationExclusion = 1

	got := CompareGroups([]GroupRecord{exp}, []GroupRecord{act})[0]
	assert.False(t, got.Passed)
	assert.Equal(t, []string{
		"measurePopulation: expected 2, got 3",
		"measurePopulationExclusion: expected 0, got 1",
	}, got.Mismatches)
}

func TestCompareGroups_ScoreNotCompared(t *testing.T) {
	exp := record(Group1, [4]int{1})
	exp.MeasureScore = 0.5
	act := record(Group1, [4]int{1})
	act.MeasureScore = 0.9

	got := CompareGroups([]GroupRecord{exp}, []GroupRecord{act})[0]
	assert.True(t, got.Passed)
	assert.Equal(t, 0.5, got.ExpectedScore)
	assert.Equal(t, 0.9, got.ActualScore)
}

func TestCompareGroups_SkipsUnpairedIndices(t *testing.T) {
	expected := []GroupRecord{record(Group1, [4]int{1}), record(Group2, [4]int{0})}
	actual := []GroupRecord{record(Group1, [4]int{1})}

	got := CompareGroups(expected, actual)
	require.Len(t, got, 1)
	assert.Equal(t, Group1, got[0].GroupID)
	assert.True(t, AllPassed(got))
	assert.Equal(t, 1, UnmatchedGroups(expected, actual))
	assert.Equal(t, 1, UnmatchedGroups(actual, expected))

	assert.Empty(t, CompareGroups(nil, actual))
	assert.Empty(t, CompareGroups(expected, nil))
}

func TestCompareGroups_GroupIDFallsBackToActual(t *testing.T) {
	exp := record("", [4]int{3, 1, 0, 0})
	act := record(Group5, [4]int{1, 3, 0, 0})
	got := CompareGroups([]GroupRecord{exp}, []GroupRecord{act})[0]
	assert.Equal(t, Group5, got.GroupID)
	assert.True(t, got.Passed)
}

func TestCompareGroups_PermutedSequenceKeepsVerdict(t *testing.T) {
	m := map[Criterion][]string{
		MeasurePopulation:          {"e1", "e2", "e3", "e4"},
		ScreeningOrReferral:        {"e1", "e2", "e3"},
		AtRiskOrReferral:           {"e1", "e3"},
		AssessmentWithStatus:       {"e1"},
		NotAtRiskWithoutReferral:   {"e2"},
		ModerateOrSevereAssessment: {"e1"},
		Diagnosis:                  {"e1"},
	}
	expected := BuildGroups(setsOf(m))
	baseline := CompareGroups(expected, expected)

	order := append([]string(nil), m[MeasurePopulation]...)
	for i := 0; i < 10; i++ {
		rand.Shuffle(len(order), func(a, b int) { order[a], order[b] = order[b], order[a] })
		permuted := map[Criterion][]string{}
		for k, v := range m {
			permuted[k] = v
		}
		permuted[MeasurePopulation] = append([]string(nil), order...)

		got := CompareGroups(expected, BuildGroups(setsOf(permuted)))
		require.Len(t, got, len(baseline))
		for gi := range got {
			assert.Equal(t, baseline[gi].Passed, got[gi].Passed, got[gi].GroupID)
		}
	}
}

func TestRankedObservations(t *testing.T) {
	assert.Equal(t, []int{4, 3, 1}, rankedObservations([4]int{1, 0, 4, 3}))
	assert.Empty(t, rankedObservations([4]int{}))
}
