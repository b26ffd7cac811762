package scoring

import "fmt"

// GroupID identifies one of the six measure groups.
type GroupID string

const (
	Group1 GroupID = "Group_1"
	Group2 GroupID = "Group_2"
	Group3 GroupID = "Group_3"
	Group4 GroupID = "Group_4"
	Group5 GroupID = "Group_5"
	Group6 GroupID = "Group_6"
)

// GroupIDs is the fixed reporting order.
var GroupIDs = []GroupID{Group1, Group2, Group3, Group4, Group5, Group6}

// GroupCount is the number of measure groups in every report.
const GroupCount = 6

// ObservationSlots is the number of observation values carried per group.
const ObservationSlots = 4

var groupNames = map[GroupID]string{
	Group1: "Malnutrition Risk Screening",
	Group2: "Nutrition Assessment",
	Group3: "Malnutrition Diagnosis",
	Group4: "Nutrition Care Plan",
	Group5: "Total Malnutrition Components Score",
	Group6: "Total Malnutrition Composite Score (%)",
}

var observationNames = map[GroupID][ObservationSlots]string{
	Group1: {"Screened or Referred", "", "", ""},
	Group2: {"Assessed with Status", "", "", ""},
	Group3: {"Diagnosis Documented", "", "", ""},
	Group4: {"Care Plan Documented", "", "", ""},
	Group5: {"Encounter 1 Score", "Encounter 2 Score", "Encounter 3 Score", "Encounter 4 Score"},
	Group6: {"Encounter 1 %", "Encounter 2 %", "Encounter 3 %", "Encounter 4 %"},
}

// ParseGroupID validates a group identifier.
func ParseGroupID(s string) (GroupID, error) {
	g := GroupID(s)
	if _, ok := groupNames[g]; !ok {
		return "", fmt.Errorf("unknown measure group %q", s)
	}
	return g, nil
}

// Valid reports whether g is one of Group_1..Group_6.
func (g GroupID) Valid() bool {
	_, ok := groupNames[g]
	return ok
}

// PerEncounter reports whether the group's observation slots hold
// per-encounter values (Group_5 and Group_6) rather than a population total.
func (g GroupID) PerEncounter() bool {
	return g == Group5 || g == Group6
}

// DisplayName returns the human readable group name, or the id itself for
// unknown groups.
func (g GroupID) DisplayName() string {
	if name, ok := groupNames[g]; ok {
		return name
	}
	return string(g)
}

// ObservationName returns the display name of observation slot i (0-based).
// Unused slots have an empty name.
func (g GroupID) ObservationName(i int) string {
	if i < 0 || i >= ObservationSlots {
		return ""
	}
	return observationNames[g][i]
}

// PopulationCounts holds the population counts and observation slots of a
// group.
type PopulationCounts struct {
	InitialPopulation          int                   `json:"initialPopulation" yaml:"initialPopulation"`
	MeasurePopulation          int                   `json:"measurePopulation" yaml:"measurePopulation"`
	MeasurePopulationExclusion int                   `json:"measurePopulationExclusion" yaml:"measurePopulationExclusion"`
	Observations               [ObservationSlots]int `json:"observations" yaml:"observations"`
}

// RecordKind tags a GroupRecord as computed or expected.
type RecordKind string

const (
	KindExpected RecordKind = "expected"
	KindActual   RecordKind = "actual"
)

// GroupRecord is one measure group's populations and score.
type GroupRecord struct {
	GroupID      GroupID          `json:"groupId" yaml:"groupId"`
	Kind         RecordKind       `json:"kind,omitempty" yaml:"kind,omitempty"`
	Populations  PopulationCounts `json:"populations" yaml:"populations"`
	MeasureScore float64          `json:"measureScore" yaml:"measureScore"`
}
