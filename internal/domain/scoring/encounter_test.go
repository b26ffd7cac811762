package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestToEncounterIDSet_Encodings(t *testing.T) {
	value := decodeJSON(t, `[
		"e1",
		{"value": "e2"},
		{"id": "e3"},
		{"id": {"value": "e4"}},
		{"resourceType": "Encounter"},
		{"value": 7},
		"",
		42,
		null
	]`)

	set := ToEncounterIDSet(value)
	assert.Equal(t, 4, set.Len())
	for _, id := range []EncounterID{"e1", "e2", "e3", "e4"} {
		assert.True(t, set.Has(id), "expected %s in set", id)
	}
}

func TestToEncounterIDSet_NonSequence(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"nil", nil},
		{"string", "e1"},
		{"number", 3.0},
		{"object", map[string]any{"value": "e1"}},
		{"bool", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 0, ToEncounterIDSet(tt.value).Len())
			assert.Empty(t, ToEncounterIDSequence(tt.value))
		})
	}
}

func TestToEncounterIDSet_Deduplicates(t *testing.T) {
	set := ToEncounterIDSet([]any{"e1", map[string]any{"value": "e1"}, "e2"})
	assert.Equal(t, 2, set.Len())
}

func TestToEncounterIDSequence_KeepsInputOrder(t *testing.T) {
	value := decodeJSON(t, `[
		{"id": {"value": "late"}, "period": {"start": "2024-03-01"}},
		{"id": {"value": "early"}, "period": {"start": "2024-01-01"}},
		"middle",
		"late"
	]`)

	seq := ToEncounterIDSequence(value)
	assert.Equal(t, []EncounterID{"late", "early", "middle"}, seq)
}

func TestToEncounterIDSequence_TypedSlices(t *testing.T) {
	assert.Equal(t, []EncounterID{"a", "b"}, ToEncounterIDSequence([]string{"a", "", "b"}))
	assert.Equal(t, []EncounterID{"x"}, ToEncounterIDSequence([]EncounterID{"x", "x"}))
	assert.Equal(t, []EncounterID{"m"}, ToEncounterIDSequence([]map[string]any{{"value": "m"}, {}}))
}

func TestEncounterSet_NilHasNothing(t *testing.T) {
	var s EncounterSet
	assert.False(t, s.Has("e1"))
	assert.Equal(t, 0, s.Len())
}
