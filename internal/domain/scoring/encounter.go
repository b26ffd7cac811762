package scoring

// EncounterID identifies an encounter within a single patient execution.
type EncounterID string

// EncounterSet is the set of encounters satisfying one clinical predicate.
// Sets are built once by the extractor and never mutated afterwards.
type EncounterSet map[EncounterID]struct{}

// Has reports whether id is a member of the set. A nil set has no members.
func (s EncounterSet) Has(id EncounterID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of members.
func (s EncounterSet) Len() int { return len(s) }

// NewEncounterSet builds a set from identifiers, ignoring empty ones.
func NewEncounterSet(ids ...EncounterID) EncounterSet {
	set := make(EncounterSet, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// ToEncounterIDSet normalizes an evaluator value into an encounter set.
// Anything that is not a list yields the empty set, and list elements without
// an extractable identifier are dropped.
func ToEncounterIDSet(value any) EncounterSet {
	return NewEncounterSet(extractIDs(value)...)
}

// ToEncounterIDSequence normalizes an evaluator value into an ordered list of
// encounter identifiers. The relative order of the input list is kept as is;
// no re-sorting by encounter period takes place. Later duplicates are dropped.
func ToEncounterIDSequence(value any) []EncounterID {
	ids := extractIDs(value)
	seen := make(map[EncounterID]struct{}, len(ids))
	out := make([]EncounterID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func extractIDs(value any) []EncounterID {
	switch v := value.(type) {
	case []any:
		ids := make([]EncounterID, 0, len(v))
		for _, item := range v {
			if id, ok := encounterID(item); ok {
				ids = append(ids, id)
			}
		}
		return ids
	case []string:
		ids := make([]EncounterID, 0, len(v))
		for _, s := range v {
			if s != "" {
				ids = append(ids, EncounterID(s))
			}
		}
		return ids
	case []EncounterID:
		ids := make([]EncounterID, 0, len(v))
		for _, id := range v {
			if id != "" {
				ids = append(ids, id)
			}
		}
		return ids
	case []map[string]any:
		ids := make([]EncounterID, 0, len(v))
		for _, item := range v {
			if id, ok := encounterID(item); ok {
				ids = append(ids, id)
			}
		}
		return ids
	default:
		return nil
	}
}

// encounterID accepts "e1", {"value": "e1"}, {"id": "e1"} and
// {"id": {"value": "e1"}}.
func encounterID(item any) (EncounterID, bool) {
	switch v := item.(type) {
	case string:
		return nonEmpty(v)
	case EncounterID:
		return nonEmpty(string(v))
	case map[string]any:
		if s, ok := v["value"].(string); ok {
			return nonEmpty(s)
		}
		switch id := v["id"].(type) {
		case string:
			return nonEmpty(id)
		case map[string]any:
			if s, ok := id["value"].(string); ok {
				return nonEmpty(s)
			}
		}
	}
	return "", false
}

func nonEmpty(s string) (EncounterID, bool) {
	if s == "" {
		return "", false
	}
	return EncounterID(s), true
}
