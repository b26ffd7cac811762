package harness

import (
	"github.com/montanaflynn/stats"

	"github.com/ehr/measure-harness/internal/domain/scoring"
)

// Summary aggregates a run.
type Summary struct {
	Total   int            `json:"total"`
	Passed  int            `json:"passed"`
	Failed  int            `json:"failed"`
	Errored int            `json:"errored"`
	Groups  []GroupSummary `json:"groups"`
}

// GroupSummary aggregates one measure group across patients.
type GroupSummary struct {
	GroupID     scoring.GroupID `json:"groupId"`
	Compared    int             `json:"compared"`
	Passed      int             `json:"passed"`
	MeanScore   float64         `json:"meanScore"`
	MedianScore float64         `json:"medianScore"`
}

// OK reports whether every patient passed.
func (s Summary) OK() bool {
	return s.Failed == 0 && s.Errored == 0
}

// Summarize totals results per patient and per group. Group statistics are
// over actual measure scores of compared groups.
func Summarize(results []PatientResult) Summary {
	s := Summary{Total: len(results)}
	scores := make(map[scoring.GroupID]stats.Float64Data, scoring.GroupCount)
	byGroup := make(map[scoring.GroupID]*GroupSummary, scoring.GroupCount)
	for _, id := range scoring.GroupIDs {
		byGroup[id] = &GroupSummary{GroupID: id}
	}

	for _, r := range results {
		switch r.Status() {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusErrored:
			s.Errored++
		}
		for _, c := range r.Comparisons {
			g, ok := byGroup[c.GroupID]
			if !ok {
				continue
			}
			g.Compared++
			if c.Passed {
				g.Passed++
			}
			scores[c.GroupID] = append(scores[c.GroupID], c.ActualScore)
		}
	}

	for _, id := range scoring.GroupIDs {
		g := byGroup[id]
		if data := scores[id]; len(data) > 0 {
			g.MeanScore, _ = stats.Mean(data)
			g.MedianScore, _ = stats.Median(data)
		}
		s.Groups = append(s.Groups, *g)
	}
	return s
}
