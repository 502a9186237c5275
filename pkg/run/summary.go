package run

import (
	"math"
	"sort"

	"github.com/skillbench/skillbench/pkg/scoring"
)

// SkillSummary is one ranked row of a run summary.
type SkillSummary struct {
	SkillID     string             `json:"skillId"`
	SkillName   string             `json:"skillName,omitempty"`
	Completed   int                `json:"completed"`
	Failed      int                `json:"failed"`
	ScoredCases int                `json:"scoredCases"`
	AvgScore    float64            `json:"avgScore"`
	Dimensions  map[string]float64 `json:"dimensions"`
	Rank        int                `json:"rank"`
}

// Summary is the derived per-skill ranking for a run. It is not
// authoritative; it can always be rebuilt from the result records.
type Summary struct {
	Entries []*SkillSummary `json:"entries"`
}

// Entry returns the summary row for the given skill, or nil.
func (s *Summary) Entry(skillID string) *SkillSummary {
	for _, e := range s.Entries {
		if e.SkillID == skillID {
			return e
		}
	}
	return nil
}

// Aggregate folds result records into a ranked per-skill summary. The
// average is taken over scored cases only and rounded to one decimal place.
// Skills are sorted by average score descending with completed-case count as
// tie-break; skills with zero scored cases average 0 and sort last.
func Aggregate(tasks []*Task, records []*ResultRecord) *Summary {
	byKey := make(map[string]*ResultRecord, len(records))
	for _, r := range records {
		byKey[r.SkillID+"/"+r.CaseID] = r
	}

	var order []string
	entries := make(map[string]*SkillSummary)
	for _, t := range tasks {
		entry, ok := entries[t.SkillID]
		if !ok {
			entry = &SkillSummary{
				SkillID:    t.SkillID,
				SkillName:  t.SkillName,
				Dimensions: make(map[string]float64),
			}
			entries[t.SkillID] = entry
			order = append(order, t.SkillID)
		}

		record, ok := byKey[t.Key()]
		if !ok {
			continue
		}
		switch record.Status {
		case ResultCompleted:
			entry.Completed++
		case ResultFailed:
			entry.Failed++
		}
		if record.Scored() {
			entry.ScoredCases++
			entry.AvgScore += float64(record.Score.Total)
			for _, d := range scoring.Dimensions() {
				entry.Dimensions[d.Name] += float64(record.Score.Value(d.Name))
			}
		}
	}

	ranked := make([]*SkillSummary, 0, len(order))
	for _, skillID := range order {
		entry := entries[skillID]
		if entry.ScoredCases > 0 {
			entry.AvgScore = round1(entry.AvgScore / float64(entry.ScoredCases))
			for name, sum := range entry.Dimensions {
				entry.Dimensions[name] = round1(sum / float64(entry.ScoredCases))
			}
		} else {
			entry.AvgScore = 0
		}
		ranked = append(ranked, entry)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].AvgScore != ranked[j].AvgScore {
			return ranked[i].AvgScore > ranked[j].AvgScore
		}
		return ranked[i].Completed > ranked[j].Completed
	})
	for i, entry := range ranked {
		entry.Rank = i + 1
	}

	return &Summary{Entries: ranked}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
