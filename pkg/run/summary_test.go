package run

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbench/skillbench/pkg/asset"
	"github.com/skillbench/skillbench/pkg/scoring"
)

func scoreWithTotal(total int) *scoring.Score {
	// The remainder lands on functional_correctness, keeping every
	// dimension in range for totals between 60 and 90.
	s := &scoring.Score{
		Robustness:        16,
		Readability:       12,
		Conciseness:       12,
		ComplexityControl: 10,
		FormatCompliance:  10,
		Total:             total,
	}
	s.FunctionalCorrectness = total - 60
	return s
}

func completedRecord(skillID, caseID string, total int) *ResultRecord {
	return &ResultRecord{
		SkillID: skillID,
		CaseID:  caseID,
		Status:  ResultCompleted,
		Score:   scoreWithTotal(total),
	}
}

func matrix(skillIDs []string, caseIDs []string) []*Task {
	var tasks []*Task
	for _, s := range skillIDs {
		for _, c := range caseIDs {
			tasks = append(tasks, &Task{SkillID: s, BaselineID: "b1", CaseID: c})
		}
	}
	return tasks
}

func TestAggregate(t *testing.T) {
	tasks := matrix([]string{"skill-a", "skill-b"}, []string{"c1", "c2"})

	records := []*ResultRecord{
		completedRecord("skill-a", "c1", 90),
		completedRecord("skill-a", "c2", 80),
		completedRecord("skill-b", "c1", 80),
		completedRecord("skill-b", "c2", 78),
	}

	summary := Aggregate(tasks, records)
	require.Len(t, summary.Entries, 2)

	first := summary.Entries[0]
	assert.Equal(t, "skill-a", first.SkillID)
	assert.Equal(t, 1, first.Rank)
	assert.Equal(t, 85.0, first.AvgScore)
	assert.Equal(t, 2, first.Completed)
	assert.Equal(t, 2, first.ScoredCases)

	second := summary.Entries[1]
	assert.Equal(t, "skill-b", second.SkillID)
	assert.Equal(t, 2, second.Rank)
	assert.Equal(t, 79.0, second.AvgScore)

	assert.Same(t, first, summary.Entry("skill-a"))
	assert.Nil(t, summary.Entry("no-such-skill"))
}

func TestAggregateAveragesScoredCasesOnly(t *testing.T) {
	tasks := matrix([]string{"skill-a"}, []string{"c1", "c2", "c3"})

	records := []*ResultRecord{
		completedRecord("skill-a", "c1", 90),
		// Completed but unscored: counted as completed, excluded from avg.
		{SkillID: "skill-a", CaseID: "c2", Status: ResultCompleted},
		{SkillID: "skill-a", CaseID: "c3", Status: ResultFailed, ErrorReason: "TIMEOUT: deadline exceeded"},
	}

	summary := Aggregate(tasks, records)
	require.Len(t, summary.Entries, 1)

	entry := summary.Entries[0]
	assert.Equal(t, 2, entry.Completed)
	assert.Equal(t, 1, entry.Failed)
	assert.Equal(t, 1, entry.ScoredCases)
	assert.Equal(t, 90.0, entry.AvgScore)
	assert.Equal(t, 30.0, entry.Dimensions["functional_correctness"])
}

func TestAggregateRoundsToOneDecimal(t *testing.T) {
	tasks := matrix([]string{"skill-a"}, []string{"c1", "c2", "c3"})

	records := []*ResultRecord{
		completedRecord("skill-a", "c1", 90),
		completedRecord("skill-a", "c2", 80),
		completedRecord("skill-a", "c3", 80),
	}

	summary := Aggregate(tasks, records)
	// 250/3 = 83.333... rounds to 83.3
	assert.Equal(t, 83.3, summary.Entries[0].AvgScore)
}

func TestAggregateUnscoredSkillSortsLast(t *testing.T) {
	tasks := matrix([]string{"skill-a", "skill-b"}, []string{"c1"})

	records := []*ResultRecord{
		{SkillID: "skill-a", CaseID: "c1", Status: ResultFailed, ErrorReason: "MODEL_ERROR: 500"},
		completedRecord("skill-b", "c1", 60),
	}

	summary := Aggregate(tasks, records)
	require.Len(t, summary.Entries, 2)
	assert.Equal(t, "skill-b", summary.Entries[0].SkillID)
	assert.Equal(t, 0.0, summary.Entries[1].AvgScore)
	assert.Equal(t, 2, summary.Entries[1].Rank)
}

func TestBuildTasksOrder(t *testing.T) {
	project := &asset.Project{
		ID:          "p1",
		SkillIDs:    []string{"skill-a", "skill-b"},
		BaselineIDs: []string{"b1"},
	}
	skills := []*asset.Skill{
		{ID: "skill-a", Version: "v1", Content: "do the thing"},
		{ID: "skill-b", Version: "v1", Content: "do the thing differently"},
	}
	baselines := []*asset.Baseline{
		{ID: "b1", Cases: []asset.Case{
			{ID: "c1", Input: "first input", Expected: "first expectation"},
			{ID: "c2", Input: "second input", Expected: "second expectation"},
		}},
	}

	tasks := BuildTasks(project, skills, baselines)

	require.Len(t, tasks, 4)
	assert.Equal(t, "skill-a/c1", tasks[0].Key())
	assert.Equal(t, "skill-a/c2", tasks[1].Key())
	assert.Equal(t, "skill-b/c1", tasks[2].Key())
	assert.Equal(t, "skill-b/c2", tasks[3].Key())
	assert.Equal(t, "do the thing", tasks[0].SkillContent)
}
