package run

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbench/skillbench/pkg/oracle"
)

const scorePayload = `{
  "functional_correctness": 26,
  "robustness": 15,
  "readability": 12,
  "conciseness": 11,
  "complexity_control": 8,
  "format_compliance": 9,
  "total": 81,
  "reasoning": "good answer, slightly verbose"
}`

type scriptedReply struct {
	text string
	err  error
}

// scriptedOracle pops one reply per Generate call and remembers requests.
type scriptedOracle struct {
	mu       sync.Mutex
	replies  []scriptedReply
	requests []oracle.GenerateRequest
}

func (o *scriptedOracle) Generate(ctx context.Context, req oracle.GenerateRequest) (*oracle.GenerateResponse, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, req)

	if len(o.replies) == 0 {
		return nil, oracle.NewError(oracle.CodeNotAvailable, "oracle script exhausted")
	}
	reply := o.replies[0]
	o.replies = o.replies[1:]
	if reply.err != nil {
		return nil, reply.err
	}
	return &oracle.GenerateResponse{Text: reply.text, Duration: 150 * time.Millisecond}, nil
}

func testTask() *Task {
	return &Task{
		SkillID:      "skill-a",
		SkillVersion: "v1",
		SkillContent: "Answer in three sentences.",
		BaselineID:   "b1",
		CaseID:       "c1",
		Input:        "explain binary search",
		Expected:     "a correct three sentence explanation",
	}
}

func TestExecutorCompletesAndScores(t *testing.T) {
	store, _ := testFixture([]string{"skill-a"}, []string{"c1"})
	client := &scriptedOracle{replies: []scriptedReply{
		{text: "Binary search halves the interval each step..."},
		{text: scorePayload},
	}}

	executor := NewExecutor(client, store, time.Minute)
	record := executor.Execute(context.Background(), "p1", testTask())

	assert.Equal(t, ResultCompleted, record.Status)
	assert.Contains(t, record.Output, "Binary search")
	require.NotNil(t, record.Score)
	assert.Equal(t, 81, record.Score.Total)
	assert.True(t, record.Scored())

	// The generation call carries the skill content as system instructions;
	// the scoring call carries the rubric.
	require.Len(t, client.requests, 2)
	assert.Equal(t, "Answer in three sentences.", client.requests[0].SystemInstructions)
	assert.Equal(t, "explain binary search", client.requests[0].Prompt)
	assert.Contains(t, client.requests[1].SystemInstructions, "functional_correctness")
	assert.Contains(t, client.requests[1].Prompt, "explain binary search")

	// The record is persisted under its task identity.
	saved, err := store.LoadResult("p1", "skill-a", "c1")
	require.NoError(t, err)
	assert.Equal(t, ResultCompleted, saved.Status)
}

func TestExecutorRecordsFailure(t *testing.T) {
	store, _ := testFixture([]string{"skill-a"}, []string{"c1"})
	client := &scriptedOracle{replies: []scriptedReply{
		{err: oracle.NewError(oracle.CodeTimeout, "generation timed out")},
	}}

	executor := NewExecutor(client, store, time.Minute)
	record := executor.Execute(context.Background(), "p1", testTask())

	assert.Equal(t, ResultFailed, record.Status)
	assert.Nil(t, record.Score)
	assert.Contains(t, record.ErrorReason, "TIMEOUT")
	assert.False(t, record.Scored())

	saved, err := store.LoadResult("p1", "skill-a", "c1")
	require.NoError(t, err)
	assert.Equal(t, ResultFailed, saved.Status)
}

func TestExecutorKeepsCompletionWhenScoringFails(t *testing.T) {
	tt := map[string]struct {
		scoreReply scriptedReply
	}{
		"scoring call errors": {
			scoreReply: scriptedReply{err: oracle.NewError(oracle.CodeModelError, "500 from endpoint")},
		},
		"score payload unparseable": {
			scoreReply: scriptedReply{text: "I would rate this quite highly."},
		},
		"score breaks sum invariant": {
			scoreReply: scriptedReply{text: `{
				"functional_correctness": 26,
				"robustness": 15,
				"readability": 12,
				"conciseness": 11,
				"complexity_control": 8,
				"format_compliance": 9,
				"total": 95
			}`},
		},
	}

	for tn, tc := range tt {
		t.Run(tn, func(t *testing.T) {
			store, _ := testFixture([]string{"skill-a"}, []string{"c1"})
			client := &scriptedOracle{replies: []scriptedReply{
				{text: "a plausible answer"},
				tc.scoreReply,
			}}

			executor := NewExecutor(client, store, time.Minute)
			record := executor.Execute(context.Background(), "p1", testTask())

			assert.Equal(t, ResultCompleted, record.Status)
			assert.Nil(t, record.Score)
			assert.False(t, record.Scored())
		})
	}
}
