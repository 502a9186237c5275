package optimize

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbench/skillbench/pkg/asset"
	"github.com/skillbench/skillbench/pkg/oracle"
	"github.com/skillbench/skillbench/pkg/run"
)

// echoOracle returns a canned reply and remembers the prompts it saw.
type echoOracle struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (o *echoOracle) Generate(ctx context.Context, req oracle.GenerateRequest) (*oracle.GenerateResponse, error) {
	o.mu.Lock()
	o.prompts = append(o.prompts, req.Prompt)
	o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	return &oracle.GenerateResponse{Text: o.reply, Duration: 100 * time.Millisecond}, nil
}

func rankedSummary() *run.Summary {
	return &run.Summary{Entries: []*run.SkillSummary{
		{
			SkillID:  "skill-base",
			Rank:     1,
			AvgScore: 82.5,
			Dimensions: map[string]float64{
				"functional_correctness": 26,
				"robustness":             17,
			},
		},
		{
			SkillID:  "cand-1",
			Rank:     2,
			AvgScore: 78.0,
			Dimensions: map[string]float64{
				"functional_correctness": 24,
				"robustness":             18,
			},
		},
	}}
}

func TestOracleAnalyzer(t *testing.T) {
	store := newMemStore("skill-base")
	store.skills["cand-1"] = &asset.Skill{ID: "cand-1", Content: "candidate instructions"}

	client := &echoOracle{reply: `- always restate the output format
- handle empty input explicitly

That is all.`}
	analyzer := NewOracleAnalyzer(client, store, time.Minute)

	analysis, err := analyzer.Analyze(context.Background(), "p1", rankedSummary())
	require.NoError(t, err)

	// Leaders come from the summary, per dimension, not from the oracle.
	assert.Equal(t, "skill-base", analysis.DimensionLeaders["functional_correctness"])
	assert.Equal(t, "cand-1", analysis.DimensionLeaders["robustness"])

	assert.Equal(t, []string{
		"always restate the output format",
		"handle empty input explicitly",
	}, analysis.AdvantageSegments)
	assert.NotEmpty(t, analysis.Report)

	// The prompt carries every ranked skill's content.
	client.mu.Lock()
	defer client.mu.Unlock()
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "base instructions")
	assert.Contains(t, client.prompts[0], "candidate instructions")
}

func TestOracleAnalyzerFailsOnMissingSkill(t *testing.T) {
	store := newMemStore("skill-base")
	analyzer := NewOracleAnalyzer(&echoOracle{reply: "- x"}, store, time.Minute)

	_, err := analyzer.Analyze(context.Background(), "p1", rankedSummary())
	assert.Error(t, err)
}

func TestOracleRecomposer(t *testing.T) {
	store := newMemStore("skill-base")
	client := &echoOracle{reply: "Rewritten skill text.\n"}
	recomposer := NewOracleRecomposer(client, store, time.Minute)

	history := []*Round{{Number: 2, AvgScore: 74, Delta: 1.5, Status: RoundCompleted}}
	skill, err := recomposer.Recompose(context.Background(), RecomposeRequest{
		ProjectID:      "p1",
		BaseSkill:      store.skills["skill-base"],
		Strategy:       StrategyDimensionFocus,
		FocusDimension: "robustness",
		History:        history,
		Analysis:       &Analysis{AdvantageSegments: []string{"restate the output format"}},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, skill.ID)
	assert.Equal(t, "r2-dimension_focus", skill.Version)
	assert.Equal(t, "Rewritten skill text.", skill.Content)
	assert.Equal(t, asset.OriginCandidate, skill.Origin)
	assert.Equal(t, asset.KindSkill, skill.Kind)

	// The variant is persisted under its own id.
	saved, err := store.LoadSkill("p1", skill.ID)
	require.NoError(t, err)
	assert.Equal(t, skill.Content, saved.Content)

	client.mu.Lock()
	defer client.mu.Unlock()
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "DIMENSION_FOCUS")
	assert.Contains(t, client.prompts[0], "robustness")
	assert.Contains(t, client.prompts[0], "restate the output format")
	assert.Contains(t, client.prompts[0], "base instructions")
}

func TestOracleRecomposerRejectsEmptyRewrite(t *testing.T) {
	store := newMemStore("skill-base")
	recomposer := NewOracleRecomposer(&echoOracle{reply: "   \n"}, store, time.Minute)

	_, err := recomposer.Recompose(context.Background(), RecomposeRequest{
		ProjectID: "p1",
		BaseSkill: store.skills["skill-base"],
		Strategy:  StrategyGreedy,
	})
	assert.Error(t, err)
}

func TestOracleRecomposerUnknownStrategy(t *testing.T) {
	store := newMemStore("skill-base")
	recomposer := NewOracleRecomposer(&echoOracle{reply: "x"}, store, time.Minute)

	_, err := recomposer.Recompose(context.Background(), RecomposeRequest{
		ProjectID: "p1",
		BaseSkill: store.skills["skill-base"],
		Strategy:  Strategy("NO_SUCH_STRATEGY"),
	})
	assert.Error(t, err)
}
