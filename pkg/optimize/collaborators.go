package optimize

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/pkg/errors"

	"github.com/skillbench/skillbench/pkg/asset"
	"github.com/skillbench/skillbench/pkg/oracle"
	"github.com/skillbench/skillbench/pkg/run"
	"github.com/skillbench/skillbench/pkg/scoring"
)

// OracleAnalyzer is the default analysis collaborator. Dimension leaders are
// computed locally from the summary; the oracle contributes the advantage
// segments drawn from the leading skills' content.
type OracleAnalyzer struct {
	oracle  oracle.Client
	store   Store
	timeout time.Duration
}

var _ Analyzer = &OracleAnalyzer{}

// NewOracleAnalyzer creates the default analyzer.
func NewOracleAnalyzer(client oracle.Client, store Store, timeout time.Duration) *OracleAnalyzer {
	if timeout == 0 {
		timeout = run.DefaultTaskTimeout
	}
	return &OracleAnalyzer{oracle: client, store: store, timeout: timeout}
}

var analyzePromptTemplate = template.Must(template.New("analyze").Parse(
	`You are reviewing the ranked results of a skill evaluation run.

{{range .Entries}}## Skill {{.SkillID}} (rank {{.Rank}}, avg {{.AvgScore}})
{{.Content}}

{{end}}Identify the concrete instruction segments that the higher-ranked skills owe their advantage to. Respond with one segment per line, each line starting with "- ". Do not add any other text.
`))

type analyzeEntry struct {
	SkillID  string
	Rank     int
	AvgScore float64
	Content  string
}

// Analyze derives dimension leaders from the summary and asks the oracle
// for advantage segments.
func (a *OracleAnalyzer) Analyze(ctx context.Context, projectID string, summary *run.Summary) (*Analysis, error) {
	analysis := &Analysis{
		DimensionLeaders: dimensionLeaders(summary),
	}

	entries := make([]analyzeEntry, 0, len(summary.Entries))
	for _, e := range summary.Entries {
		skill, err := a.store.LoadSkill(projectID, e.SkillID)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load skill %s for analysis", e.SkillID)
		}
		entries = append(entries, analyzeEntry{
			SkillID:  e.SkillID,
			Rank:     e.Rank,
			AvgScore: e.AvgScore,
			Content:  skill.Content,
		})
	}

	var prompt bytes.Buffer
	if err := analyzePromptTemplate.Execute(&prompt, struct{ Entries []analyzeEntry }{entries}); err != nil {
		return nil, errors.Wrap(err, "failed to render analysis prompt")
	}

	resp, err := a.oracle.Generate(ctx, oracle.GenerateRequest{
		Prompt:  prompt.String(),
		Timeout: a.timeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "analysis call failed")
	}

	analysis.Report = resp.Text
	for _, line := range strings.Split(resp.Text, "\n") {
		line = strings.TrimSpace(line)
		if segment, ok := strings.CutPrefix(line, "- "); ok && segment != "" {
			analysis.AdvantageSegments = append(analysis.AdvantageSegments, segment)
		}
	}
	return analysis, nil
}

func dimensionLeaders(summary *run.Summary) map[string]string {
	leaders := make(map[string]string, len(scoring.Dimensions()))
	for _, d := range scoring.Dimensions() {
		best := -1.0
		for _, e := range summary.Entries {
			if v := e.Dimensions[d.Name]; v > best {
				best = v
				leaders[d.Name] = e.SkillID
			}
		}
	}
	return leaders
}

// OracleRecomposer is the default recompose collaborator: it asks the
// oracle for a strategy-specific rewrite of the base skill and persists the
// result as a new candidate skill asset.
type OracleRecomposer struct {
	oracle  oracle.Client
	store   Store
	timeout time.Duration
}

var _ Recomposer = &OracleRecomposer{}

// NewOracleRecomposer creates the default recomposer.
func NewOracleRecomposer(client oracle.Client, store Store, timeout time.Duration) *OracleRecomposer {
	if timeout == 0 {
		timeout = run.DefaultTaskTimeout
	}
	return &OracleRecomposer{oracle: client, store: store, timeout: timeout}
}

// strategyInstructions tells the oracle how each strategy reshapes the
// skill.
var strategyInstructions = map[Strategy]string{
	StrategyGreedy:         "Keep the overall structure and sharpen the weakest instructions. Make the smallest changes that should raise the score.",
	StrategyDimensionFocus: "Rework the skill to specifically improve the focus dimension named below, keeping everything unrelated intact.",
	StrategySegmentExplore: "Replace one underperforming section with a substantially different approach while retaining the advantage segments listed below.",
	StrategyCrossPollinate: "Merge the advantage segments listed below into the base skill, resolving conflicts in favor of the segments.",
	StrategyRandomSubset:   "Keep a minimal core of the base skill, drop the rest, and rebuild the missing parts from scratch with a different structure.",
}

var recomposePromptTemplate = template.Must(template.New("recompose").Parse(
	`You are rewriting a natural-language skill prompt to raise its evaluation score.

### Strategy: {{.Strategy}}
{{.Instruction}}
{{if .FocusDimension}}
### Focus dimension
{{.FocusDimension}}
{{end}}{{if .Segments}}
### Advantage segments to retain
{{range .Segments}}- {{.}}
{{end}}{{end}}{{if .History}}
### Score history
{{range .History}}round {{.Number}}: avg {{.AvgScore}} (delta {{.Delta}})
{{end}}{{end}}
### Base skill
{{.Content}}

Respond with the full text of the rewritten skill and nothing else.
`))

// Recompose produces one candidate skill and saves it as a new versioned
// asset.
func (r *OracleRecomposer) Recompose(ctx context.Context, req RecomposeRequest) (*asset.Skill, error) {
	instruction, ok := strategyInstructions[req.Strategy]
	if !ok {
		return nil, errors.Errorf("unknown strategy %q", req.Strategy)
	}

	var prompt bytes.Buffer
	err := recomposePromptTemplate.Execute(&prompt, struct {
		Strategy       Strategy
		Instruction    string
		FocusDimension string
		Segments       []string
		History        []*Round
		Content        string
	}{
		Strategy:       req.Strategy,
		Instruction:    instruction,
		FocusDimension: req.FocusDimension,
		Segments:       segmentsOf(req.Analysis),
		History:        req.History,
		Content:        req.BaseSkill.Content,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to render recompose prompt")
	}

	resp, err := r.oracle.Generate(ctx, oracle.GenerateRequest{
		Prompt:  prompt.String(),
		WorkDir: req.BaseSkill.WorkDir,
		Timeout: r.timeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "recompose call failed")
	}

	content := strings.TrimSpace(resp.Text)
	if content == "" {
		return nil, errors.New("recompose produced empty skill content")
	}

	round := 0
	if len(req.History) > 0 {
		round = req.History[len(req.History)-1].Number
	}
	skill := &asset.Skill{
		ID:        asset.NewID(),
		Version:   fmt.Sprintf("r%d-%s", round, strings.ToLower(string(req.Strategy))),
		Name:      req.BaseSkill.Name,
		Content:   content,
		WorkDir:   req.BaseSkill.WorkDir,
		Origin:    asset.OriginCandidate,
		CreatedAt: time.Now(),
	}
	skill.Kind = asset.KindSkill

	if err := r.store.SaveSkill(req.ProjectID, skill); err != nil {
		return nil, errors.Wrap(err, "failed to persist candidate skill")
	}
	return skill, nil
}

func segmentsOf(a *Analysis) []string {
	if a == nil {
		return nil
	}
	return a.AdvantageSegments
}
