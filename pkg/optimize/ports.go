package optimize

import (
	"context"

	"github.com/skillbench/skillbench/pkg/asset"
	"github.com/skillbench/skillbench/pkg/run"
)

// Runner runs the project's full task matrix to a terminal state and
// returns the aggregated summary. The run scheduler satisfies this port;
// depending on it as an interface keeps the loop free of a hard dependency
// cycle with the scheduler and its collaborators.
type Runner interface {
	Run(ctx context.Context, projectID string) (*run.Summary, error)
}

// Analysis is the opaque product of the analysis collaborator. The loop only
// needs its completion; the segments feed recomposition.
type Analysis struct {
	Report            string            `json:"report,omitempty"`
	DimensionLeaders  map[string]string `json:"dimensionLeaders,omitempty"`
	AdvantageSegments []string          `json:"advantageSegments,omitempty"`
}

// Analyzer is the analysis collaborator.
type Analyzer interface {
	Analyze(ctx context.Context, projectID string, summary *run.Summary) (*Analysis, error)
}

// RecomposeRequest asks the recompose collaborator for one new skill
// variant.
type RecomposeRequest struct {
	ProjectID string
	BaseSkill *asset.Skill
	Strategy  Strategy

	// FocusDimension is set for DIMENSION_FOCUS candidates.
	FocusDimension string

	// History is the score history of all completed rounds so far.
	History []*Round

	Analysis *Analysis
}

// Recomposer produces and persists a new versioned skill variant.
type Recomposer interface {
	Recompose(ctx context.Context, req RecomposeRequest) (*asset.Skill, error)
}

// Store is the persistence surface of the optimization loop.
type Store interface {
	LoadProject(id string) (*asset.Project, error)
	SaveProject(p *asset.Project) error
	LoadSkill(projectID, skillID string) (*asset.Skill, error)
	SaveSkill(projectID string, skill *asset.Skill) error

	SaveRound(projectID, iterationID string, round *Round) error
	SaveReport(projectID string, report *Report) error
	SaveExplorationLog(projectID string, log *ExplorationLog) error
	LoadReport(projectID string) (*Report, error)
}
