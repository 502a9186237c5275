package optimize

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/skillbench/skillbench/pkg/asset"
	"github.com/skillbench/skillbench/pkg/logger"
)

// Explorer generates and tests strategy-specific skill variants between
// rounds and picks a single winner to carry forward. This is top-1 selection
// over beamWidth trials, not a multi-beam carry-forward.
type Explorer struct {
	runner     Runner
	recomposer Recomposer
	store      Store
	callback   ProgressCallback
}

// NewExplorer creates a beam explorer.
func NewExplorer(runner Runner, recomposer Recomposer, store Store) *Explorer {
	return &Explorer{
		runner:     runner,
		recomposer: recomposer,
		store:      store,
		callback:   NoopProgressCallback,
	}
}

// ExploreRequest describes one inter-round exploration step.
type ExploreRequest struct {
	ProjectID    string
	IterationID  string
	Round        *Round
	BaseSkill    *asset.Skill
	PlateauLevel int
	BeamWidth    int
	History      []*Round
	Analysis     *Analysis
}

// Explore tries one candidate per selected strategy, sequentially so each
// full run has the project's working context to itself, and returns the
// skill for the next round plus every candidate tried. When all candidates
// fail the base skill carries forward unchanged and a warning is returned.
func (e *Explorer) Explore(ctx context.Context, req ExploreRequest) (*asset.Skill, []*Candidate, []string) {
	log := logger.G(ctx).WithFields(logrus.Fields{
		"project": req.ProjectID,
		"round":   req.Round.Number,
	})

	project, err := e.store.LoadProject(req.ProjectID)
	if err != nil {
		return req.BaseSkill, nil, []string{"exploration skipped: " + err.Error()}
	}
	priorCandidateID := project.CandidateSkillID

	strategies := SelectStrategies(req.PlateauLevel, req.BeamWidth)
	log.WithField("strategies", strategies).Info("exploring candidates")

	candidates := make([]*Candidate, 0, len(strategies))
	var warnings []string

	for _, strategy := range strategies {
		candidate := e.tryCandidate(ctx, req, strategy)
		candidates = append(candidates, candidate)
		if candidate.Error != "" {
			warnings = append(warnings, "candidate "+string(strategy)+" failed: "+candidate.Error)
		}
		e.callback(ProgressEvent{
			Type:        EventCandidateTested,
			IterationID: req.IterationID,
			ProjectID:   req.ProjectID,
			Candidate:   candidate,
		})
	}

	winner := pickWinner(candidates)
	if winner == nil {
		log.Warn("every candidate failed, carrying previous skill forward")
		warnings = append(warnings, "every candidate failed, previous skill carried forward")
		e.registerCandidate(ctx, req.ProjectID, priorCandidateID)
		return req.BaseSkill, candidates, warnings
	}

	winner.Won = true
	e.registerCandidate(ctx, req.ProjectID, winner.SkillID)

	skill, err := e.store.LoadSkill(req.ProjectID, winner.SkillID)
	if err != nil {
		warnings = append(warnings, "failed to load winning skill: "+err.Error())
		return req.BaseSkill, candidates, warnings
	}
	return skill, candidates, warnings
}

// tryCandidate recomposes one variant, registers it as the project's sole
// candidate skill and runs the full matrix against it. Original skills keep
// their result records, so only the candidate's tasks actually execute.
func (e *Explorer) tryCandidate(ctx context.Context, req ExploreRequest, strategy Strategy) *Candidate {
	candidate := &Candidate{
		Round:    req.Round.Number,
		Strategy: strategy,
	}

	focus := ""
	if strategy == StrategyDimensionFocus {
		focus = FocusDimension(req.Round.Breakdown)
	}

	skill, err := e.recomposer.Recompose(ctx, RecomposeRequest{
		ProjectID:      req.ProjectID,
		BaseSkill:      req.BaseSkill,
		Strategy:       strategy,
		FocusDimension: focus,
		History:        req.History,
		Analysis:       req.Analysis,
	})
	if err != nil {
		candidate.Error = err.Error()
		return candidate
	}
	candidate.SkillID = skill.ID

	if err := e.registerCandidate(ctx, req.ProjectID, skill.ID); err != nil {
		candidate.Error = err.Error()
		return candidate
	}

	summary, err := e.runner.Run(ctx, req.ProjectID)
	if err != nil {
		candidate.Error = err.Error()
		return candidate
	}

	entry := summary.Entry(skill.ID)
	if entry == nil {
		candidate.Error = "candidate skill missing from run summary"
		return candidate
	}

	candidate.AvgScore = entry.AvgScore
	candidate.Breakdown = entry.Dimensions
	return candidate
}

// registerCandidate swaps the project's sole non-original skill. Original
// skills are never touched.
func (e *Explorer) registerCandidate(ctx context.Context, projectID, skillID string) error {
	project, err := e.store.LoadProject(projectID)
	if err != nil {
		return err
	}
	project.CandidateSkillID = skillID
	if err := e.store.SaveProject(project); err != nil {
		logger.G(ctx).WithError(err).Error("failed to register candidate skill")
		return err
	}
	return nil
}

func pickWinner(candidates []*Candidate) *Candidate {
	var winner *Candidate
	for _, c := range candidates {
		if c.Error != "" {
			continue
		}
		if winner == nil || c.AvgScore > winner.AvgScore {
			winner = c
		}
	}
	return winner
}
