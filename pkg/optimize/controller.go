package optimize

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/skillbench/skillbench/pkg/asset"
	"github.com/skillbench/skillbench/pkg/logger"
)

// Controller state errors.
var (
	ErrIterationActive   = errors.New("an iteration is already active for this project")
	ErrNoActiveIteration = errors.New("no active iteration for this project")
)

// IterationProgress is a point-in-time view of an iteration.
type IterationProgress struct {
	IterationID  string  `json:"iterationId"`
	CurrentRound int     `json:"currentRound"`
	MaxRounds    int     `json:"maxRounds"`
	BestScore    float64 `json:"bestScore"`
	Finished     bool    `json:"finished"`
}

// control requests observed at round boundaries.
const (
	controlNone  = ""
	controlPause = "pause"
	controlStop  = "stop"
)

// Controller drives the outer optimization loop. It is a strictly
// sequential driver: at most one scheduler run is in flight at any time
// from its perspective.
type Controller struct {
	runner     Runner
	analyzer   Analyzer
	recomposer Recomposer
	store      Store
	explorer   *Explorer
	clock      clock.PassiveClock
	callback   ProgressCallback

	mu         sync.Mutex
	iterations map[string]*iterationState
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithIterationCallback registers an iteration event consumer.
func WithIterationCallback(cb ProgressCallback) ControllerOption {
	return func(c *Controller) {
		c.callback = cb
		c.explorer.callback = cb
	}
}

// WithControllerClock overrides the report clock, for tests.
func WithControllerClock(cl clock.PassiveClock) ControllerOption {
	return func(c *Controller) { c.clock = cl }
}

// NewController wires the loop's collaborators together. All dependencies
// are ports; concrete implementations are resolved here, at composition
// time.
func NewController(runner Runner, analyzer Analyzer, recomposer Recomposer, store Store, opts ...ControllerOption) *Controller {
	c := &Controller{
		runner:     runner,
		analyzer:   analyzer,
		recomposer: recomposer,
		store:      store,
		explorer:   NewExplorer(runner, recomposer, store),
		clock:      clock.RealClock{},
		callback:   NoopProgressCallback,
		iterations: make(map[string]*iterationState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type iterationState struct {
	id        string
	projectID string

	mu      sync.Mutex
	control string
	current int
	rounds  []*Round
	report  *Report

	done chan struct{}
}

func (st *iterationState) requestControl(v string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.control == controlNone {
		st.control = v
	}
}

func (st *iterationState) controlRequest() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.control
}

func (st *iterationState) appendRound(r *Round) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.rounds = append(st.rounds, r)
}

func (st *iterationState) completedRounds() []*Round {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]*Round, 0, len(st.rounds))
	for _, r := range st.rounds {
		if r.Status == RoundCompleted {
			out = append(out, r)
		}
	}
	return out
}

// StartIteration starts the optimization loop in the background and returns
// its identifier immediately. Progress arrives through the registered
// callback.
func (c *Controller) StartIteration(ctx context.Context, projectID string, params Params) (string, error) {
	params.applyDefaults()

	project, err := c.store.LoadProject(projectID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to load project %s", projectID)
	}
	if params.SkillID == "" {
		if len(project.SkillIDs) == 0 {
			return "", errors.Errorf("project %s has no skills configured", projectID)
		}
		params.SkillID = project.SkillIDs[0]
	}

	baseSkill, err := c.store.LoadSkill(projectID, params.SkillID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to load skill %s", params.SkillID)
	}

	c.mu.Lock()
	if _, ok := c.iterations[projectID]; ok {
		c.mu.Unlock()
		return "", errors.WithMessagef(ErrIterationActive, "project %s", projectID)
	}
	state := &iterationState{
		id:        asset.NewID(),
		projectID: projectID,
		done:      make(chan struct{}),
	}
	c.iterations[projectID] = state
	c.mu.Unlock()

	c.callback(ProgressEvent{
		Type:        EventIterationStart,
		IterationID: state.id,
		ProjectID:   projectID,
		Message:     "iteration started",
	})

	go c.runLoop(ctx, state, params, baseSkill)
	return state.id, nil
}

// PauseIteration requests a pause, observed at the next round boundary.
func (c *Controller) PauseIteration(projectID string) error {
	state, ok := c.lookup(projectID)
	if !ok {
		return errors.WithMessagef(ErrNoActiveIteration, "project %s", projectID)
	}
	state.requestControl(controlPause)
	return nil
}

// StopIteration requests a stop, observed at the next round boundary.
func (c *Controller) StopIteration(projectID string) error {
	state, ok := c.lookup(projectID)
	if !ok {
		return errors.WithMessagef(ErrNoActiveIteration, "project %s", projectID)
	}
	state.requestControl(controlStop)
	return nil
}

// GetProgress reports the iteration's position and best score so far.
func (c *Controller) GetProgress(projectID string) (IterationProgress, error) {
	state, ok := c.lookup(projectID)
	if !ok {
		return IterationProgress{}, errors.WithMessagef(ErrNoActiveIteration, "project %s", projectID)
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	progress := IterationProgress{
		IterationID:  state.id,
		CurrentRound: state.current,
		Finished:     state.report != nil,
	}
	for _, r := range state.rounds {
		if r.Status == RoundCompleted && r.AvgScore > progress.BestScore {
			progress.BestScore = r.AvgScore
		}
	}
	return progress, nil
}

// GetReport returns the finalized report, falling back to the persisted
// document for past iterations.
func (c *Controller) GetReport(projectID string) (*Report, error) {
	if state, ok := c.lookup(projectID); ok {
		state.mu.Lock()
		report := state.report
		state.mu.Unlock()
		if report != nil {
			return report, nil
		}
	}
	return c.store.LoadReport(projectID)
}

// Wait blocks until the iteration finishes and returns its report. An
// iteration that finalized before the caller got here is served from the
// persisted report.
func (c *Controller) Wait(projectID string) (*Report, error) {
	state, ok := c.lookup(projectID)
	if !ok {
		if report, err := c.store.LoadReport(projectID); err == nil {
			return report, nil
		}
		return nil, errors.WithMessagef(ErrNoActiveIteration, "project %s", projectID)
	}
	<-state.done

	state.mu.Lock()
	defer state.mu.Unlock()
	return state.report, nil
}

func (c *Controller) lookup(projectID string) (*iterationState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.iterations[projectID]
	return state, ok
}

// runLoop is the outer optimization loop. Round N+1 never starts before
// round N's records and summary are finalized; all collaborator failures
// abort the current round but keep prior rounds in the report.
func (c *Controller) runLoop(ctx context.Context, state *iterationState, params Params, baseSkill *asset.Skill) {
	log := logger.G(ctx).WithFields(logrus.Fields{
		"project":   state.projectID,
		"iteration": state.id,
	})

	startedAt := c.clock.Now()
	currentSkill := baseSkill
	explog := &ExplorationLog{
		IterationID: state.id,
		ProjectID:   state.projectID,
	}
	stopReason := StopMaxRounds

loop:
	for n := 1; n <= params.MaxRounds; n++ {
		if reason, stopped := c.checkControl(state); stopped {
			stopReason = reason
			break
		}

		state.mu.Lock()
		state.current = n
		state.mu.Unlock()

		round, err := c.runRound(ctx, state, params, n, currentSkill)
		if err != nil {
			log.WithError(err).WithField("round", n).Error("round failed, aborting iteration")
			stopReason = StopError
			break
		}

		plateau := PlateauLevel(state.completedRounds(), params.PlateauDelta, params.PlateauRoundsBeforeEscape)
		log.WithFields(logrus.Fields{
			"round":   n,
			"avg":     round.AvgScore,
			"delta":   round.Delta,
			"plateau": plateau,
		}).Info("round completed")

		if params.StopThreshold != nil && round.AvgScore >= *params.StopThreshold {
			stopReason = StopThresholdReached
			break
		}
		if n == params.MaxRounds {
			break
		}
		if reason, stopped := c.checkControl(state); stopped {
			stopReason = reason
			break loop
		}

		next, candidates, warnings := c.explorer.Explore(ctx, ExploreRequest{
			ProjectID:    state.projectID,
			IterationID:  state.id,
			Round:        round,
			BaseSkill:    currentSkill,
			PlateauLevel: plateau,
			BeamWidth:    params.BeamWidth,
			History:      state.completedRounds(),
			Analysis:     round.analysis,
		})
		explog.Candidates = append(explog.Candidates, candidates...)
		explog.Warnings = append(explog.Warnings, warnings...)
		currentSkill = next
	}

	c.finalize(ctx, state, explog, stopReason, startedAt)
}

// runRound executes steps (1)-(6) of one round: snapshot, full run,
// analysis, score readout, completed snapshot, delta.
func (c *Controller) runRound(ctx context.Context, state *iterationState, params Params, number int, skill *asset.Skill) (*Round, error) {
	round := &Round{
		Number:  number,
		SkillID: skill.ID,
		Status:  RoundRunning,
	}
	if err := c.store.SaveRound(state.projectID, state.id, round); err != nil {
		return nil, errors.Wrap(err, "failed to persist round snapshot")
	}
	c.callback(ProgressEvent{
		Type:        EventRoundStart,
		IterationID: state.id,
		ProjectID:   state.projectID,
		Round:       round,
	})

	fail := func(err error) (*Round, error) {
		round.Status = RoundFailed
		state.appendRound(round)
		if saveErr := c.store.SaveRound(state.projectID, state.id, round); saveErr != nil {
			logger.G(ctx).WithError(saveErr).Error("failed to persist failed round snapshot")
		}
		return nil, err
	}

	summary, err := c.runner.Run(ctx, state.projectID)
	if err != nil {
		return fail(errors.Wrap(err, "scheduler run failed"))
	}

	analysis, err := c.analyzer.Analyze(ctx, state.projectID, summary)
	if err != nil {
		return fail(errors.Wrap(err, "analysis failed"))
	}

	entry := summary.Entry(skill.ID)
	if entry == nil {
		return fail(errors.Errorf("skill %s missing from run summary", skill.ID))
	}

	round.AvgScore = entry.AvgScore
	round.Breakdown = entry.Dimensions
	round.analysis = analysis

	completed := state.completedRounds()
	if len(completed) > 0 {
		round.Delta = round.AvgScore - completed[len(completed)-1].AvgScore
	}

	round.Status = RoundCompleted
	state.appendRound(round)
	if err := c.store.SaveRound(state.projectID, state.id, round); err != nil {
		logger.G(ctx).WithError(err).Error("failed to persist completed round snapshot")
	}

	c.callback(ProgressEvent{
		Type:        EventRoundComplete,
		IterationID: state.id,
		ProjectID:   state.projectID,
		Round:       round,
	})
	return round, nil
}

func (c *Controller) checkControl(state *iterationState) (StopReason, bool) {
	switch state.controlRequest() {
	case controlPause:
		return StopPaused, true
	case controlStop:
		return StopManual, true
	default:
		return "", false
	}
}

// finalize computes the best round, writes the report and the exploration
// log, and signals completion. The report keeps every round, failed ones
// included, so an error stop still yields a best-so-far result.
func (c *Controller) finalize(ctx context.Context, state *iterationState, explog *ExplorationLog, reason StopReason, startedAt time.Time) {
	state.mu.Lock()
	rounds := append([]*Round(nil), state.rounds...)
	state.mu.Unlock()

	report := &Report{
		IterationID: state.id,
		ProjectID:   state.projectID,
		Rounds:      rounds,
		StopReason:  reason,
		StartedAt:   startedAt,
		FinishedAt:  c.clock.Now(),
	}

	var best *Round
	for _, r := range rounds {
		if r.Status != RoundCompleted {
			continue
		}
		if best == nil || r.AvgScore > best.AvgScore {
			best = r
		}
	}
	if best == nil && len(rounds) > 0 {
		best = rounds[0]
	}
	if best != nil {
		report.BestRound = best.Number
		report.BestSkillID = best.SkillID
		report.BestScore = best.AvgScore
	}

	if err := c.store.SaveReport(state.projectID, report); err != nil {
		logger.G(ctx).WithError(err).Error("failed to persist iteration report")
	}
	if err := c.store.SaveExplorationLog(state.projectID, explog); err != nil {
		logger.G(ctx).WithError(err).Error("failed to persist exploration log")
	}

	state.mu.Lock()
	state.report = report
	state.mu.Unlock()

	c.mu.Lock()
	delete(c.iterations, state.projectID)
	c.mu.Unlock()

	c.callback(ProgressEvent{
		Type:        EventIterationComplete,
		IterationID: state.id,
		ProjectID:   state.projectID,
		Report:      report,
		Message:     "iteration finished: " + string(reason),
	})
	close(state.done)
}
