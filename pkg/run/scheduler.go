package run

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/skillbench/skillbench/pkg/asset"
	"github.com/skillbench/skillbench/pkg/logger"
)

// Progress is a point-in-time view of a run's counters.
type Progress struct {
	Status    Status `json:"status"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
}

// Scheduler fans a project's task matrix out into one execution stream per
// skill. Cases within a stream run strictly in order; streams make
// independent progress. Cancellation is cooperative and takes effect at task
// boundaries only.
type Scheduler struct {
	store    Store
	executor TaskExecutor
	clock    clock.PassiveClock
	callback ProgressCallback

	mu       sync.Mutex
	runs     map[string]*runState
	finished map[string]*runState
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithProgressCallback registers a progress event consumer.
func WithProgressCallback(cb ProgressCallback) SchedulerOption {
	return func(s *Scheduler) { s.callback = cb }
}

// WithClock overrides the checkpoint clock, for tests.
func WithClock(c clock.PassiveClock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// NewScheduler creates a scheduler over the given store and executor.
func NewScheduler(store Store, executor TaskExecutor, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:    store,
		executor: executor,
		clock:    clock.RealClock{},
		callback: NoopProgressCallback,
		runs:     make(map[string]*runState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// runState is the in-memory state of one active run. The scheduler is the
// only writer of its counters and of the project checkpoint.
type runState struct {
	projectID string
	tasks     []*Task

	mu        sync.Mutex
	cond      *sync.Cond
	status    Status
	counted   map[string]bool
	completed int
	failed    int
	active    bool
	summary   *Summary
	terminal  chan struct{}

	// persistMu serializes checkpoint writes so counter updates never block
	// on disk I/O.
	persistMu sync.Mutex
}

func newRunState(projectID string, tasks []*Task) *runState {
	st := &runState{
		projectID: projectID,
		tasks:     tasks,
		status:    StatusRunning,
		counted:   make(map[string]bool),
		terminal:  make(chan struct{}),
	}
	st.cond = sync.NewCond(&st.mu)
	return st
}

func (st *runState) currentStatus() Status {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.status
}

func (st *runState) setStatus(status Status) {
	st.mu.Lock()
	st.status = status
	st.mu.Unlock()
	st.cond.Broadcast()
}

// awaitRunnable parks while the run is paused. It returns false once the run
// is no longer runnable.
func (st *runState) awaitRunnable() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	for st.status == StatusPaused {
		st.cond.Wait()
	}
	return st.status == StatusRunning
}

func (st *runState) count(key, resultStatus string) (completed, failed int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.counted[key] {
		st.counted[key] = true
		if resultStatus == ResultFailed {
			st.failed++
		} else {
			st.completed++
		}
	}
	return st.completed, st.failed
}

func (st *runState) isCounted(key string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.counted[key]
}

func (st *runState) progress() Progress {
	st.mu.Lock()
	defer st.mu.Unlock()
	return Progress{
		Status:    st.status,
		Total:     len(st.tasks),
		Completed: st.completed,
		Failed:    st.failed,
	}
}

// Start begins a run for the project. It returns immediately; progress is
// reported through the registered callback. Starting a project with an
// active run fails with ErrAlreadyRunning.
func (s *Scheduler) Start(ctx context.Context, projectID string) error {
	s.mu.Lock()
	if _, ok := s.runs[projectID]; ok {
		s.mu.Unlock()
		return errors.WithMessagef(ErrAlreadyRunning, "project %s", projectID)
	}
	s.mu.Unlock()

	state, err := s.buildRun(projectID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.runs[projectID]; ok {
		s.mu.Unlock()
		return errors.WithMessagef(ErrAlreadyRunning, "project %s", projectID)
	}
	s.runs[projectID] = state
	s.mu.Unlock()

	s.persistCheckpoint(ctx, state)
	s.emit(state, ProgressEvent{
		Type:      EventRunStart,
		ProjectID: projectID,
		Message:   "run started",
	})

	s.launch(ctx, state)
	return nil
}

// buildRun loads the project's skills and baselines and expands the task
// matrix.
func (s *Scheduler) buildRun(projectID string) (*runState, error) {
	project, err := s.store.LoadProject(projectID)
	if err != nil {
		return nil, errors.WithMessagef(ErrNotFound, "project %s: %v", projectID, err)
	}

	skills := make([]*asset.Skill, 0, len(project.SkillIDs)+1)
	for _, id := range project.ActiveSkillIDs() {
		skill, err := s.store.LoadSkill(projectID, id)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load skill %s", id)
		}
		skills = append(skills, skill)
	}

	baselines := make([]*asset.Baseline, 0, len(project.BaselineIDs))
	for _, id := range project.BaselineIDs {
		baseline, err := s.store.LoadBaseline(projectID, id)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load baseline %s", id)
		}
		baselines = append(baselines, baseline)
	}

	tasks := BuildTasks(project, skills, baselines)
	if len(tasks) == 0 {
		return nil, errors.Errorf("project %s has no tasks to run", projectID)
	}

	return newRunState(projectID, tasks), nil
}

// launch starts one stream per skill and a drain watcher.
func (s *Scheduler) launch(ctx context.Context, state *runState) {
	state.mu.Lock()
	state.active = true
	state.mu.Unlock()

	var order []string
	groups := make(map[string][]*Task)
	for _, t := range state.tasks {
		if _, ok := groups[t.SkillID]; !ok {
			order = append(order, t.SkillID)
		}
		groups[t.SkillID] = append(groups[t.SkillID], t)
	}

	eg := &errgroup.Group{}
	for _, skillID := range order {
		stream := groups[skillID]
		eg.Go(func() error {
			s.runStream(ctx, state, stream)
			return nil
		})
	}

	go func() {
		_ = eg.Wait()
		s.onDrained(ctx, state)
	}()
}

// runStream executes one skill's tasks strictly in case order, checking the
// cooperative status flag before every task.
func (s *Scheduler) runStream(ctx context.Context, state *runState, tasks []*Task) {
	for _, task := range tasks {
		if ctx.Err() != nil {
			state.setStatus(StatusInterrupted)
			return
		}
		if !state.awaitRunnable() {
			return
		}
		if state.isCounted(task.Key()) {
			continue
		}

		// An existing record makes resume idempotent: count it, skip the
		// task, leave the record untouched.
		if existing, err := s.store.LoadResult(state.projectID, task.SkillID, task.CaseID); err == nil {
			completed, failed := state.count(task.Key(), existing.Status)
			s.emit(state, ProgressEvent{
				Type:      EventTaskSkipped,
				ProjectID: state.projectID,
				Task:      task,
				Record:    existing,
				Total:     len(state.tasks),
				Completed: completed,
				Failed:    failed,
			})
			s.persistCheckpoint(ctx, state)
			continue
		}

		s.emit(state, ProgressEvent{
			Type:      EventTaskStart,
			ProjectID: state.projectID,
			Task:      task,
			Total:     len(state.tasks),
		})

		record := s.executor.Execute(ctx, state.projectID, task)
		completed, failed := state.count(task.Key(), record.Status)

		s.emit(state, ProgressEvent{
			Type:      EventTaskDone,
			ProjectID: state.projectID,
			Task:      task,
			Record:    record,
			Total:     len(state.tasks),
			Completed: completed,
			Failed:    failed,
		})
		s.persistCheckpoint(ctx, state)
	}
}

// onDrained finalizes a run once every stream has finished or stopped.
func (s *Scheduler) onDrained(ctx context.Context, state *runState) {
	log := logger.G(ctx).WithField("project", state.projectID)

	state.mu.Lock()
	state.active = false
	status := state.status
	if status == StatusRunning {
		state.status = StatusCompleted
		status = StatusCompleted
	}
	state.mu.Unlock()

	switch status {
	case StatusCompleted:
		records, err := s.store.ListResults(state.projectID)
		if err != nil {
			log.WithError(err).Error("failed to list result records for summary")
			records = nil
		}
		summary := Aggregate(state.tasks, records)
		if err := s.store.SaveSummary(state.projectID, summary); err != nil {
			log.WithError(err).Error("failed to persist run summary")
		}

		state.mu.Lock()
		state.summary = summary
		state.mu.Unlock()

		s.persistCheckpoint(ctx, state)
		s.removeRun(state.projectID)
		s.emit(state, ProgressEvent{
			Type:      EventRunComplete,
			ProjectID: state.projectID,
			Message:   "run completed",
		})
		close(state.terminal)

	case StatusPaused:
		// All streams exhausted their lists right as the pause landed.
		// Keep the checkpoint for a later resume.
		s.persistCheckpoint(ctx, state)

	case StatusInterrupted:
		s.persistCheckpoint(ctx, state)
		s.removeRun(state.projectID)
		s.emit(state, ProgressEvent{
			Type:      EventRunStopped,
			ProjectID: state.projectID,
			Message:   "run stopped",
		})
		close(state.terminal)
	}
}

// Pause asks the run to stop at the next task boundary. In-flight tasks are
// not preempted; the checkpoint is preserved for resume.
func (s *Scheduler) Pause(ctx context.Context, projectID string) error {
	state, ok := s.lookup(projectID)
	if !ok {
		return errors.WithMessagef(ErrNotRunning, "project %s", projectID)
	}

	state.mu.Lock()
	if state.status != StatusRunning {
		state.mu.Unlock()
		return errors.WithMessagef(ErrNotRunning, "project %s is %s", projectID, state.status)
	}
	state.status = StatusPaused
	state.mu.Unlock()

	s.persistCheckpoint(ctx, state)
	s.emit(state, ProgressEvent{
		Type:      EventRunPaused,
		ProjectID: projectID,
		Message:   "run paused",
	})
	return nil
}

// Resume continues a paused run and returns the number of remaining tasks.
// A run paused in a previous process is rebuilt from its checkpoint; the
// existing result records make that idempotent.
func (s *Scheduler) Resume(ctx context.Context, projectID string) (int, error) {
	if state, ok := s.lookup(projectID); ok {
		state.mu.Lock()
		if state.status != StatusPaused {
			state.mu.Unlock()
			return 0, errors.WithMessagef(ErrNotPaused, "project %s is %s", projectID, state.status)
		}
		state.status = StatusRunning
		remaining := len(state.tasks) - state.completed - state.failed
		relaunch := !state.active
		state.mu.Unlock()
		state.cond.Broadcast()

		if relaunch {
			s.launch(ctx, state)
		}
		s.persistCheckpoint(ctx, state)
		return remaining, nil
	}

	// Disk fallback: a run paused before a restart.
	project, err := s.store.LoadProject(projectID)
	if err != nil {
		return 0, errors.WithMessagef(ErrNotFound, "project %s: %v", projectID, err)
	}
	if project.Run.Status != string(StatusPaused) {
		return 0, errors.WithMessagef(ErrNotPaused, "project %s checkpoint is %q", projectID, project.Run.Status)
	}

	state, err := s.buildRun(projectID)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.runs[projectID] = state
	s.mu.Unlock()

	remaining := len(state.tasks) - project.Run.Completed - project.Run.Failed
	s.persistCheckpoint(ctx, state)
	s.launch(ctx, state)
	return remaining, nil
}

// Stop interrupts the run at the next task boundary. Interrupted is
// terminal: the in-memory run state is discarded, though on-disk result
// records remain and make a new run idempotent-resumable.
func (s *Scheduler) Stop(ctx context.Context, projectID string) error {
	state, ok := s.lookup(projectID)
	if !ok {
		return errors.WithMessagef(ErrNotRunning, "project %s", projectID)
	}

	state.mu.Lock()
	wasActive := state.active
	state.status = StatusInterrupted
	state.mu.Unlock()
	state.cond.Broadcast()

	if !wasActive {
		// Paused with drained streams: finalize here, nothing will wake.
		s.onDrained(ctx, state)
	}
	return nil
}

// GetProgress returns the run's counters, falling back to the persisted
// checkpoint when no run is in memory.
func (s *Scheduler) GetProgress(projectID string) (Progress, error) {
	if state, ok := s.lookup(projectID); ok {
		return state.progress(), nil
	}

	project, err := s.store.LoadProject(projectID)
	if err != nil {
		return Progress{}, errors.WithMessagef(ErrNotFound, "project %s: %v", projectID, err)
	}

	status := Status(project.Run.Status)
	if status == "" {
		status = StatusPending
	}
	return Progress{
		Status:    status,
		Total:     project.Run.Total,
		Completed: project.Run.Completed,
		Failed:    project.Run.Failed,
	}, nil
}

// Wait blocks until the run reaches a terminal state and returns it.
func (s *Scheduler) Wait(projectID string) (Status, error) {
	state, ok := s.lookup(projectID)
	if !ok {
		// A fast run can finalize before the caller gets here.
		if state, ok = s.lookupTerminal(projectID); !ok {
			return "", errors.WithMessagef(ErrNotRunning, "project %s", projectID)
		}
	}
	<-state.terminal
	return state.currentStatus(), nil
}

// Run starts a run and blocks until it reaches a terminal state, returning
// the aggregated summary. An interrupted run is reported as an error.
func (s *Scheduler) Run(ctx context.Context, projectID string) (*Summary, error) {
	if err := s.Start(ctx, projectID); err != nil {
		return nil, err
	}

	status, err := s.Wait(projectID)
	if err != nil {
		return nil, err
	}
	if status != StatusCompleted {
		return nil, errors.Errorf("run for project %s ended %s", projectID, status)
	}

	state, _ := s.lookupTerminal(projectID)
	if state == nil || state.summary == nil {
		return nil, errors.Errorf("run for project %s produced no summary", projectID)
	}
	return state.summary, nil
}

func (s *Scheduler) lookup(projectID string) (*runState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.runs[projectID]
	return state, ok
}

// lookupTerminal returns the last terminal state for a project. Terminal
// states are removed from the registry but kept here briefly so blocking
// callers can read the summary.
func (s *Scheduler) lookupTerminal(projectID string) (*runState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.finished[projectID]
	return state, ok
}

func (s *Scheduler) removeRun(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.runs[projectID]; ok {
		if s.finished == nil {
			s.finished = make(map[string]*runState)
		}
		s.finished[projectID] = state
		delete(s.runs, projectID)
	}
}

// persistCheckpoint writes the run counters into the project document.
func (s *Scheduler) persistCheckpoint(ctx context.Context, state *runState) {
	state.persistMu.Lock()
	defer state.persistMu.Unlock()

	project, err := s.store.LoadProject(state.projectID)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("project", state.projectID).
			Error("failed to load project for checkpoint")
		return
	}

	p := state.progress()
	project.Run = asset.RunCheckpoint{
		Status:         string(p.Status),
		Total:          p.Total,
		Completed:      p.Completed,
		Failed:         p.Failed,
		LastCheckpoint: s.clock.Now(),
	}
	if err := s.store.SaveProject(project); err != nil {
		logger.G(ctx).WithError(err).WithField("project", state.projectID).
			Error("failed to persist checkpoint")
	}
}

func (s *Scheduler) emit(state *runState, event ProgressEvent) {
	if s.callback == nil {
		return
	}
	if event.Total == 0 {
		p := state.progress()
		event.Total = p.Total
		event.Completed = p.Completed
		event.Failed = p.Failed
	}
	s.callback(event)
}
