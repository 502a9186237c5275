package run

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skillbench/skillbench/pkg/logger"
	"github.com/skillbench/skillbench/pkg/oracle"
	"github.com/skillbench/skillbench/pkg/scoring"
	"github.com/skillbench/skillbench/pkg/util"
)

// TaskExecutor runs one task to a result record. Implementations never
// return an error: every failure mode is captured in the record.
type TaskExecutor interface {
	Execute(ctx context.Context, projectID string, task *Task) *ResultRecord
}

// Executor is the production TaskExecutor. It sends the case input to the
// oracle under the skill's instructions, then asks the oracle to grade the
// output against the rubric. Scoring failure is non-fatal.
type Executor struct {
	oracle  oracle.Client
	store   Store
	timeout time.Duration
}

var _ TaskExecutor = &Executor{}

// DefaultTaskTimeout bounds a single oracle call when no run timeout is
// configured.
const DefaultTaskTimeout = 5 * time.Minute

// NewExecutor creates an executor. A zero timeout selects
// DefaultTaskTimeout.
func NewExecutor(client oracle.Client, store Store, timeout time.Duration) *Executor {
	if timeout == 0 {
		timeout = DefaultTaskTimeout
	}
	return &Executor{oracle: client, store: store, timeout: timeout}
}

// Execute runs the task and persists its result record. The record is
// returned even when persisting fails; the scheduler's counters stay
// consistent either way.
func (e *Executor) Execute(ctx context.Context, projectID string, task *Task) *ResultRecord {
	log := logger.G(ctx).WithFields(logrus.Fields{
		"project": projectID,
		"skill":   task.SkillID,
		"case":    task.CaseID,
	})

	record := e.run(ctx, log, task)

	if util.IsVerbose(ctx) && record.Output != "" {
		log.WithField("durationMs", record.DurationMs).Info(record.Output)
	}

	if err := e.store.SaveResult(projectID, record); err != nil {
		log.WithError(err).Error("failed to persist result record")
	}

	return record
}

func (e *Executor) run(ctx context.Context, log *logrus.Entry, task *Task) *ResultRecord {
	record := &ResultRecord{
		SkillID:      task.SkillID,
		SkillVersion: task.SkillVersion,
		BaselineID:   task.BaselineID,
		CaseID:       task.CaseID,
	}

	start := time.Now()
	resp, err := e.oracle.Generate(ctx, oracle.GenerateRequest{
		Prompt:             task.Input,
		SystemInstructions: task.SkillContent,
		WorkDir:            task.WorkDir,
		Timeout:            e.timeout,
	})
	if err != nil {
		record.Status = ResultFailed
		record.DurationMs = time.Since(start).Milliseconds()
		record.ErrorReason = string(oracle.CodeOf(err)) + ": " + err.Error()
		log.WithField("code", oracle.CodeOf(err)).WithError(err).Warn("task execution failed")
		return record
	}

	record.Status = ResultCompleted
	record.Output = resp.Text
	record.DurationMs = resp.Duration.Milliseconds()

	// Scoring is judged independently of execution: a completed task with a
	// nil score still counts as completed.
	score, err := e.scoreOutput(ctx, task, resp.Text)
	if err != nil {
		log.WithError(err).Warn("scoring failed, task kept as completed without score")
		return record
	}

	record.Score = score
	return record
}

func (e *Executor) scoreOutput(ctx context.Context, task *Task, output string) (*scoring.Score, error) {
	prompt, err := scoring.BuildUserPrompt(scoring.PromptData{
		Input:    task.Input,
		Expected: task.Expected,
		Output:   output,
	})
	if err != nil {
		return nil, err
	}

	resp, err := e.oracle.Generate(ctx, oracle.GenerateRequest{
		Prompt:             prompt,
		SystemInstructions: scoring.BuildSystemPrompt(),
		WorkDir:            task.WorkDir,
		Timeout:            e.timeout,
	})
	if err != nil {
		return nil, err
	}

	return scoring.Parse(resp.Text)
}
