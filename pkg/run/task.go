// Package run contains the execution core: the skill-by-case task matrix,
// the task executor that drives the oracle, the concurrent run scheduler
// with checkpointing and pause/resume, and the summary aggregator.
package run

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/skillbench/skillbench/pkg/scoring"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusPending     Status = "pending"
	StatusRunning     Status = "running"
	StatusPaused      Status = "paused"
	StatusInterrupted Status = "interrupted"
	StatusCompleted   Status = "completed"
)

// Result record statuses.
const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
)

// Caller-contract violations surfaced synchronously by the scheduler.
var (
	ErrAlreadyRunning = errors.New("a run is already active for this project")
	ErrNotRunning     = errors.New("no active run for this project")
	ErrNotPaused      = errors.New("run is not paused")
	ErrNotFound       = errors.New("project not found")
)

// Task is one skill-by-case execution unit. Identity is (SkillID, CaseID);
// tasks are immutable once the matrix is built.
type Task struct {
	SkillID      string `json:"skillId"`
	SkillVersion string `json:"skillVersion"`
	SkillName    string `json:"skillName,omitempty"`
	SkillContent string `json:"-"`
	WorkDir      string `json:"workDir,omitempty"`

	BaselineID string `json:"baselineId"`
	CaseID     string `json:"caseId"`
	Input      string `json:"input"`
	Expected   string `json:"expected"`
}

// Key returns the task's identity key.
func (t *Task) Key() string {
	return fmt.Sprintf("%s/%s", t.SkillID, t.CaseID)
}

// ResultRecord is the persisted outcome of one task attempt. A retry
// overwrites the prior record for the same identity; existence of a record
// is the idempotency marker for resume.
type ResultRecord struct {
	SkillID      string `json:"skillId"`
	SkillVersion string `json:"skillVersion,omitempty"`
	BaselineID   string `json:"baselineId,omitempty"`
	CaseID       string `json:"caseId"`

	Status      string `json:"status"`
	Output      string `json:"output,omitempty"`
	DurationMs  int64  `json:"durationMs"`
	ErrorReason string `json:"errorReason,omitempty"`

	// Score is present only for scored, completed tasks. A failed record
	// always has a nil score.
	Score *scoring.Score `json:"score,omitempty"`
}

// Scored reports whether the record carries a usable score.
func (r *ResultRecord) Scored() bool {
	return r.Status == ResultCompleted && r.Score != nil
}
