// Package asset defines the authored documents the harness operates on:
// skills under evaluation, baselines of test cases, and the per-project
// configuration that ties them together and carries the run checkpoint.
package asset

import (
	"time"

	"github.com/google/uuid"

	"github.com/skillbench/skillbench/pkg/util"
)

const (
	KindSkill    = "Skill"
	KindBaseline = "Baseline"
	KindProject  = "Project"
)

// Skill origin values.
const (
	OriginOriginal  = "original"
	OriginCandidate = "candidate"
)

// Skill is a versioned natural-language instruction set under evaluation.
type Skill struct {
	util.TypeMeta `json:",inline"`

	ID      string `json:"id"`
	Version string `json:"version"`
	Name    string `json:"name"`

	// Content is the instruction text sent as system context.
	Content string `json:"content"`

	// WorkDir is the skill's isolated working path.
	WorkDir string `json:"workDir,omitempty"`

	// Origin distinguishes authored skills from candidates produced during
	// beam exploration.
	Origin string `json:"origin,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
}

func (s *Skill) UnmarshalJSON(data []byte) error {
	type doppelganger Skill
	return util.UnmarshalWithKind(data, (*doppelganger)(s), KindSkill)
}

// Case is one (input, expected-output description) pair within a baseline.
type Case struct {
	ID       string `json:"id"`
	Input    string `json:"input"`
	Expected string `json:"expected"`
}

// Baseline is a fixed, named set of test cases.
type Baseline struct {
	util.TypeMeta `json:",inline"`

	ID    string `json:"id"`
	Name  string `json:"name"`
	Cases []Case `json:"cases"`
}

func (b *Baseline) UnmarshalJSON(data []byte) error {
	type doppelganger Baseline
	return util.UnmarshalWithKind(data, (*doppelganger)(b), KindBaseline)
}

// RunCheckpoint is the persisted run progress for a project. It is the disk
// fallback for progress queries and what makes pause/resume survive a
// process restart.
type RunCheckpoint struct {
	Status         string    `json:"status,omitempty"`
	Total          int       `json:"total,omitempty"`
	Completed      int       `json:"completed,omitempty"`
	Failed         int       `json:"failed,omitempty"`
	LastCheckpoint time.Time `json:"lastCheckpoint,omitempty"`
}

// Project references the skills and baselines configured for evaluation.
// Exactly one candidate skill may be registered at a time; beam exploration
// replaces it between trials while the original skills stay untouched.
type Project struct {
	util.TypeMeta `json:",inline"`

	ID   string `json:"id"`
	Name string `json:"name"`

	SkillIDs    []string `json:"skillIds"`
	BaselineIDs []string `json:"baselineIds"`

	CandidateSkillID string `json:"candidateSkillId,omitempty"`

	Run RunCheckpoint `json:"run,omitempty"`
}

func (p *Project) UnmarshalJSON(data []byte) error {
	type doppelganger Project
	return util.UnmarshalWithKind(data, (*doppelganger)(p), KindProject)
}

// ActiveSkillIDs returns the original skill ids plus the registered
// candidate, in declaration order.
func (p *Project) ActiveSkillIDs() []string {
	ids := make([]string, 0, len(p.SkillIDs)+1)
	ids = append(ids, p.SkillIDs...)
	if p.CandidateSkillID != "" {
		ids = append(ids, p.CandidateSkillID)
	}
	return ids
}

// NewID returns a fresh asset identifier.
func NewID() string {
	return uuid.NewString()
}
