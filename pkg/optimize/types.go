// Package optimize drives the outer optimization loop: round after round of
// run-analyze-recompose, with bounded-width beam exploration between rounds
// and plateau detection over the score history.
package optimize

import (
	"time"
)

// StopReason explains why an iteration ended.
type StopReason string

const (
	StopMaxRounds        StopReason = "max_rounds"
	StopThresholdReached StopReason = "threshold_reached"
	StopManual           StopReason = "manual"
	StopPaused           StopReason = "paused"
	StopError            StopReason = "error"
)

// Round statuses.
const (
	RoundRunning   = "running"
	RoundCompleted = "completed"
	RoundFailed    = "failed"
)

// Round is one iteration of the outer loop: one full test-and-score cycle
// of a single skill.
type Round struct {
	Number    int                `json:"number"`
	SkillID   string             `json:"skillId"`
	AvgScore  float64            `json:"avgScore"`
	Delta     float64            `json:"delta"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
	Status    string             `json:"status"`

	// analysis is the round's analysis product, held in memory for the
	// exploration step that follows; it is not part of the snapshot.
	analysis *Analysis
}

// Candidate is one strategy-specific skill variant produced and tested
// during beam exploration. Only the winner's skill carries forward; all
// candidates are recorded in the exploration log.
type Candidate struct {
	Round     int                `json:"round"`
	Strategy  Strategy           `json:"strategy"`
	SkillID   string             `json:"skillId"`
	AvgScore  float64            `json:"avgScore"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
	Won       bool               `json:"won"`
	Error     string             `json:"error,omitempty"`
}

// Report is the finalized record of an iteration. It is written once at
// loop exit and never mutated afterwards.
type Report struct {
	IterationID string     `json:"iterationId"`
	ProjectID   string     `json:"projectId"`
	Rounds      []*Round   `json:"rounds"`
	StopReason  StopReason `json:"stopReason"`
	BestRound   int        `json:"bestRound"`
	BestSkillID string     `json:"bestSkillId"`
	BestScore   float64    `json:"bestScore"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  time.Time  `json:"finishedAt"`
}

// ExplorationLog accumulates every candidate tried across an iteration,
// winners and losers alike.
type ExplorationLog struct {
	IterationID string       `json:"iterationId"`
	ProjectID   string       `json:"projectId"`
	Candidates  []*Candidate `json:"candidates"`
	Warnings    []string     `json:"warnings,omitempty"`
}

// Params configures an iteration.
type Params struct {
	// SkillID is the skill the iteration optimizes. Defaults to the
	// project's first configured skill.
	SkillID string

	// MaxRounds bounds the outer loop.
	MaxRounds int

	// BeamWidth is the number of candidates tried between rounds.
	BeamWidth int

	// StopThreshold, when set, stops the iteration as soon as a round's
	// average score meets it.
	StopThreshold *float64

	// PlateauDelta is the absolute score delta below which a round counts
	// toward a plateau.
	PlateauDelta float64

	// PlateauRoundsBeforeEscape is the plateau run length that escalates
	// the exploration strategy.
	PlateauRoundsBeforeEscape int
}

// Parameter defaults.
const (
	DefaultMaxRounds                 = 3
	DefaultBeamWidth                 = 2
	DefaultPlateauDelta              = 1.0
	DefaultPlateauRoundsBeforeEscape = 2
)

func (p *Params) applyDefaults() {
	if p.MaxRounds <= 0 {
		p.MaxRounds = DefaultMaxRounds
	}
	if p.BeamWidth <= 0 {
		p.BeamWidth = DefaultBeamWidth
	}
	if p.PlateauDelta <= 0 {
		p.PlateauDelta = DefaultPlateauDelta
	}
	if p.PlateauRoundsBeforeEscape <= 0 {
		p.PlateauRoundsBeforeEscape = DefaultPlateauRoundsBeforeEscape
	}
}
