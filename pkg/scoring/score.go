// Package scoring defines the six-dimension rubric used to grade task
// outputs, the prompt that asks the oracle to apply it, and the parser that
// turns the oracle's reply into a validated Score.
package scoring

import (
	"fmt"
)

// Dimension is one rubric axis with its maximum attainable points.
type Dimension struct {
	Name string
	Max  int
}

// Dimensions returns the rubric axes in declaration order. The order matters:
// DIMENSION_FOCUS tie-breaking and report rendering both follow it.
func Dimensions() []Dimension {
	return []Dimension{
		{Name: "functional_correctness", Max: 30},
		{Name: "robustness", Max: 20},
		{Name: "readability", Max: 15},
		{Name: "conciseness", Max: 15},
		{Name: "complexity_control", Max: 10},
		{Name: "format_compliance", Max: 10},
	}
}

// TotalMax is the maximum attainable total score.
const TotalMax = 100

// Score is a graded rubric result. Total must equal the sum of the six
// dimension values.
type Score struct {
	FunctionalCorrectness int    `json:"functional_correctness"`
	Robustness            int    `json:"robustness"`
	Readability           int    `json:"readability"`
	Conciseness           int    `json:"conciseness"`
	ComplexityControl     int    `json:"complexity_control"`
	FormatCompliance      int    `json:"format_compliance"`
	Total                 int    `json:"total"`
	Reasoning             string `json:"reasoning,omitempty"`
}

// Value returns the achieved points for the named dimension.
func (s *Score) Value(name string) int {
	switch name {
	case "functional_correctness":
		return s.FunctionalCorrectness
	case "robustness":
		return s.Robustness
	case "readability":
		return s.Readability
	case "conciseness":
		return s.Conciseness
	case "complexity_control":
		return s.ComplexityControl
	case "format_compliance":
		return s.FormatCompliance
	default:
		return 0
	}
}

// Breakdown returns the per-dimension values keyed by dimension name.
func (s *Score) Breakdown() map[string]int {
	out := make(map[string]int, len(Dimensions()))
	for _, d := range Dimensions() {
		out[d.Name] = s.Value(d.Name)
	}
	return out
}

// Validate checks dimension ranges and the sum invariant.
func (s *Score) Validate() error {
	sum := 0
	for _, d := range Dimensions() {
		v := s.Value(d.Name)
		if v < 0 || v > d.Max {
			return fmt.Errorf("dimension %s value %d out of range [0, %d]", d.Name, v, d.Max)
		}
		sum += v
	}
	if s.Total != sum {
		return fmt.Errorf("total %d does not equal sum of dimensions %d", s.Total, sum)
	}
	return nil
}
