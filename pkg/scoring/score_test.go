package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validScore() *Score {
	return &Score{
		FunctionalCorrectness: 25,
		Robustness:            16,
		Readability:           12,
		Conciseness:           13,
		ComplexityControl:     8,
		FormatCompliance:      9,
		Total:                 83,
	}
}

func TestScoreValidate(t *testing.T) {
	tt := map[string]struct {
		mutate    func(s *Score)
		expectErr bool
	}{
		"valid": {
			mutate: func(s *Score) {},
		},
		"perfect score": {
			mutate: func(s *Score) {
				*s = Score{
					FunctionalCorrectness: 30,
					Robustness:            20,
					Readability:           15,
					Conciseness:           15,
					ComplexityControl:     10,
					FormatCompliance:      10,
					Total:                 TotalMax,
				}
			},
		},
		"dimension above max": {
			mutate: func(s *Score) {
				s.Robustness = 21
				s.Total = 88
			},
			expectErr: true,
		},
		"negative dimension": {
			mutate: func(s *Score) {
				s.Conciseness = -1
				s.Total = 69
			},
			expectErr: true,
		},
		"total does not match sum": {
			mutate: func(s *Score) {
				s.Total = 90
			},
			expectErr: true,
		},
	}

	for tn, tc := range tt {
		t.Run(tn, func(t *testing.T) {
			s := validScore()
			tc.mutate(s)
			err := s.Validate()
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDimensionsSumToTotalMax(t *testing.T) {
	sum := 0
	for _, d := range Dimensions() {
		sum += d.Max
	}
	assert.Equal(t, TotalMax, sum)
}

func TestScoreBreakdown(t *testing.T) {
	s := validScore()
	breakdown := s.Breakdown()

	assert.Len(t, breakdown, len(Dimensions()))
	assert.Equal(t, 25, breakdown["functional_correctness"])
	assert.Equal(t, 9, breakdown["format_compliance"])
	assert.Equal(t, 0, s.Value("no_such_dimension"))
}
