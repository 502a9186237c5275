package optimize

import (
	"math"

	"github.com/skillbench/skillbench/pkg/scoring"
)

// Strategy names a recomposition approach tried during beam exploration.
type Strategy string

const (
	StrategyGreedy         Strategy = "GREEDY"
	StrategyDimensionFocus Strategy = "DIMENSION_FOCUS"
	StrategySegmentExplore Strategy = "SEGMENT_EXPLORE"
	StrategyCrossPollinate Strategy = "CROSS_POLLINATE"
	StrategyRandomSubset   Strategy = "RANDOM_SUBSET"
)

// strategyTable maps a plateau level to the pair of strategies tried at
// that level. Deeper plateaus shift from exploitation to exploration.
var strategyTable = map[int][2]Strategy{
	0: {StrategyGreedy, StrategyDimensionFocus},
	1: {StrategyGreedy, StrategySegmentExplore},
	2: {StrategyCrossPollinate, StrategyDimensionFocus},
	3: {StrategyRandomSubset, StrategySegmentExplore},
}

// SelectStrategies returns the strategies for one exploration step. The
// result always has exactly beamWidth entries; a beam width of one or less
// degenerates to a single greedy trial.
func SelectStrategies(plateauLevel, beamWidth int) []Strategy {
	if beamWidth <= 1 {
		return []Strategy{StrategyGreedy}
	}

	if plateauLevel > 3 {
		plateauLevel = 3
	}
	if plateauLevel < 0 {
		plateauLevel = 0
	}
	pair := strategyTable[plateauLevel]

	out := make([]Strategy, beamWidth)
	for i := range out {
		out[i] = pair[i%2]
	}
	return out
}

// PlateauLevel derives the escalation level from the trailing run of rounds
// whose absolute score delta stays below delta. The most recent round
// breaking out resets the level to zero.
func PlateauLevel(history []*Round, delta float64, escapeLimit int) int {
	if len(history) == 0 {
		return 0
	}
	if math.Abs(history[len(history)-1].Delta) > delta {
		return 0
	}

	runLength := 0
	for i := len(history) - 1; i >= 0; i-- {
		if math.Abs(history[i].Delta) > delta {
			break
		}
		runLength++
	}

	switch {
	case runLength >= 2*escapeLimit:
		return 3
	case runLength >= escapeLimit:
		return 2
	default:
		return 1
	}
}

// FocusDimension picks the dimension with the lowest achieved/maximum ratio
// in the given breakdown, breaking ties by dimension declaration order.
func FocusDimension(breakdown map[string]float64) string {
	best := ""
	bestRatio := math.Inf(1)
	for _, d := range scoring.Dimensions() {
		ratio := breakdown[d.Name] / float64(d.Max)
		if ratio < bestRatio {
			bestRatio = ratio
			best = d.Name
		}
	}
	return best
}
