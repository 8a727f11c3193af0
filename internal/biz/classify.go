package biz

import (
	"math"
	"sort"
)

// EngineConfig holds the weights and cutoffs of the classification engine.
// The adult cutoffs are deliberately asymmetric: a single very high frame
// and several moderate frames both flag.
type EngineConfig struct {
	WeightMax      float64
	WeightTopN     float64
	WeightAvg      float64
	TopN           int
	AdultCutoff    float64 // weighted adult score above this flags
	PeakCutoff     float64 // any single frame above this flags
	RepeatCutoff   float64 // frames above this count toward RepeatCount
	RepeatCount    int
	LanguageCutoff float64
}

// DefaultEngineConfig returns default configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		WeightMax:      0.6,
		WeightTopN:     0.25,
		WeightAvg:      0.15,
		TopN:           5,
		AdultCutoff:    0.4,
		PeakCutoff:     0.7,
		RepeatCutoff:   0.4,
		RepeatCount:    2,
		LanguageCutoff: 0.15,
	}
}

// EngineResult is the combined sensitivity verdict.
type EngineResult struct {
	Classification  Classification
	OverallScore    float64
	AdultScore      float64
	LanguageScore   float64
	AdultFlagged    bool
	LanguageFlagged bool
}

// Engine combines per-frame adult scores and the audio language score
// into a single verdict via the weighted formula.
type Engine struct {
	config EngineConfig
}

// NewEngine creates a new classification Engine.
func NewEngine(config EngineConfig) *Engine {
	return &Engine{config: config}
}

// Combine computes the weighted adult score, applies the flag rules, and
// returns the final classification. Empty inputs resolve to safe with
// every score 0.
func (e *Engine) Combine(frameScores []float64, languageScore float64) EngineResult {
	max, avg, topNAvg := summarize(frameScores, e.config.TopN)

	weightedAdult := e.config.WeightMax*max +
		e.config.WeightTopN*topNAvg +
		e.config.WeightAvg*avg

	repeats := 0
	for _, s := range frameScores {
		if s > e.config.RepeatCutoff {
			repeats++
		}
	}

	adultFlagged := weightedAdult > e.config.AdultCutoff ||
		max > e.config.PeakCutoff ||
		repeats >= e.config.RepeatCount
	languageFlagged := languageScore > e.config.LanguageCutoff

	classification := ClassificationSafe
	if adultFlagged || languageFlagged {
		classification = ClassificationFlagged
	}

	return EngineResult{
		Classification:  classification,
		OverallScore:    roundScore(math.Max(weightedAdult, languageScore)),
		AdultScore:      roundScore(weightedAdult),
		LanguageScore:   roundScore(languageScore),
		AdultFlagged:    adultFlagged,
		LanguageFlagged: languageFlagged,
	}
}

// summarize returns max, mean, and mean-of-top-n of the scores, all 0 for
// an empty list.
func summarize(scores []float64, topN int) (max, avg, topNAvg float64) {
	if len(scores) == 0 {
		return 0, 0, 0
	}

	sorted := append([]float64(nil), scores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	sum := 0.0
	for _, s := range sorted {
		sum += s
	}
	avg = sum / float64(len(sorted))
	max = sorted[0]

	n := topN
	if n > len(sorted) {
		n = len(sorted)
	}
	topSum := 0.0
	for _, s := range sorted[:n] {
		topSum += s
	}
	topNAvg = topSum / float64(n)

	return max, avg, topNAvg
}

// roundScore rounds a score to 3 decimal places, the fixed precision used
// for every persisted score.
func roundScore(v float64) float64 {
	return math.Round(v*1000) / 1000
}
