package search

// ConfidenceTier is the discrete confidence bucket derived from the top
// similarity score. It drives the response strategy.
type ConfidenceTier string

const (
	TierVeryHigh ConfidenceTier = "very_high"
	TierHigh     ConfidenceTier = "high"
	TierMedium   ConfidenceTier = "medium"
	TierLow      ConfidenceTier = "low"
	TierNone     ConfidenceTier = "none"
)

// Tier boundaries. Fixed configuration constants, not computed; lower
// bounds are inclusive.
const (
	cutoffVeryHigh = 0.85
	cutoffHigh     = 0.75
	cutoffMedium   = 0.65
	cutoffLow      = 0.50
)

var tierRank = map[ConfidenceTier]int{
	TierNone:     0,
	TierLow:      1,
	TierMedium:   2,
	TierHigh:     3,
	TierVeryHigh: 4,
}

// ClassifyTier maps a similarity score onto a tier. Pure, total, monotonic.
func ClassifyTier(score float64) ConfidenceTier {
	switch {
	case score >= cutoffVeryHigh:
		return TierVeryHigh
	case score >= cutoffHigh:
		return TierHigh
	case score >= cutoffMedium:
		return TierMedium
	case score >= cutoffLow:
		return TierLow
	default:
		return TierNone
	}
}

// Below reports whether t ranks under other.
func (t ConfidenceTier) Below(other ConfidenceTier) bool {
	return tierRank[t] < tierRank[other]
}

// ResponseStrategy selects how the stored answer (if any) is used.
type ResponseStrategy string

const (
	// StrategyVerbatim returns the stored answer as-is, no generation.
	StrategyVerbatim ResponseStrategy = "verbatim"
	// StrategyRephrase returns the stored answer, lightly reworded.
	StrategyRephrase ResponseStrategy = "rephrase"
	// StrategyContext feeds the stored answer to generation as context.
	StrategyContext ResponseStrategy = "context"
	// StrategyWeakContext feeds it as weak background material only.
	StrategyWeakContext ResponseStrategy = "weak_context"
	// StrategyGenerate proceeds unaided; there is no usable match.
	StrategyGenerate ResponseStrategy = "generate"
)

func strategyForTier(tier ConfidenceTier) ResponseStrategy {
	switch tier {
	case TierVeryHigh:
		return StrategyVerbatim
	case TierHigh:
		return StrategyRephrase
	case TierMedium:
		return StrategyContext
	case TierLow:
		return StrategyWeakContext
	default:
		return StrategyGenerate
	}
}
