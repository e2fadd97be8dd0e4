package search

import "testing"

func TestClassifyTier(t *testing.T) {
	tests := []struct {
		score float64
		want  ConfidenceTier
	}{
		{1.0, TierVeryHigh},
		{0.85, TierVeryHigh},
		{0.8499, TierHigh},
		{0.75, TierHigh},
		{0.7499, TierMedium},
		{0.65, TierMedium},
		{0.6499, TierLow},
		{0.50, TierLow},
		{0.4999, TierNone},
		{0.0, TierNone},
		{-0.3, TierNone},
	}

	for _, tt := range tests {
		if got := ClassifyTier(tt.score); got != tt.want {
			t.Errorf("ClassifyTier(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestStrategyForTier(t *testing.T) {
	tests := []struct {
		tier ConfidenceTier
		want ResponseStrategy
	}{
		{TierVeryHigh, StrategyVerbatim},
		{TierHigh, StrategyRephrase},
		{TierMedium, StrategyContext},
		{TierLow, StrategyWeakContext},
		{TierNone, StrategyGenerate},
	}

	for _, tt := range tests {
		if got := strategyForTier(tt.tier); got != tt.want {
			t.Errorf("strategyForTier(%v) = %v, want %v", tt.tier, got, tt.want)
		}
	}
}

func TestTierBelow(t *testing.T) {
	if !TierLow.Below(TierMedium) {
		t.Error("expected low to rank below medium")
	}
	if !TierNone.Below(TierLow) {
		t.Error("expected none to rank below low")
	}
	if TierMedium.Below(TierMedium) {
		t.Error("a tier should not rank below itself")
	}
	if TierVeryHigh.Below(TierHigh) {
		t.Error("very_high should not rank below high")
	}
}
