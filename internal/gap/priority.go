package gap

// PriorityScore ranks a cluster for human review. The base score grows
// linearly with how many users asked the same thing, with a multiplier
// once the cluster is large enough to clearly be a recurring gap.
func PriorityScore(questionCount int) float64 {
	if questionCount < 0 {
		return 0
	}

	score := float64(questionCount) * 10

	switch {
	case questionCount >= 10:
		score *= 1.5
	case questionCount >= 5:
		score *= 1.2
	}

	return score
}
