package search

import "strings"

// stopWords are excluded from lexical overlap scoring. Short queries are
// dominated by them otherwise.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "can": {}, "do": {}, "does": {}, "for": {}, "from": {},
	"how": {}, "i": {}, "in": {}, "is": {}, "it": {}, "my": {}, "of": {},
	"on": {}, "or": {}, "the": {}, "to": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "who": {}, "why": {}, "will": {}, "with": {},
	"you": {}, "your": {},
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, skip := stopWords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// lexicalScore measures keyword overlap between a query and a candidate
// question in [0, 1]. Exact token matches count fully, substring matches
// half. It exists because embedding similarity alone can miss exact keyword
// hits on very short queries.
func lexicalScore(query, candidate string) float64 {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}

	candidateTokens := tokenize(candidate)
	candidateSet := make(map[string]struct{}, len(candidateTokens))
	for _, t := range candidateTokens {
		candidateSet[t] = struct{}{}
	}

	var score float64
	for _, qt := range queryTokens {
		if _, ok := candidateSet[qt]; ok {
			score += 1.0
			continue
		}
		for ct := range candidateSet {
			if strings.Contains(ct, qt) || strings.Contains(qt, ct) {
				score += 0.5
				break
			}
		}
	}

	return score / float64(len(queryTokens))
}
