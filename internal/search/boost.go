package search

import (
	"strings"

	"github.com/corelens/corelens/internal/lexer"
)

// classKinds are the kinds a query mentioning "class" or "struct"
// should favor.
var classKinds = map[string]bool{
	"class": true, "struct": true, "impl": true, "enum": true, "trait": true,
}

// funcKinds are the kinds a query mentioning "function" or "method"
// should favor.
var funcKinds = map[string]bool{
	"function": true, "method": true,
}

// candidateMeta is the subset of a Result's metadata the boost needs.
type candidateMeta struct {
	name         string
	kind         string
	relativePath string
}

// boost applies the multiplicative scoring rules on top of a fused
// score, each independent, then clamps the total multiplier to cap.
// It never mutates score_from_C1 or score_from_C2 individually — only
// the already-fused score passed in.
func boost(score float64, queryText string, cand candidateMeta, boostCap float64) float64 {
	queryTerms := lexer.Tokenize(queryText)
	queryTermSet := make(map[string]bool, len(queryTerms))
	for _, t := range queryTerms {
		queryTermSet[t] = true
	}

	multiplier := 1.0

	nameTerms := lexer.Tokenize(cand.name)
	if strings.EqualFold(strings.TrimSpace(queryText), cand.name) {
		multiplier *= 2.5
	} else {
		overlap := 0
		seen := map[string]bool{}
		for _, t := range nameTerms {
			if len(t) < 3 || seen[t] {
				continue
			}
			if queryTermSet[t] {
				overlap++
				seen[t] = true
			}
		}
		for i := 0; i < overlap; i++ {
			multiplier *= 1.3
		}
	}

	// "class" is on the lexer's stop list, so it is looked for among the
	// raw query words rather than in queryTermSet.
	mentionsClass := queryTermSet["struct"]
	for _, w := range strings.Fields(strings.ToLower(queryText)) {
		if strings.Trim(w, ".,;:!?()\"'`") == "class" {
			mentionsClass = true
		}
	}
	mentionsFunc := queryTermSet["function"] || queryTermSet["method"]
	if mentionsClass && classKinds[cand.kind] {
		multiplier *= 1.2
	}
	if mentionsFunc && funcKinds[cand.kind] {
		multiplier *= 1.3
	}

	if pathMentionsTerm(queryTerms, cand.relativePath) {
		multiplier *= 1.15
	}

	if multiplier > boostCap {
		multiplier = boostCap
	}
	return score * multiplier
}

func pathMentionsTerm(queryTerms []string, relativePath string) bool {
	segments := strings.FieldsFunc(relativePath, func(r rune) bool { return r == '/' || r == '\\' || r == '.' })
	segmentSet := make(map[string]bool, len(segments))
	for _, s := range segments {
		segmentSet[strings.ToLower(s)] = true
	}
	for _, t := range queryTerms {
		if len(t) >= 3 && segmentSet[strings.ToLower(t)] {
			return true
		}
	}
	return false
}
