package extract

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// KnownCaseTypes are the case types the site files documents under.
var KnownCaseTypes = []string{
	"民事案件",
	"刑事案件",
	"行政案件",
	"赔偿案件",
	"执行案件",
}

// the type code is the first of these characters after the year in a case number
var caseTypeCodes = map[rune]string{
	'民': "民事案件",
	'刑': "刑事案件",
	'行': "行政案件",
	'赔': "赔偿案件",
	'执': "执行案件",
}

const caseTypeMinSimilarity = 0.8

// CanonicalCaseType maps a free-form case type onto the closest known one,
// values that are not similar enough to any known type are kept as is.
func CanonicalCaseType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	best := ""
	bestScore := 0.0
	for _, known := range KnownCaseTypes {
		// procedure names like "民事二审" only share the stem with "民事案件"
		stem := strings.TrimSuffix(known, "案件")
		score := max(
			matchr.JaroWinkler(raw, known, false),
			matchr.JaroWinkler(raw, stem, false),
		)
		if score > bestScore {
			best = known
			bestScore = score
		}
	}
	if bestScore >= caseTypeMinSimilarity {
		return best
	}
	return raw
}

// InferCaseType derives the case type from the type code of a case number
// like "(2020)粤01民终123号", it returns "" when there is no known code.
func InferCaseType(caseNumber string) string {
	idx := strings.IndexAny(caseNumber, ")）")
	if idx < 0 {
		return ""
	}
	for _, r := range caseNumber[idx:] {
		if t, ok := caseTypeCodes[r]; ok {
			return t
		}
	}
	return ""
}
