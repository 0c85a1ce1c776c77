package services

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// DuplicateThreshold is the title similarity above which a detected pain
// point is treated as already known.
const DuplicateThreshold = 0.70

var titleStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "the": {}, "of": {}, "in": {}, "on": {},
	"for": {}, "to": {}, "is": {}, "are": {}, "with": {}, "by": {}, "at": {},
}

// titleTokens returns the normalized word set of a title.
func titleTokens(title string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(title)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if word == "" {
			continue
		}
		if _, stop := titleStopwords[word]; stop {
			continue
		}
		tokens[inflection.Singular(word)] = struct{}{}
	}
	return tokens
}

// TitleSimilarity is the Jaccard index of the two titles' word sets, in [0, 1].
// Two titles with no words at all are considered different.
func TitleSimilarity(a, b string) float64 {
	ta, tb := titleTokens(a), titleTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for w := range ta {
		if _, ok := tb[w]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

// FilterDuplicates returns the items of candidates whose title is not similar
// to any existing title or to a candidate accepted earlier in the same call.
// Order is preserved.
func FilterDuplicates[T any](candidates []T, existingTitles []string, title func(T) string) []T {
	seen := append([]string(nil), existingTitles...)
	accepted := make([]T, 0, len(candidates))

	for _, c := range candidates {
		t := title(c)
		duplicate := false
		for _, s := range seen {
			if TitleSimilarity(t, s) > DuplicateThreshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		accepted = append(accepted, c)
		seen = append(seen, t)
	}
	return accepted
}
