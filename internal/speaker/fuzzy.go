package speaker

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Ratio returns the edit-distance similarity of a and b on a 0..100 scale
func Ratio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(longest))
}

// TokenSortRatio compares a and b ignoring case and word order
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// PartialRatio returns the best Ratio of the shorter string against every
// equally long window of the longer one, ignoring case.
func PartialRatio(a, b string) float64 {
	short, long := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	s := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		r := Ratio(s, string(long[i:i+len(short)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// bestMatch returns the first choice with the highest score, if that score
// passes accept.
func bestMatch(query string, choices []string, scorer func(a, b string) float64, accept func(float64) bool) (string, bool) {
	best, bestScore := "", -1.0
	for _, c := range choices {
		if s := scorer(query, c); s > bestScore {
			best, bestScore = c, s
		}
	}
	if bestScore < 0 || !accept(bestScore) {
		return "", false
	}
	return best, true
}

func sortedTokens(s string) string {
	tokens := strings.Fields(strings.ToLower(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
