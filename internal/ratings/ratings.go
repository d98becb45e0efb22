// Package ratings maps free-text fact-check ratings from different publishers
// onto a common 0..5 ordinal scale.
package ratings

import (
	"strings"
	"unicode"
)

// Scale bounds
const (
	MinScore = 0
	MaxScore = 5
)

type keyword struct {
	text  string
	score int
}

// primaryTaxonomy is the archive publisher's six-level scale
var primaryTaxonomy = []keyword{
	{"true", 5},
	{"mostly true", 4},
	{"half true", 3},
	{"mostly false", 2},
	{"barely true", 2}, // Renamed to "Mostly False" in 2011
	{"false", 1},
	{"pants on fire", 0},
	{"pants fire", 0},
}

// genericTaxonomy covers synonyms used by other publishers
var genericTaxonomy = []keyword{
	{"accurate", 5},
	{"correct", 5},
	{"supported", 4},
	{"mixture", 3},
	{"mixed", 3},
	{"partly false", 3},
	{"unproven", 3},
	{"missing context", 3},
	{"misleading", 2},
	// Negations outrank the positive word they contain by length
	{"untrue", 1},
	{"not true", 1},
	{"not accurate", 1},
	{"not correct", 1},
	{"incorrect", 1},
	{"inaccurate", 1},
	{"unsupported", 1},
	{"no evidence", 1},
	{"fake", 1},
}

// Standardize maps a raw rating onto [0..5]. The second return value is false
// when the rating contains no recognized keyword; callers must treat that as
// unscored, never as zero.
//
// Matching is substring containment. When several keywords are contained in the
// rating the longest one wins, and on equal length the primary taxonomy wins,
// then table order.
func Standardize(raw string) (int, bool) {
	r := Normalize(raw)
	if r == "" {
		return 0, false
	}

	best := -1
	bestLen := 0
	for _, table := range [][]keyword{primaryTaxonomy, genericTaxonomy} {
		for _, kw := range table {
			if len(kw.text) > bestLen && strings.Contains(r, kw.text) {
				best = kw.score
				bestLen = len(kw.text)
			}
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// Normalize lowercases a rating, turns hyphens and underscores into spaces,
// strips other punctuation and collapses whitespace.
func Normalize(raw string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == '_':
			return ' '
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			return -1
		default:
			return unicode.ToLower(r)
		}
	}, raw)
	return strings.Join(strings.Fields(mapped), " ")
}

var scoreLabels = map[int]string{
	5: "True",
	4: "Mostly True",
	3: "Mixed",
	2: "Mostly False",
	1: "False",
	0: "Pants on Fire",
}

// ScoreLabel returns the display name of a standardized score
func ScoreLabel(score int) string {
	if label, ok := scoreLabels[score]; ok {
		return label
	}
	return "Unrated"
}

var verdictLabels = map[string]string{
	"true":         "True",
	"mostly-true":  "Mostly True",
	"half-true":    "Half True",
	"barely-true":  "Mostly False",
	"mostly-false": "Mostly False",
	"false":        "False",
	"pants-fire":   "Pants on Fire",
	"full-flop":    "Full Flop",
	"half-flip":    "Half Flip",
	"no-flip":      "No Flip",
}

// FormatLabel turns an archive verdict code into a display name. The retired
// "barely-true" code shares the "Mostly False" label with its successor.
func FormatLabel(code string) string {
	if label, ok := verdictLabels[strings.ToLower(code)]; ok {
		return label
	}
	return titleCase(strings.ReplaceAll(code, "-", " "))
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
