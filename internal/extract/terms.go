package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minTermLen      = 3
	maxFallbackTerm = 20
	maxDynamicTerms = 30
	minKeywordLen   = 4
)

// sentenceStarters are capitalized words that say nothing about the subject
var sentenceStarters = map[string]bool{
	"What": true, "When": true, "Where": true, "Which": true, "While": true,
	"Why": true, "How": true, "Who": true, "Whom": true, "Whose": true,
	"This": true, "That": true, "These": true, "Those": true, "There": true,
	"They": true, "Their": true, "Then": true, "Does": true, "Did": true,
	"Have": true, "Has": true, "Will": true, "Would": true, "Could": true,
	"Should": true, "According": true, "After": true, "Before": true,
	"Also": true, "Many": true, "Most": true, "Some": true, "Every": true,
}

// queryStopwords are dropped from fallback relevance terms
var queryStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true, "this": true,
	"from": true, "into": true, "onto": true, "are": true, "was": true, "were": true,
	"been": true, "their": true, "they": true, "them": true, "her": true, "his": true,
	"you": true, "your": true, "about": true, "over": true, "under": true, "via": true,
	"out": true, "not": true, "have": true, "has": true, "had": true, "but": true,
	"who": true, "what": true, "when": true, "where": true, "why": true, "how": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "more": true, "less": true, "very": true, "also": true,
	"than": true, "then": true,
}

// isTermSeparator matches whitespace and the punctuation that joins compound terms
func isTermSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	return strings.ContainsRune("/,-()[]:;", r)
}

// NormalizeTerms lowercases terms, splits compound terms into words and keeps
// unique words of at least three characters, in order of first appearance.
func NormalizeTerms(terms []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range terms {
		for _, p := range strings.FieldsFunc(strings.ToLower(strings.TrimSpace(t)), isTermSeparator) {
			p = strings.Trim(p, ".!?\"'")
			if utf8.RuneCountInString(p) < minTermLen || seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// FallbackTerms derives relevance terms from the raw query when extraction
// yields little.
func FallbackTerms(query string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(query), isTermSeparator) {
		w = strings.Trim(w, ".!?\"'")
		if utf8.RuneCountInString(w) < minTermLen || queryStopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == maxFallbackTerm {
			break
		}
	}
	return out
}

// DynamicTerms combines extracted terms and claims with fallback query terms.
// Extracted terms come first.
func DynamicTerms(query string, terms, claims []string) []string {
	combined := NormalizeTerms(append(append([]string{}, terms...), claims...))
	seen := make(map[string]bool, len(combined))
	for _, t := range combined {
		seen[t] = true
	}
	for _, t := range FallbackTerms(query) {
		if !seen[t] {
			seen[t] = true
			combined = append(combined, t)
		}
	}
	if len(combined) > maxDynamicTerms {
		combined = combined[:maxDynamicTerms]
	}
	return combined
}

// CapitalizedKeywords returns the unique capitalized tokens longer than three
// characters, skipping common sentence starters. These are usually proper nouns.
func CapitalizedKeywords(query string) []string {
	var out []string
	seen := make(map[string]bool)
	tokens := strings.FieldsFunc(NormalizeText(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		first, _ := utf8.DecodeRuneInString(tok)
		if !unicode.IsUpper(first) || utf8.RuneCountInString(tok) < minKeywordLen {
			continue
		}
		if sentenceStarters[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}
