package extract

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Extraction is the outcome of condensing a long passage into searchable
// claims and key terms.
type Extraction struct {
	Claims []string
	Terms  []string
}

// Empty reports whether nothing usable was extracted
func (e Extraction) Empty() bool {
	return len(e.Claims) == 0 && len(e.Terms) == 0
}

// ClaimExtractor pulls check-worthy sentences out of plain text or HTML by
// keyword matching. It is used when no LLM is configured.
type ClaimExtractor struct {
	keywords []string
}

// Sentence length bounds, in runes, for a sentence to count as a claim
const (
	minClaimLen = 30
	maxClaimLen = 500
)

// claimKeywords mark sentences that state quantities, superlatives or
// attributions, the statements fact-checkers pick up.
var claimKeywords = []string{
	"percent", "%", "million", "billion", "trillion",
	"according to", "said", "says", "claimed", "claims",
	"more than", "less than", "fewer than", "doubled", "tripled",
	"increased", "decreased", "record", "never", "always",
	"every", "highest", "lowest", "first", "only",
}

// abbreviations never end a sentence
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "sen": true, "rep": true,
	"gov": true, "gen": true, "lt": true, "st": true, "jr": true, "sr": true,
	"vs": true, "no": true, "inc": true, "corp": true, "dept": true,
}

func NewClaimExtractor() *ClaimExtractor {
	return &ClaimExtractor{keywords: claimKeywords}
}

// Extract returns the sentences of content that contain a claim keyword, in
// order and without duplicates.
func (e *ClaimExtractor) Extract(content string) []string {
	var claims []string
	for _, sentence := range splitSentences(VisibleText(content)) {
		if e.checkWorthy(sentence) {
			claims = append(claims, sentence)
		}
	}
	return dedupeClaims(claims)
}

func (e *ClaimExtractor) checkWorthy(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, kw := range e.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ExtractTermsAndClaims satisfies the extractor contract used by the
// fact-check client. It never fails.
func (e *ClaimExtractor) ExtractTermsAndClaims(_ context.Context, text string) (Extraction, error) {
	return Extraction{
		Claims: e.Extract(text),
		Terms:  CapitalizedKeywords(VisibleText(text)),
	}, nil
}

// splitSentences breaks text at '.', '!' or '?' followed by whitespace, except
// after abbreviations and single-letter initials ("U.S.", "John F. Kennedy").
// Sentences outside the claim length bounds are dropped.
func splitSentences(text string) []string {
	runes := []rune(strings.ReplaceAll(text, "\n", " "))

	var sentences []string
	start := 0
	emit := func(end int) {
		sentence := strings.TrimSpace(string(runes[start:end]))
		if n := utf8.RuneCountInString(sentence); n >= minClaimLen && n <= maxClaimLen {
			sentences = append(sentences, sentence)
		}
		start = end
	}

	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if r == '.' && isAbbreviation(runes[start:i]) {
			continue
		}
		emit(i + 1)
	}
	if start < len(runes) {
		emit(len(runes))
	}
	return sentences
}

// isAbbreviation reports whether the word before a period is an initial or a
// known abbreviation
func isAbbreviation(before []rune) bool {
	j := len(before)
	for j > 0 && unicode.IsLetter(before[j-1]) {
		j--
	}
	word := before[j:]
	if len(word) == 1 && unicode.IsUpper(word[0]) {
		return true
	}
	return abbreviations[strings.ToLower(string(word))]
}

// dedupeClaims drops case-insensitive repeats, keeping the first spelling
func dedupeClaims(claims []string) []string {
	seen := make(map[string]bool, len(claims))
	var unique []string
	for _, claim := range claims {
		key := strings.ToLower(claim)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, claim)
	}
	return unique
}
