package speaker

import (
	"regexp"
	"strings"

	"github.com/ppiankov/precedent/internal/model"
)

// namePattern matches a capitalized person name with optional initials:
// "Jane Doe", "Robert F Kennedy Jr", "George W. Bush", "Ron DeSantis". An
// initial must end at a word boundary so "Joe B" is never taken from "Joe Biden".
const namePattern = `(` + nameWord + `(?: [A-Z](?:\.|\b))*(?: ` + nameWord + `)*)`

const nameWord = `[A-Z][a-z]+(?:[A-Z][a-z]+)*`

// attributionSources are tried in order; every match yields a candidate
var attributionSources = []string{
	// Ron DeSantis (@RonDeSantis) on X
	`(?m)^` + namePattern + `\s*\(@?\w+\)\s*(?i:on)\s+(?i:x|twitter|facebook|instagram)`,
	// Robert F Kennedy Jr: "quote"
	`(?m)^` + namePattern + `:\s*["'“‘]`,
	`(?m)(?:^|\s)` + namePattern + ` (?i:said|says|stated|claims|claimed|wrote|posted)\b`,
	`(?i:according to) ` + namePattern,
	`(?m)(?:^|\s)` + namePattern + `['’]s (?i:claim|statement|post|tweet)`,
	`(?m)^` + namePattern + ` (?i:said)\b`,
	// Name at the start of a social post
	`(?m)^` + namePattern + `(?:\s*\(|:|\s+(?i:on)\s+|\s*-)`,
}

var (
	attributionPatterns = compileAll("", attributionSources...)

	// foldedPatterns accept names in any case, for transcripts that arrive
	// lowercased. Their matches can run past the name, so they are narrowed
	// by nameWindows before matching.
	foldedPatterns = compileAll("(?i)", attributionSources...)
)

var initialRe = regexp.MustCompile(`\b([A-Z])\s+`)

func compileAll(flags string, patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(flags + p)
	}
	return out
}

// Candidates returns the names attribution phrasing points at, in pattern order
func Candidates(text string) []string {
	return matchNames(attributionPatterns, text)
}

func matchNames(patterns []*regexp.Regexp, text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		c := strings.TrimSpace(m[1])
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// Detect returns the roster speaker the text is attributed to, or "" when no
// candidate matches with enough confidence. Short texts with no attribution
// phrasing are matched against the roster as a whole.
func Detect(text string, roster []string, cfg model.SpeakerConfig) string {
	if strings.TrimSpace(text) == "" || len(roster) == 0 {
		return ""
	}
	cfg = withDefaults(cfg)

	atLeast := func(s float64) bool { return s >= float64(cfg.Threshold) }

	candidates := Candidates(text)
	if len(candidates) == 0 {
		if name, ok := detectFolded(text, roster, atLeast); ok {
			return name
		}
		if len([]rune(text)) < cfg.ShortTextLen {
			above := func(s float64) bool { return s > float64(cfg.ShortTextThreshold) }
			if name, ok := bestMatch(text, roster, PartialRatio, above); ok {
				return name
			}
		}
		return ""
	}

	for _, c := range candidates {
		if name, ok := bestMatch(c, roster, TokenSortRatio, atLeast); ok {
			return name
		}
		// "Robert F Kennedy" against "Robert F. Kennedy"
		dotted := initialRe.ReplaceAllString(c, "${1}. ")
		if name, ok := bestMatch(dotted, roster, TokenSortRatio, atLeast); ok {
			return name
		}
	}
	return ""
}

// detectFolded matches case-insensitive candidates against the roster, scoring
// every short run of words in each candidate and keeping the best.
func detectFolded(text string, roster []string, accept func(float64) bool) (string, bool) {
	best, bestScore := "", -1.0
	for _, c := range matchNames(foldedPatterns, text) {
		for _, w := range nameWindows(c) {
			for _, name := range roster {
				if s := TokenSortRatio(w, name); s > bestScore {
					best, bestScore = name, s
				}
			}
		}
	}
	if bestScore < 0 || !accept(bestScore) {
		return "", false
	}
	return best, true
}

// nameWindows lists every run of two to four consecutive words in s, plus s
// itself when it is a single word.
func nameWindows(s string) []string {
	words := strings.Fields(s)
	if len(words) < 2 {
		return words
	}
	var out []string
	for size := 2; size <= 4 && size <= len(words); size++ {
		for i := 0; i+size <= len(words); i++ {
			out = append(out, strings.Join(words[i:i+size], " "))
		}
	}
	return out
}

func withDefaults(cfg model.SpeakerConfig) model.SpeakerConfig {
	def := model.DefaultConfig().Speaker
	if cfg.RosterSize <= 0 {
		cfg.RosterSize = def.RosterSize
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.ShortTextLen <= 0 {
		cfg.ShortTextLen = def.ShortTextLen
	}
	if cfg.ShortTextThreshold <= 0 {
		cfg.ShortTextThreshold = def.ShortTextThreshold
	}
	return cfg
}
