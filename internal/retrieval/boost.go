package retrieval

import (
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/precedent/internal/extract"
	"github.com/ppiankov/precedent/internal/model"
)

// Boost returns archive rows containing every capitalized keyword of the query,
// tagged with the configured lexical score. A query without keywords boosts nothing.
func (s *Searcher) Boost(query string) []model.SearchResult {
	keywords := extract.CapitalizedKeywords(query)
	if len(keywords) == 0 {
		return nil
	}

	rows := MatchAll(s.archive.Entries, keywords, s.cfg.LexicalLimit)
	if len(rows) == 0 {
		return nil
	}

	results := make([]model.SearchResult, 0, len(rows))
	for _, row := range rows {
		r := s.result(s.archive.Entries[row], s.cfg.LexicalScore)
		r.Boosted = true
		results = append(results, r)
	}

	s.log.Debug("lexical boost matched",
		zap.Strings("keywords", keywords),
		zap.Int("rows", len(rows)),
	)
	return results
}

// MatchAll returns up to limit rows whose claim and explanation contain every
// keyword, case-insensitively, in archive order.
func MatchAll(entries []model.ArchiveEntry, keywords []string, limit int) []int {
	if len(keywords) == 0 || limit <= 0 {
		return nil
	}

	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}

	var rows []int
	for i, e := range entries {
		text := strings.ToLower(e.SearchText())
		if containsAll(text, lowered) {
			rows = append(rows, i)
			if len(rows) == limit {
				break
			}
		}
	}
	return rows
}

func containsAll(text string, keywords []string) bool {
	for _, k := range keywords {
		if !strings.Contains(text, k) {
			return false
		}
	}
	return true
}
