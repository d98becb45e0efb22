package model

import (
	"strings"
	"time"
	"unicode"
)

// ArchiveEntry is one row of the fact-check archive. Row i of the metadata table
// corresponds to row i of the vector index.
type ArchiveEntry struct {
	Claim           string     `json:"claim"`
	Rating          string     `json:"rating"`            // Raw taxonomy string, e.g. "Mostly False"
	Verdict         string     `json:"verdict,omitempty"` // Archive verdict code, e.g. "barely-true"
	Explanation     string     `json:"explanation,omitempty"`
	URL             string     `json:"url"`
	Speaker         string     `json:"source,omitempty"` // Named public figure or outlet
	PublicationDate *time.Time `json:"publication_date,omitempty"`
}

// SearchText returns the claim and explanation joined for substring matching
func (e ArchiveEntry) SearchText() string {
	return e.Claim + " " + e.Explanation
}

// VerdictCode returns the verdict code, deriving it from the rating when absent
func (e ArchiveEntry) VerdictCode() string {
	if e.Verdict != "" {
		return e.Verdict
	}
	return VerdictFromRating(e.Rating)
}

// VerdictFromRating converts "Pants on Fire" style ratings to "pants-fire" codes
func VerdictFromRating(rating string) string {
	fields := strings.FieldsFunc(strings.ToLower(rating), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	code := strings.Join(fields, "-")
	if code == "pants-on-fire" {
		return "pants-fire"
	}
	return code
}
