package model

const (
	// SourceExternal tags results returned by the external fact-check API
	SourceExternal = "Multi-Source"

	// GroupExternal names the group of external results from other publishers
	GroupExternal = "External Sources (via external API)"
)

// ArchiveGroupName names the group of results retrieved from the local archive
func ArchiveGroupName(archiveLabel string) string {
	return archiveLabel + " Database"
}

// RecentGroupName names the group of external results published by the archive's own publisher
func RecentGroupName(archiveLabel string) string {
	return "Recent " + archiveLabel + " (via external API)"
}

// SearchResult is a single prior fact-check, produced by either the archive search
// or the external fact-check API.
type SearchResult struct {
	Source          string   `json:"source"`
	Publisher       string   `json:"publisher"`
	Claim           string   `json:"claim"`
	Rating          string   `json:"rating"`
	Explanation     string   `json:"explanation,omitempty"`
	URL             string   `json:"url"`
	SimilarityScore *float64 `json:"similarity_score,omitempty"`
	ReviewDate      string   `json:"review_date,omitempty"`
	Language        string   `json:"language,omitempty"`
	Boosted         bool     `json:"boosted,omitempty"` // Injected by the lexical boost matcher
}

// Similarity returns the similarity score, or 0 when the result carries none
func (r SearchResult) Similarity() float64 {
	if r.SimilarityScore == nil {
		return 0
	}
	return *r.SimilarityScore
}

// Score is a helper for building optional similarity scores
func Score(v float64) *float64 {
	return &v
}

// SourceGroup is a named, provenance-tagged list of results
type SourceGroup struct {
	SourceName string         `json:"source_name"`
	Results    []SearchResult `json:"results"`
}

// Len returns the number of results in the group
func (g SourceGroup) Len() int {
	return len(g.Results)
}
