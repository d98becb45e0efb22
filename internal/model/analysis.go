package model

import "time"

// Analysis is everything the retrieval and consensus engine hands to a prompt builder
type Analysis struct {
	ID        string          `json:"id"`
	Query     string          `json:"query"`
	CreatedAt time.Time       `json:"created_at"`
	Sources   []SourceGroup   `json:"sources"`
	Consensus ConsensusReport `json:"consensus"`
	Speaker   *SpeakerProfile `json:"speaker,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// Anchor returns the top archive match. Fusion always emits the archive group first.
func (a *Analysis) Anchor() (SearchResult, bool) {
	if len(a.Sources) == 0 || len(a.Sources[0].Results) == 0 {
		return SearchResult{}, false
	}
	return a.Sources[0].Results[0], true
}

// ResultCount returns the number of results across all groups
func (a *Analysis) ResultCount() int {
	n := 0
	for _, g := range a.Sources {
		n += len(g.Results)
	}
	return n
}
