// Package speaker detects who a claim is attributed to and summarizes that
// speaker's fact-check record in the archive.
package speaker

import (
	"github.com/ppiankov/precedent/internal/model"
)

// Tracker holds the archive entries and the roster of known speakers built
// from them. It is read-only after construction.
type Tracker struct {
	entries []model.ArchiveEntry
	roster  []string
	cfg     model.SpeakerConfig
}

// NewTracker builds the roster from the most frequently checked speakers
func NewTracker(entries []model.ArchiveEntry, cfg model.SpeakerConfig) *Tracker {
	cfg = withDefaults(cfg)
	return &Tracker{
		entries: entries,
		roster:  TopSpeakers(entries, cfg.RosterSize),
		cfg:     cfg,
	}
}

// Roster returns the known speakers, most checked first
func (t *Tracker) Roster() []string {
	return t.roster
}

// Detect returns the roster speaker the text is attributed to, or ""
func (t *Tracker) Detect(text string) string {
	return Detect(text, t.roster, t.cfg)
}

// Profile returns the record of a speaker, or nil when unknown
func (t *Tracker) Profile(speaker string) *model.SpeakerProfile {
	return Profile(speaker, t.entries)
}

// Lookup detects the speaker of text and returns their profile
func (t *Tracker) Lookup(text string) *model.SpeakerProfile {
	name := t.Detect(text)
	if name == "" {
		return nil
	}
	return t.Profile(name)
}
