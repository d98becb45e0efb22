package speaker

import (
	"sort"

	"github.com/ppiankov/precedent/internal/model"
	"github.com/ppiankov/precedent/internal/ratings"
)

// Verdict buckets. The retired "barely-true" code counts as false alongside
// its successor "mostly-false".
var (
	falseVerdicts = map[string]bool{"false": true, "pants-fire": true, "barely-true": true, "mostly-false": true}
	trueVerdicts  = map[string]bool{"true": true, "mostly-true": true}
	mixedVerdicts = map[string]bool{"half-true": true}
)

// Profile summarizes the archive record of one speaker. It returns nil when
// the archive holds no checks attributed to them.
func Profile(speaker string, entries []model.ArchiveEntry) *model.SpeakerProfile {
	if speaker == "" {
		return nil
	}

	p := &model.SpeakerProfile{
		Speaker:         speaker,
		RatingBreakdown: make(map[string]int),
	}
	var falseN, trueN, mixedN int

	for _, e := range entries {
		if e.Speaker != speaker {
			continue
		}
		p.TotalChecks++

		code := e.VerdictCode()
		label := ratings.FormatLabel(code)
		if label == "" {
			label = "Unrated"
		}
		p.RatingBreakdown[label]++

		switch {
		case falseVerdicts[code]:
			falseN++
		case trueVerdicts[code]:
			trueN++
		case mixedVerdicts[code]:
			mixedN++
		}

		if d := e.PublicationDate; d != nil {
			if p.EarliestCheck == nil || d.Before(*p.EarliestCheck) {
				p.EarliestCheck = d
			}
			if p.LatestCheck == nil || d.After(*p.LatestCheck) {
				p.LatestCheck = d
			}
		}
	}

	if p.TotalChecks == 0 {
		return nil
	}

	total := float64(p.TotalChecks)
	p.FalsePct = float64(falseN) / total * 100
	p.TruePct = float64(trueN) / total * 100
	p.MixedPct = float64(mixedN) / total * 100

	switch {
	case p.FalsePct > 50:
		p.Indicator = model.IndicatorHighFalse
	case p.TruePct > 50:
		p.Indicator = model.IndicatorHighTrue
	default:
		p.Indicator = model.IndicatorMixed
	}
	return p
}

// TopSpeakers returns the most frequently checked speakers, most checks first
// and ties by name. A non-positive limit returns every speaker.
func TopSpeakers(entries []model.ArchiveEntry, limit int) []string {
	counts := make(map[string]int)
	for _, e := range entries {
		if e.Speaker != "" {
			counts[e.Speaker]++
		}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names
}
