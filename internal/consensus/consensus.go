// Package consensus scores how closely fact-check publishers agree on a claim.
package consensus

import (
	"math"

	"github.com/ppiankov/precedent/internal/model"
	"github.com/ppiankov/precedent/internal/ratings"
)

// DefaultOutlierDelta is the distance from the mean beyond which a publisher is an outlier
const DefaultOutlierDelta = 1.5

// halfScale normalizes the standard deviation into a consensus level
const halfScale = float64(ratings.MaxScore-ratings.MinScore) / 2

// Analyze standardizes every rating across the groups and reports agreement
// among distinct publishers. A publisher appearing several times keeps the
// score of its last scorable result. A non-positive delta uses the default.
func Analyze(groups []model.SourceGroup, delta float64) model.ConsensusReport {
	if len(groups) == 0 {
		return model.ConsensusReport{Agreement: model.AgreementNoData, Outliers: []string{}}
	}
	if delta <= 0 {
		delta = DefaultOutlierDelta
	}

	scores := make(map[string]int)
	var order []string
	for _, g := range groups {
		for _, r := range g.Results {
			score, ok := ratings.Standardize(r.Rating)
			if !ok {
				continue
			}
			name := publisherName(r)
			if _, seen := scores[name]; !seen {
				order = append(order, name)
			}
			scores[name] = score
		}
	}

	if len(scores) == 0 {
		return model.ConsensusReport{
			Agreement:   model.AgreementNoStandardizableRatings,
			Outliers:    []string{},
			SourceCount: len(groups),
		}
	}

	mean, std := meanStd(order, scores)
	level := math.Max(0, 1-std/halfScale)

	outliers := []string{}
	for _, name := range order {
		if math.Abs(float64(scores[name])-mean) > delta {
			outliers = append(outliers, name)
		}
	}

	return model.ConsensusReport{
		ConsensusLevel: level,
		AverageRating:  &mean,
		StdDev:         std,
		Agreement:      Classify(level),
		Outliers:       outliers,
		SourceCount:    len(scores),
		SourceRatings:  scores,
	}
}

// Classify maps a consensus level onto an agreement band
func Classify(level float64) model.Agreement {
	switch {
	case level > 0.8:
		return model.AgreementStrong
	case level > 0.6:
		return model.AgreementModerate
	case level > 0.4:
		return model.AgreementSome
	default:
		return model.AgreementSignificant
	}
}

// Tendency returns the display label of the rounded average rating, or "" when
// the report has no average.
func Tendency(report model.ConsensusReport) string {
	if report.AverageRating == nil {
		return ""
	}
	return ratings.ScoreLabel(int(math.Round(*report.AverageRating)))
}

// meanStd returns the mean and population standard deviation
func meanStd(order []string, scores map[string]int) (float64, float64) {
	n := float64(len(order))
	sum := 0.0
	for _, name := range order {
		sum += float64(scores[name])
	}
	mean := sum / n

	variance := 0.0
	for _, name := range order {
		d := float64(scores[name]) - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / n)
}

func publisherName(r model.SearchResult) string {
	if r.Publisher != "" {
		return r.Publisher
	}
	if r.Source != "" {
		return r.Source
	}
	return "Unknown"
}
