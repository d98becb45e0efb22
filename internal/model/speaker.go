package model

import "time"

// CredibilityIndicator is the overall classification of a speaker's record
type CredibilityIndicator string

const (
	IndicatorHighFalse CredibilityIndicator = "High False Rate"
	IndicatorHighTrue  CredibilityIndicator = "High True Rate"
	IndicatorMixed     CredibilityIndicator = "Mixed Record"
)

// SpeakerProfile is the historical rating distribution for one speaker
type SpeakerProfile struct {
	Speaker         string               `json:"speaker"`
	TotalChecks     int                  `json:"total_checks"`
	RatingBreakdown map[string]int       `json:"rating_breakdown"` // Display label -> count
	FalsePct        float64              `json:"false_pct"`
	TruePct         float64              `json:"true_pct"`
	MixedPct        float64              `json:"mixed_pct"`
	Indicator       CredibilityIndicator `json:"indicator"`
	EarliestCheck   *time.Time           `json:"earliest_check,omitempty"`
	LatestCheck     *time.Time           `json:"latest_check,omitempty"`
}
