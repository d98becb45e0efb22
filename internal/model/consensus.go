package model

// Agreement classifies how closely distinct publishers agree
type Agreement string

const (
	AgreementNoData                  Agreement = "No data"
	AgreementNoStandardizableRatings Agreement = "No standardizable ratings"
	AgreementStrong                  Agreement = "Strong consensus"
	AgreementModerate                Agreement = "Moderate agreement"
	AgreementSome                    Agreement = "Some disagreement"
	AgreementSignificant             Agreement = "Significant disagreement"
)

// HasData reports whether the agreement was computed from at least one scorable rating
func (a Agreement) HasData() bool {
	return a != AgreementNoData && a != AgreementNoStandardizableRatings && a != ""
}

// ConsensusReport summarizes cross-source agreement for one query
type ConsensusReport struct {
	ConsensusLevel float64        `json:"consensus_level"`
	AverageRating  *float64       `json:"average_rating"`
	StdDev         float64        `json:"std_dev"`
	Agreement      Agreement      `json:"agreement"`
	Outliers       []string       `json:"outliers"`
	SourceCount    int            `json:"source_count"`
	SourceRatings  map[string]int `json:"source_ratings,omitempty"`
}
