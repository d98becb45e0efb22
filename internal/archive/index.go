// Package archive loads the read-only fact-check archive: a vector index plus a
// row-aligned metadata table.
package archive

import (
	"context"
	"fmt"
	"strings"
)

// Metric is the similarity metric of a vector index
type Metric string

const (
	// MetricInnerProduct scores by dot product over L2-normalized vectors, higher is closer
	MetricInnerProduct Metric = "ip"

	// MetricL2 scores by squared Euclidean distance, lower is closer
	MetricL2 Metric = "l2"
)

// ParseMetric parses "ip" or "l2" (case-insensitive)
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ip", "inner_product", "cosine":
		return MetricInnerProduct, nil
	case "l2", "euclidean":
		return MetricL2, nil
	default:
		return "", fmt.Errorf("unknown index metric: %s (supported: ip, l2)", s)
	}
}

// Neighbor is one nearest-neighbor hit: a metadata row and its raw distance
type Neighbor struct {
	Row      int
	Distance float32
}

// Index is a nearest-neighbor index over archive rows
type Index interface {
	// Search returns up to k neighbors ordered best first
	Search(ctx context.Context, vector []float32, k int) ([]Neighbor, error)
	Metric() Metric
	Len() int
	Dim() int
}
