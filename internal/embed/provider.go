// Package embed wraps the external embedding provider used for both archive
// entries (at index build time) and live queries.
package embed

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/precedent/internal/model"
)

// Provider turns text into embedding vectors. The same model must be used for the
// archive and for queries, or similarities are meaningless.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelID() string
}

// NewProvider creates the embedding provider named in the configuration
func NewProvider(cfg model.EmbeddingConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		return NewOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai)", cfg.Provider)
	}
}

// L2Normalize returns a unit-length copy of v. Query vectors must be normalized
// this way whenever the index was built with normalized vectors for inner product.
func L2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum) + 1e-12

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
