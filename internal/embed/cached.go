package embed

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/ppiankov/precedent/internal/cache"
)

// CachedProvider memoizes embeddings by model and exact text
type CachedProvider struct {
	next  Provider
	cache cache.Cache
	log   *zap.Logger
}

// NewCachedProvider wraps a provider with a cache. A nil cache disables caching.
func NewCachedProvider(next Provider, c cache.Cache, log *zap.Logger) Provider {
	if c == nil {
		return next
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedProvider{next: next, cache: c, log: log}
}

// ModelID returns the wrapped provider's model
func (p *CachedProvider) ModelID() string {
	return p.next.ModelID()
}

// Embed returns a cached vector or embeds and stores it
func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.Key("embed", p.next.ModelID(), text)

	if data, ok := p.cache.Get(key); ok {
		var vec []float32
		if err := json.Unmarshal(data, &vec); err == nil {
			p.log.Debug("Embedding cache hit", zap.Int("dim", len(vec)))
			return vec, nil
		}
	}

	vec, err := p.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	p.store(key, vec)
	return vec, nil
}

// EmbedBatch embeds only the texts missing from the cache
func (p *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if data, ok := p.cache.Get(cache.Key("embed", p.next.ModelID(), text)); ok {
			var vec []float32
			if err := json.Unmarshal(data, &vec); err == nil {
				out[i] = vec
				continue
			}
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := p.next.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range vectors {
		out[missingIdx[j]] = vec
		p.store(cache.Key("embed", p.next.ModelID(), missing[j]), vec)
	}

	return out, nil
}

func (p *CachedProvider) store(key string, vec []float32) {
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := p.cache.Set(key, data, 0); err != nil {
		p.log.Warn("Failed to cache embedding", zap.Error(err))
	}
}
