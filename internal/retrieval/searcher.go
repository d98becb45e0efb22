// Package retrieval implements nearest-neighbor search over the fact-check
// archive, with a lexical boost for exact proper-noun matches.
package retrieval

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/precedent/internal/archive"
	"github.com/ppiankov/precedent/internal/embed"
	"github.com/ppiankov/precedent/internal/extract"
	"github.com/ppiankov/precedent/internal/model"
)

// Searcher answers archive queries. It only reads the archive and is safe for
// concurrent use.
type Searcher struct {
	archive   *archive.Archive
	embedder  embed.Provider
	cfg       model.RetrievalConfig
	label     string
	publisher string
	log       *zap.Logger
}

// NewSearcher creates a searcher over a loaded archive
func NewSearcher(arc *archive.Archive, embedder embed.Provider, cfg *model.Config, log *zap.Logger) *Searcher {
	return &Searcher{
		archive:   arc,
		embedder:  embedder,
		cfg:       cfg.Retrieval,
		label:     cfg.ArchiveLabel(),
		publisher: cfg.Archive.PrimaryPublisher,
		log:       log,
	}
}

// GroupName returns the name of the archive source group
func (s *Searcher) GroupName() string {
	return model.ArchiveGroupName(s.label)
}

// Search returns the k nearest archive entries for query, preceded by any
// lexical boost matches, deduplicated by URL. Embedding or index failures are
// returned as *RetrievalError, never as an empty group.
func (s *Searcher) Search(ctx context.Context, query string, k int) (model.SourceGroup, error) {
	group := model.SourceGroup{SourceName: s.GroupName()}

	if strings.TrimSpace(query) == "" {
		return group, &RetrievalError{Op: "embed", Err: errors.New("query is empty")}
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return group, &RetrievalError{Op: "embed", Err: err}
	}

	index := s.archive.Index
	if index.Metric() == archive.MetricInnerProduct {
		vec = embed.L2Normalize(vec)
	}

	neighbors, err := index.Search(ctx, vec, k)
	if err != nil {
		return group, &RetrievalError{Op: "search", Err: err}
	}

	var dense []model.SearchResult
	for _, n := range neighbors {
		entry, ok := s.archive.Entry(n.Row)
		if !ok {
			s.log.Warn("index returned row outside metadata table", zap.Int("row", n.Row))
			continue
		}
		dense = append(dense, s.result(entry, Similarity(index.Metric(), n.Distance)))
	}

	boosted := s.Boost(query)

	results := make([]model.SearchResult, 0, len(boosted)+len(dense))
	results = append(results, boosted...)
	results = append(results, dense...)
	group.Results = model.DedupByURL(results)

	s.log.Debug("archive search completed",
		zap.Int("k", k),
		zap.Int("dense", len(dense)),
		zap.Int("boosted", len(boosted)),
		zap.Int("results", len(group.Results)),
	)
	return group, nil
}

func (s *Searcher) result(e model.ArchiveEntry, similarity float64) model.SearchResult {
	return model.SearchResult{
		Source:          s.label,
		Publisher:       s.publisher,
		Claim:           e.Claim,
		Rating:          e.Rating,
		Explanation:     extract.Truncate(e.Explanation, s.cfg.ExplanationMax),
		URL:             e.URL,
		SimilarityScore: model.Score(similarity),
	}
}

// Similarity maps a raw index distance onto [0,1]. Inner products of unit
// vectors map via (ip+1)/2, squared L2 distances via 1/(1+d).
func Similarity(metric archive.Metric, distance float32) float64 {
	d := float64(distance)
	if metric == archive.MetricInnerProduct {
		return (d + 1) / 2
	}
	if d < 0 {
		d = 0
	}
	return 1 / (1 + d)
}
