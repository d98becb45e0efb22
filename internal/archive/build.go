package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ppiankov/precedent/internal/embed"
	"github.com/ppiankov/precedent/internal/model"
)

const buildBatchSize = 128

// Embed computes one vector per entry, L2-normalizing when the metric is inner
// product so that query-time normalization matches.
func Embed(ctx context.Context, entries []model.ArchiveEntry, provider embed.Provider, metric Metric, log *zap.Logger) ([][]float32, error) {
	vectors := make([][]float32, 0, len(entries))
	for start := 0; start < len(entries); start += buildBatchSize {
		end := start + buildBatchSize
		if end > len(entries) {
			end = len(entries)
		}

		texts := make([]string, 0, end-start)
		for _, e := range entries[start:end] {
			texts = append(texts, e.SearchText())
		}

		batch, err := provider.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed rows %d-%d: %w", start, end-1, err)
		}
		for _, v := range batch {
			if metric == MetricInnerProduct {
				v = embed.L2Normalize(v)
			}
			vectors = append(vectors, v)
		}

		log.Debug("embedded archive batch", zap.Int("done", end), zap.Int("total", len(entries)))
	}
	return vectors, nil
}

// BuildFlat embeds entries and writes a row-aligned flat index and metadata table
func BuildFlat(ctx context.Context, entries []model.ArchiveEntry, provider embed.Provider, cfg model.ArchiveConfig, metric Metric, log *zap.Logger) error {
	if len(entries) == 0 {
		return fmt.Errorf("no archive entries to index")
	}

	vectors, err := Embed(ctx, entries, provider, metric, log)
	if err != nil {
		return err
	}

	idx := NewFlatIndex(metric, len(vectors[0]))
	for i, v := range vectors {
		if err := idx.Add(v); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := idx.WriteFile(filepath.Join(cfg.DataDir, cfg.IndexFile)); err != nil {
		return err
	}
	if err := WriteMetadata(filepath.Join(cfg.DataDir, cfg.MetadataFile), entries); err != nil {
		return err
	}

	log.Info("flat index built",
		zap.Int("entries", idx.Len()),
		zap.Int("dim", idx.Dim()),
		zap.String("metric", string(metric)),
	)
	return nil
}

// BuildMilvus embeds entries, loads them into a fresh Milvus collection and
// writes the metadata table.
func BuildMilvus(ctx context.Context, entries []model.ArchiveEntry, provider embed.Provider, cfg model.ArchiveConfig, log *zap.Logger) error {
	if len(entries) == 0 {
		return fmt.Errorf("no archive entries to index")
	}

	metric, err := ParseMetric(cfg.Milvus.Metric)
	if err != nil {
		return err
	}

	vectors, err := Embed(ctx, entries, provider, metric, log)
	if err != nil {
		return err
	}

	mv, err := NewMilvusIndex(ctx, cfg.Milvus)
	if err != nil {
		return err
	}
	defer func() { _ = mv.Close() }()

	if err := mv.Create(ctx, len(vectors[0])); err != nil {
		return err
	}
	if err := mv.Insert(ctx, vectors); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := WriteMetadata(filepath.Join(cfg.DataDir, cfg.MetadataFile), entries); err != nil {
		return err
	}

	log.Info("milvus collection built",
		zap.String("collection", cfg.Milvus.Collection),
		zap.Int("entries", len(vectors)),
	)
	return nil
}
