package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/precedent/internal/archive"
	"github.com/ppiankov/precedent/internal/cache"
)

var (
	indexInput   string
	indexMetric  string
	indexBackend string
	indexTimeout time.Duration
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the fact-check archive index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Embed archive entries and build the vector index",
	Long: `Build reads archive entries (a JSON array, an {"entries": [...]} object or
JSON Lines), embeds each claim with its explanation and writes a vector index
row-aligned with the metadata table.

Backends:
  flat    binary index file in the data directory (default)
  milvus  a Milvus collection, recreated on every build

Example:
  precedent index build --input politifact.jsonl
  precedent index build --input politifact.json --backend milvus --metric l2`,
	RunE: runIndexBuild,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexBuildCmd)

	indexBuildCmd.Flags().StringVar(&indexInput, "input", "", "archive entries file (required)")
	indexBuildCmd.Flags().StringVar(&indexMetric, "metric", "", "similarity metric: ip or l2 (default from config)")
	indexBuildCmd.Flags().StringVar(&indexBackend, "backend", "", "index backend: flat or milvus (default from config)")
	indexBuildCmd.Flags().DurationVar(&indexTimeout, "timeout", time.Hour, "overall build timeout")
	_ = indexBuildCmd.MarkFlagRequired("input")
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if indexBackend != "" {
		cfg.Archive.Backend = indexBackend
	}
	if indexMetric != "" {
		cfg.Archive.Milvus.Metric = indexMetric
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	entries, err := archive.LoadMetadata(indexInput)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d entries from %s\n", len(entries), indexInput)

	c, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	embedder, err := newEmbedder(cfg, c, log)
	if err != nil {
		return err
	}

	start := time.Now()
	switch strings.ToLower(cfg.Archive.Backend) {
	case "", "flat":
		metric, err := archive.ParseMetric(cfg.Archive.Milvus.Metric)
		if err != nil {
			return err
		}
		if err := archive.BuildFlat(ctx, entries, embedder, cfg.Archive, metric, log); err != nil {
			return fmt.Errorf("build flat index: %w", err)
		}
	case "milvus":
		if err := archive.BuildMilvus(ctx, entries, embedder, cfg.Archive, log); err != nil {
			return fmt.Errorf("build milvus index: %w", err)
		}
	default:
		return fmt.Errorf("unknown archive backend: %s", cfg.Archive.Backend)
	}

	fmt.Fprintf(os.Stderr, "✓ Indexed %d entries in %s (%s backend)\n",
		len(entries), time.Since(start).Round(time.Millisecond), cfg.Archive.Backend)
	return nil
}
