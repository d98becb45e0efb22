package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/precedent/internal/archive"
	"github.com/ppiankov/precedent/internal/cache"
	"github.com/ppiankov/precedent/internal/embed"
	"github.com/ppiankov/precedent/internal/extract"
	"github.com/ppiankov/precedent/internal/factcheck"
	"github.com/ppiankov/precedent/internal/llm"
	"github.com/ppiankov/precedent/internal/model"
	"github.com/ppiankov/precedent/internal/pipeline"
	"github.com/ppiankov/precedent/internal/retrieval"
	"github.com/ppiankov/precedent/internal/speaker"
)

// services holds everything constructed once per process and shared by
// every check
type services struct {
	cfg       *model.Config
	log       *zap.Logger
	cache     cache.Cache
	archive   *archive.Archive
	tracker   *speaker.Tracker
	extractor *llm.Extractor // nil when no LLM is configured
	engine    *pipeline.Engine
}

// newServices loads the archive and wires the engine. External search is
// skipped when withExternal is false.
func newServices(ctx context.Context, cfg *model.Config, log *zap.Logger, withExternal bool) (*services, error) {
	c, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	embedder, err := newEmbedder(cfg, c, log)
	if err != nil {
		return nil, err
	}

	arc, err := archive.Load(ctx, cfg.Archive, log)
	if err != nil {
		return nil, fmt.Errorf("load archive: %w", err)
	}

	s := &services{
		cfg:     cfg,
		log:     log,
		cache:   c,
		archive: arc,
		tracker: speaker.NewTracker(arc.Entries, cfg.Speaker),
	}

	if cfg.LLM.Provider != "" {
		ex, err := llm.NewExtractor(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			log.Warn("LLM extraction disabled", zap.Error(err))
		} else {
			s.extractor = ex
		}
	}

	searcher := retrieval.NewSearcher(arc, embedder, cfg, log)

	var external pipeline.ExternalSearcher
	if withExternal && cfg.FactCheck.Enabled {
		client := factcheck.NewClient(cfg.FactCheck, s.factCheckExtractor(), c, log)
		if client.Enabled() {
			external = client
		} else {
			log.Warn("external fact-check search disabled: no API key (set GOOGLE_FACTCHECK_API_KEY)")
		}
	}

	s.engine = pipeline.NewEngine(cfg, searcher, external, s.tracker, c, log)
	return s, nil
}

func newEmbedder(cfg *model.Config, c cache.Cache, log *zap.Logger) (embed.Provider, error) {
	provider, err := embed.NewProvider(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("create embedding provider: %w", err)
	}
	if c == nil {
		return provider, nil
	}
	return embed.NewCachedProvider(provider, c, log), nil
}

// factCheckExtractor prefers the LLM and falls back to keyword heuristics
func (s *services) factCheckExtractor() factcheck.Extractor {
	if s.extractor.IsEnabled() {
		return s.extractor
	}
	return extract.NewClaimExtractor()
}

// claimFinder returns the LLM claim finder for article scans, or nil
func (s *services) claimFinder() pipeline.ClaimFinder {
	if s.extractor.IsEnabled() {
		return s.extractor
	}
	return nil
}

func (s *services) Close() {
	if err := s.archive.Close(); err != nil {
		s.log.Warn("close archive", zap.Error(err))
	}
	_ = s.log.Sync()
}
