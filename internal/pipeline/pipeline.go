// Package pipeline runs a claim through archive retrieval and external
// search in parallel, fuses the results and scores their consensus.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/precedent/internal/cache"
	"github.com/ppiankov/precedent/internal/consensus"
	"github.com/ppiankov/precedent/internal/fusion"
	"github.com/ppiankov/precedent/internal/model"
)

// ArchiveSearcher retrieves the archive group. Its errors are request-fatal.
type ArchiveSearcher interface {
	Search(ctx context.Context, query string, k int) (model.SourceGroup, error)
}

// ExternalSearcher retrieves external fact-checks. Failures come back as warnings.
type ExternalSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, []string)
}

// SpeakerLookup finds the profile of whoever the claim is attributed to
type SpeakerLookup interface {
	Lookup(text string) *model.SpeakerProfile
}

// Observer is told about every finished check. cached is true when the
// analysis was served from the memo cache.
type Observer interface {
	ObserveCheck(a *model.Analysis, cached bool, err error, elapsed time.Duration)
}

// Engine checks claims. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	archive  ArchiveSearcher
	external ExternalSearcher // nil disables external search
	speakers SpeakerLookup    // nil disables speaker profiles
	cache    cache.Cache      // nil disables memoization
	observer Observer
	cfg      *model.Config
	log      *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewEngine wires an engine. external, speakers and c may be nil.
func NewEngine(cfg *model.Config, archive ArchiveSearcher, external ExternalSearcher, speakers SpeakerLookup, c cache.Cache, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		archive:  archive,
		external: external,
		speakers: speakers,
		cache:    c,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SetObserver registers o to receive check outcomes
func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

// Check runs one claim end to end. Only an archive failure or cancellation
// fails the check; external failures are reported in Analysis.Warnings.
func (e *Engine) Check(ctx context.Context, query string) (*model.Analysis, error) {
	start := e.now()
	query = strings.TrimSpace(query)

	key := e.cacheKey(query)
	if a, ok := e.cached(key); ok {
		e.log.Debug("analysis served from cache", zap.String("id", a.ID))
		e.observe(a, true, nil, start)
		return a, nil
	}

	a, err := e.run(ctx, query)
	e.observe(a, false, err, start)
	if err != nil {
		return nil, err
	}

	// Degraded analyses are not memoized so a later call can recover
	if len(a.Warnings) == 0 {
		e.store(key, a)
	}
	return a, nil
}

func (e *Engine) run(ctx context.Context, query string) (*model.Analysis, error) {
	var (
		archiveGroup model.SourceGroup
		external     []model.SearchResult
		warnings     []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		group, err := e.archive.Search(gctx, query, e.cfg.Retrieval.TopK)
		if err != nil {
			return err
		}
		archiveGroup = group
		return nil
	})
	if e.external != nil {
		g.Go(func() error {
			external, warnings = e.external.Search(gctx, query, e.cfg.FactCheck.MaxResults)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("archive search: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}

	groups := fusion.Fuse(archiveGroup, external, e.cfg.Archive.PrimaryPublisher, e.cfg.ArchiveLabel())
	report := consensus.Analyze(groups, e.cfg.Consensus.OutlierDelta)

	e.log.Debug("consensus computed",
		zap.String("agreement", string(report.Agreement)),
		zap.Float64("level", report.ConsensusLevel),
		zap.Int("sources", report.SourceCount),
		zap.Strings("outliers", report.Outliers),
	)

	analysis := &model.Analysis{
		ID:        e.newID(),
		Query:     query,
		CreatedAt: e.now().UTC(),
		Sources:   groups,
		Consensus: report,
		Warnings:  warnings,
	}
	if e.speakers != nil {
		analysis.Speaker = e.speakers.Lookup(query)
	}
	return analysis, nil
}

func (e *Engine) observe(a *model.Analysis, cached bool, err error, start time.Time) {
	if e.observer == nil {
		return
	}
	e.observer.ObserveCheck(a, cached, err, e.now().Sub(start))
}

func (e *Engine) cacheKey(query string) string {
	return cache.Key("analysis", query,
		strconv.Itoa(e.cfg.Retrieval.TopK),
		strconv.FormatBool(e.external != nil),
	)
}

func (e *Engine) cached(key string) (*model.Analysis, bool) {
	if e.cache == nil {
		return nil, false
	}
	data, ok := e.cache.Get(key)
	if !ok {
		return nil, false
	}
	var a model.Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		e.log.Warn("discarding unreadable cached analysis", zap.Error(err))
		return nil, false
	}
	return &a, true
}

func (e *Engine) store(key string, a *model.Analysis) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(a)
	if err != nil {
		e.log.Warn("marshal analysis for cache", zap.Error(err))
		return
	}
	if err := e.cache.Set(key, data, e.cfg.Cache.TTL); err != nil {
		e.log.Warn("cache analysis", zap.Error(err))
	}
}
