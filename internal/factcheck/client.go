// Package factcheck queries the external fact-check search API, fanning a long
// query out into claim and term sub-queries.
package factcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/precedent/internal/cache"
	"github.com/ppiankov/precedent/internal/extract"
	"github.com/ppiankov/precedent/internal/model"
	"github.com/ppiankov/precedent/internal/util"
	"github.com/ppiankov/precedent/internal/worker"
)

const (
	subQueryClaims    = 3
	subQueryClaimSize = 3
	subQueryTerms     = 3
	subQueryTermSize  = 2
	subQueryParallel  = 3

	defaultTimeout = 10 * time.Second
)

// Extractor condenses long text into claims and search terms
type Extractor interface {
	ExtractTermsAndClaims(ctx context.Context, text string) (extract.Extraction, error)
}

// Client searches the external fact-check API. Failures never escape Search;
// they are returned as warnings alongside whatever results were gathered.
type Client struct {
	cfg        model.FactCheckConfig
	httpClient *http.Client
	limiter    *worker.Limiter
	extractor  Extractor
	cache      cache.Cache
	log        *zap.Logger
}

// NewClient creates a client. extractor and c may be nil.
func NewClient(cfg model.FactCheckConfig, extractor Extractor, c cache.Cache, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	var limiter *worker.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = worker.NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize)
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
		},
		limiter:   limiter,
		extractor: extractor,
		cache:     c,
		log:       log,
	}
}

// Enabled reports whether external search is switched on and has a key
func (c *Client) Enabled() bool {
	return c.cfg.Enabled && c.cfg.APIKey != ""
}

// subQuery is one API call of a fan-out
type subQuery struct {
	text     string
	pageSize int
}

// Search returns up to maxResults relevant external fact-checks for query.
// Long queries are condensed into claim and term sub-queries before the raw
// query itself is searched.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, []string) {
	if !c.Enabled() {
		return nil, nil
	}
	if maxResults <= 0 {
		maxResults = c.cfg.MaxResults
	}

	var warnings []string
	queries := []subQuery{}
	terms := extract.FallbackTerms(query)

	if c.isLong(query) {
		extraction, err := c.extract(ctx, query)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("claim extraction failed, searching raw query only: %v", err))
			c.log.Warn("claim extraction failed", zap.Error(err))
		} else {
			queries = append(queries, planSubQueries(extraction)...)
			terms = extract.DynamicTerms(query, extraction.Terms, extraction.Claims)
		}
	}
	queries = append(queries, subQuery{text: query, pageSize: maxResults})

	results, errs := c.fanOut(ctx, queries)
	for i, err := range errs {
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("external fact-check search %q failed: %v", shorten(queries[i].text), err))
			c.log.Warn("external fact-check search failed",
				zap.String("query", shorten(queries[i].text)),
				zap.Error(err),
			)
		}
	}

	var all []model.SearchResult
	for _, r := range results {
		all = append(all, r...)
	}

	filtered := FilterRelevant(model.DedupByURL(all), terms)
	if len(filtered) > maxResults {
		filtered = filtered[:maxResults]
	}

	c.log.Debug("external fact-check search completed",
		zap.Int("sub_queries", len(queries)),
		zap.Int("raw_results", len(all)),
		zap.Int("kept", len(filtered)),
		zap.Int("relevance_terms", len(terms)),
	)
	return filtered, warnings
}

func (c *Client) isLong(query string) bool {
	return c.cfg.LongQueryThreshold > 0 && utf8.RuneCountInString(query) > c.cfg.LongQueryThreshold
}

func (c *Client) extract(ctx context.Context, query string) (extract.Extraction, error) {
	if c.extractor == nil {
		return extract.Extraction{}, fmt.Errorf("no extractor configured")
	}
	return c.extractor.ExtractTermsAndClaims(ctx, query)
}

// planSubQueries turns the top claims and terms into sub-queries
func planSubQueries(e extract.Extraction) []subQuery {
	var out []subQuery
	for i, claim := range e.Claims {
		if i == subQueryClaims {
			break
		}
		out = append(out, subQuery{text: claim, pageSize: subQueryClaimSize})
	}
	for i, term := range e.Terms {
		if i == subQueryTerms {
			break
		}
		out = append(out, subQuery{text: term, pageSize: subQueryTermSize})
	}
	return out
}

// fanOut runs sub-queries concurrently. Results and errors are indexed like queries.
func (c *Client) fanOut(ctx context.Context, queries []subQuery) ([][]model.SearchResult, []error) {
	results := make([][]model.SearchResult, len(queries))
	errs := make([]error, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(subQueryParallel)
	for i, q := range queries {
		g.Go(func() error {
			results[i], errs[i] = c.cachedSearch(gctx, q.text, q.pageSize)
			return nil
		})
	}
	_ = g.Wait()

	return results, errs
}

func (c *Client) cachedSearch(ctx context.Context, query string, pageSize int) ([]model.SearchResult, error) {
	if c.cache == nil {
		return c.searchRaw(ctx, query, pageSize)
	}

	key := cache.Key("factcheck", query, strconv.Itoa(pageSize))
	if data, ok := c.cache.Get(key); ok {
		var cached []model.SearchResult
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	results, err := c.searchRaw(ctx, query, pageSize)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(results); err == nil {
		if err := c.cache.Set(key, data, 0); err != nil {
			c.log.Warn("Failed to cache fact-check results", zap.Error(err))
		}
	}
	return results, nil
}

// FilterRelevant keeps results whose claim, publisher or URL contains at least
// one term. With no terms nothing is filtered.
func FilterRelevant(results []model.SearchResult, terms []string) []model.SearchResult {
	if len(terms) == 0 {
		return results
	}

	var kept []model.SearchResult
	for _, r := range results {
		hay := strings.ToLower(r.Claim + " " + r.Publisher + " " + r.URL)
		for _, t := range terms {
			if strings.Contains(hay, t) {
				kept = append(kept, r)
				break
			}
		}
	}
	return kept
}

func shorten(s string) string {
	const max = 60
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
