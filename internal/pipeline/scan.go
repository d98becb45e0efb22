package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/precedent/internal/extract"
	"github.com/ppiankov/precedent/internal/model"
	"github.com/ppiankov/precedent/internal/worker"
)

// ClaimFinder picks check-worthy claims out of article text
type ClaimFinder interface {
	ExtractClaims(ctx context.Context, text string) ([]string, error)
}

// ScanReport is every claim found in one article, each checked
type ScanReport struct {
	URL       string            `json:"url"`
	Title     string            `json:"title"`
	FetchedAt time.Time         `json:"fetched_at"`
	Checks    []*model.Analysis `json:"checks"`
	Failures  map[string]string `json:"failures,omitempty"` // Claim -> error
	Warnings  []string          `json:"warnings,omitempty"`
}

// Scanner fetches an article and checks the claims it makes
type Scanner struct {
	fetcher   *Fetcher
	heuristic *extract.ClaimExtractor
	finder    ClaimFinder // nil uses the keyword heuristic only
	batch     *worker.BatchProcessor
	maxClaims int
	log       *zap.Logger
}

// NewScanner creates a scanner checking up to cfg.Fetch.MaxClaims claims per article
func NewScanner(cfg *model.Config, fetcher *Fetcher, checker worker.Checker, finder ClaimFinder, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{
		fetcher:   fetcher,
		heuristic: extract.NewClaimExtractor(),
		finder:    finder,
		batch:     worker.NewBatchProcessor(checker, cfg.Concurrency.Workers),
		maxClaims: cfg.Fetch.MaxClaims,
		log:       log,
	}
}

// ScanURL fetches rawURL and checks its claims. Fetch failures are returned;
// individual claim failures are recorded in the report.
func (s *Scanner) ScanURL(ctx context.Context, rawURL string) (*ScanReport, error) {
	article, err := s.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch article: %w", err)
	}

	report := &ScanReport{
		URL:       article.URL,
		Title:     article.Title,
		FetchedAt: time.Now().UTC(),
	}

	s.checkText(ctx, article.Text, report)
	return report, nil
}

// checkText finds the claims in text and checks them into report
func (s *Scanner) checkText(ctx context.Context, text string, report *ScanReport) {
	claims := s.findClaims(ctx, text, report)
	if len(claims) == 0 {
		report.Warnings = append(report.Warnings, "no check-worthy claims found")
		return
	}

	for _, res := range s.batch.ProcessClaims(ctx, claims) {
		if res.Error != nil {
			if report.Failures == nil {
				report.Failures = make(map[string]string)
			}
			report.Failures[res.Claim] = res.Error.Error()
			continue
		}
		report.Checks = append(report.Checks, res.Analysis)
	}
}

func (s *Scanner) findClaims(ctx context.Context, text string, report *ScanReport) []string {
	var claims []string
	if s.finder != nil {
		found, err := s.finder.ExtractClaims(ctx, text)
		if err != nil {
			s.log.Warn("claim extraction failed, using keyword heuristic", zap.Error(err))
			report.Warnings = append(report.Warnings, fmt.Sprintf("claim extraction failed: %v", err))
		}
		claims = found
	}
	if len(claims) == 0 {
		claims = s.heuristic.Extract(text)
	}

	if s.maxClaims > 0 && len(claims) > s.maxClaims {
		claims = claims[:s.maxClaims]
	}
	return claims
}
