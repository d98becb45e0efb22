package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/ppiankov/precedent/internal/extract"
	"github.com/ppiankov/precedent/internal/model"
)

// FeedReport is one pass over an RSS or Atom feed
type FeedReport struct {
	FeedURL   string            `json:"feed_url"`
	Title     string            `json:"title"`
	FetchedAt time.Time         `json:"fetched_at"`
	Items     []*ScanReport     `json:"items"`
	Skipped   int               `json:"skipped"`            // Items seen on an earlier pass
	Failures  map[string]string `json:"failures,omitempty"` // Item key (GUID, else link) -> error
}

// FeedScanner checks the claims in new feed items. It remembers which items
// it has already checked, so repeated scans only look at new ones.
type FeedScanner struct {
	fetcher     *Fetcher
	scanner     *Scanner
	maxItems    int
	followLinks bool
	log         *zap.Logger

	mu   sync.Mutex
	seen map[string]struct{}
	now  func() time.Time
}

// NewFeedScanner creates a feed scanner that checks items through scanner
func NewFeedScanner(cfg model.FeedConfig, fetcher *Fetcher, scanner *Scanner, log *zap.Logger) *FeedScanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &FeedScanner{
		fetcher:     fetcher,
		scanner:     scanner,
		maxItems:    cfg.MaxItems,
		followLinks: cfg.FollowLinks,
		log:         log,
		seen:        make(map[string]struct{}),
		now:         time.Now,
	}
}

// FetchFeed downloads and parses the feed at rawURL
func (f *Fetcher) FetchFeed(ctx context.Context, rawURL string) (*gofeed.Feed, error) {
	body, err := withRetry(ctx, func() ([]byte, error) {
		b, _, err := f.get(ctx, rawURL, "application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8")
		return b, err
	})
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// Scan checks up to maxItems unseen items of the feed, newest first as the
// feed lists them. Only a feed fetch failure is returned as an error.
func (s *FeedScanner) Scan(ctx context.Context, feedURL string) (*FeedReport, error) {
	feed, err := s.fetcher.FetchFeed(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	report := &FeedReport{
		FeedURL:   feedURL,
		Title:     feed.Title,
		FetchedAt: s.now().UTC(),
	}

	items := s.claimItems(feed.Items, report)
	for i, item := range items {
		if ctx.Err() != nil {
			s.forget(items[i:]...)
			break
		}

		itemReport, err := s.scanItem(ctx, item)
		if err != nil {
			s.log.Warn("feed item skipped", zap.String("link", item.Link), zap.Error(err))
			if report.Failures == nil {
				report.Failures = make(map[string]string)
			}
			report.Failures[itemKey(item)] = err.Error()
			s.forget(item)
			continue
		}
		report.Items = append(report.Items, itemReport)
	}

	s.log.Info("feed scanned",
		zap.String("feed", feedURL),
		zap.Int("items", len(report.Items)),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failures)),
	)
	return report, nil
}

// claimItems marks up to maxItems unseen items as seen and returns them
func (s *FeedScanner) claimItems(items []*gofeed.Item, report *FeedReport) []*gofeed.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	var picked []*gofeed.Item
	for _, item := range items {
		key := itemKey(item)
		if key == "" {
			continue
		}
		if _, ok := s.seen[key]; ok {
			report.Skipped++
			continue
		}
		if s.maxItems > 0 && len(picked) >= s.maxItems {
			break
		}
		s.seen[key] = struct{}{}
		picked = append(picked, item)
	}
	return picked
}

// forget lets items be picked again on the next pass
func (s *FeedScanner) forget(items ...*gofeed.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		delete(s.seen, itemKey(item))
	}
}

func (s *FeedScanner) scanItem(ctx context.Context, item *gofeed.Item) (*ScanReport, error) {
	if s.followLinks && item.Link != "" {
		return s.scanner.ScanURL(ctx, item.Link)
	}

	report := &ScanReport{
		URL:       item.Link,
		Title:     strings.TrimSpace(item.Title),
		FetchedAt: s.now().UTC(),
	}
	s.scanner.checkText(ctx, itemText(item), report)
	return report, nil
}

// itemKey identifies an item across passes
func itemKey(item *gofeed.Item) string {
	switch {
	case item.GUID != "":
		return item.GUID
	case item.Link != "":
		return item.Link
	default:
		return strings.TrimSpace(item.Title)
	}
}

// itemText prefers full content, then the summary, then the headline
func itemText(item *gofeed.Item) string {
	for _, raw := range []string{item.Content, item.Description} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		article, err := extract.ParseArticle(raw)
		if err == nil && article.Text != "" {
			return article.Text
		}
	}
	return strings.TrimSpace(item.Title)
}
