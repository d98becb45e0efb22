package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/precedent/internal/pipeline"
)

var (
	feedSchedule  string
	feedMaxItems  int
	feedOutputDir string
	feedTimeout   time.Duration
	feedFollow    bool
)

var feedCmd = &cobra.Command{
	Use:   "feed <url>",
	Short: "Check the claims in new items of an RSS or Atom feed",
	Long: `Feed reads an RSS or Atom feed and checks the claims in each item it has
not seen before. By default an item's summary is scanned; --follow-links
fetches the linked article instead.

With --schedule the feed is polled on a cron schedule until interrupted,
and only new items are checked on each pass.

Example:
  precedent feed https://example.com/politics/rss.xml
  precedent feed https://example.com/rss --schedule "*/30 * * * *" --output-dir ./feed-reports`,
	Args: cobra.ExactArgs(1),
	RunE: runFeed,
}

func init() {
	rootCmd.AddCommand(feedCmd)

	feedCmd.Flags().StringVar(&feedSchedule, "schedule", "", "cron schedule for repeated passes (default from config, empty runs once)")
	feedCmd.Flags().IntVar(&feedMaxItems, "max-items", 0, "new items to check per pass (default from config)")
	feedCmd.Flags().StringVar(&feedOutputDir, "output-dir", "", "write a report per pass to this directory")
	feedCmd.Flags().DurationVar(&feedTimeout, "timeout", 10*time.Minute, "timeout of one pass")
	feedCmd.Flags().BoolVar(&feedFollow, "follow-links", false, "fetch each item's article instead of its summary")
	feedCmd.Flags().BoolVar(&noExternal, "no-external", false, "search the archive only")
}

func runFeed(cmd *cobra.Command, args []string) error {
	feedURL := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if feedMaxItems > 0 {
		cfg.Feed.MaxItems = feedMaxItems
	}
	if feedSchedule != "" {
		cfg.Feed.Schedule = feedSchedule
	}
	if feedFollow {
		cfg.Feed.FollowLinks = true
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newServices(ctx, cfg, log, !noExternal)
	if err != nil {
		return err
	}
	defer svc.Close()

	fetcher := pipeline.NewFetcher(cfg.Fetch)
	scanner := pipeline.NewScanner(cfg, fetcher, svc.engine, svc.claimFinder(), log)
	feeds := pipeline.NewFeedScanner(cfg.Feed, fetcher, scanner, log)
	renderer := pipeline.NewRenderer(cfg.Retrieval.SimThreshold)

	pass := func() error {
		passCtx, cancel := context.WithTimeout(ctx, feedTimeout)
		defer cancel()

		report, err := feeds.Scan(passCtx, feedURL)
		if err != nil {
			return err
		}
		printFeedReport(renderer, report)
		if feedOutputDir != "" {
			if err := writeFeedReport(renderer, report, feedOutputDir); err != nil {
				return err
			}
		}
		return nil
	}

	if cfg.Feed.Schedule == "" {
		if err := pass(); err != nil {
			return fmt.Errorf("feed scan failed: %w", err)
		}
		return nil
	}

	cronLog := cron.PrintfLogger(zap.NewStdLog(log))
	c := cron.New(cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)))
	if _, err := c.AddFunc(cfg.Feed.Schedule, func() {
		if err := pass(); err != nil {
			log.Error("feed pass failed", zap.String("feed", feedURL), zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cfg.Feed.Schedule, err)
	}

	if err := pass(); err != nil {
		log.Error("feed pass failed", zap.String("feed", feedURL), zap.Error(err))
	}

	log.Info("polling feed", zap.String("feed", feedURL), zap.String("schedule", cfg.Feed.Schedule))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func printFeedReport(renderer *pipeline.Renderer, report *pipeline.FeedReport) {
	fmt.Printf("%s: %d new items, %d already checked\n", report.Title, len(report.Items), report.Skipped)
	for _, item := range report.Items {
		fmt.Printf("\n%s\n%s\n", item.Title, item.URL)
		for _, a := range item.Checks {
			renderer.RenderSummary(os.Stdout, a)
		}
		for _, w := range item.Warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
		}
	}
	for key, msg := range report.Failures {
		fmt.Fprintf(os.Stderr, "✗ %s: %s\n", key, msg)
	}
}

// writeFeedReport writes the pass as JSON plus one Markdown file per item
func writeFeedReport(renderer *pipeline.Renderer, report *pipeline.FeedReport, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	stamp := report.FetchedAt.Format("20060102-150405")
	if err := renderer.RenderJSON(report, filepath.Join(dir, stamp+"-feed.json")); err != nil {
		return fmt.Errorf("render JSON: %w", err)
	}
	for i, item := range report.Items {
		name := fmt.Sprintf("%s-%03d-%s.md", stamp, i+1, slugify(item.Title, 40))
		if err := renderer.RenderScanMarkdown(item, filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
	}
	return nil
}
