package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/precedent/internal/pipeline"
)

var (
	scanJSON      string
	scanMD        string
	scanTimeout   time.Duration
	scanMaxClaims int
	noRobots      bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "Check the claims made in an article",
	Long: `Scan fetches an article, picks out its check-worthy sentences (with the
configured LLM, or keyword heuristics) and checks each one.

Example:
  precedent scan https://example.com/news/budget-speech
  precedent scan https://example.com/story --max-claims 10 --md story.md`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanJSON, "json", "", "output JSON path (optional)")
	scanCmd.Flags().StringVar(&scanMD, "md", "", "output Markdown path (optional)")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 3*time.Minute, "overall scan timeout")
	scanCmd.Flags().IntVar(&scanMaxClaims, "max-claims", 0, "claims to check (default from config)")
	scanCmd.Flags().BoolVar(&noRobots, "ignore-robots", false, "fetch even when robots.txt disallows it")
	scanCmd.Flags().BoolVar(&noExternal, "no-external", false, "search the archive only")
}

func runScan(cmd *cobra.Command, args []string) error {
	url := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if scanMaxClaims > 0 {
		cfg.Fetch.MaxClaims = scanMaxClaims
	}
	if noRobots {
		cfg.Fetch.RespectRobots = false
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	svc, err := newServices(ctx, cfg, log, !noExternal)
	if err != nil {
		return err
	}
	defer svc.Close()

	if verbose {
		fmt.Fprintf(os.Stderr, "Scanning: %s\n", url)
	}

	scanner := pipeline.NewScanner(cfg, pipeline.NewFetcher(cfg.Fetch), svc.engine, svc.claimFinder(), log)
	report, err := scanner.ScanURL(ctx, url)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Retrieval.SimThreshold)
	if scanJSON != "" {
		if err := renderer.RenderJSON(report, scanJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
	}
	if scanMD != "" {
		if err := renderer.RenderScanMarkdown(report, scanMD); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
	}

	fmt.Printf("%s\n%s\n", report.Title, report.URL)
	for _, a := range report.Checks {
		renderer.RenderSummary(os.Stdout, a)
	}
	for claim, msg := range report.Failures {
		fmt.Fprintf(os.Stderr, "✗ %s: %s\n", claim, msg)
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	return nil
}
