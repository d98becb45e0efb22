package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/ppiankov/precedent/internal/pipeline"
	"github.com/ppiankov/precedent/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Check many claims from a file in parallel",
	Long: `Batch checks one claim per line of the input file:
- Blank lines and lines starting with # are skipped
- Claims are checked in parallel with a bounded worker pool
- Each analysis is written as JSON and Markdown to the output directory

Example:
  precedent batch claims.txt
  precedent batch claims.txt --concurrency 8 --output-dir ./checks`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./precedent-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&noExternal, "no-external", false, "search the archive only")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Precedent Batch Check\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	claims, err := worker.ReadClaimsFromFile(file)
	if err != nil {
		return fmt.Errorf("read claims: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d claims\n\n", len(claims))

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	svc, err := newServices(ctx, cfg, log, !noExternal)
	if err != nil {
		return err
	}
	defer svc.Close()

	renderer := pipeline.NewRenderer(cfg.Retrieval.SimThreshold)
	processor := worker.NewBatchProcessor(svc.engine, cfg.Concurrency.Workers)

	var succeeded int
	processor.OnResult(func(res *worker.CheckResult) {
		if res.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", shorten(res.Claim, 60), res.Error)
			return
		}

		base := filepath.Join(outputDir, fmt.Sprintf("%03d-%s", res.Index+1, slugify(res.Claim, 60)))
		if err := renderer.RenderJSON(res.Analysis, base+".json"); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", shorten(res.Claim, 60), err)
			return
		}
		if err := renderer.RenderMarkdown(res.Analysis, base+".md"); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", shorten(res.Claim, 60), err)
			return
		}

		succeeded++
		fmt.Fprintf(os.Stderr, "✓ %s (%s)\n", shorten(res.Claim, 60), res.Analysis.Consensus.Agreement)
	})

	results := processor.ProcessClaims(ctx, claims)

	failed := len(results) - succeeded
	if ctx.Err() != nil {
		fmt.Fprintf(os.Stderr, "\n⚠ batch stopped early: %v\n", ctx.Err())
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d claims\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", succeeded)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failed)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// slugify turns text into a lowercase, hyphenated file name of at most n runes
func slugify(s string, n int) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteRune('-')
			dash = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if runes := []rune(slug); len(runes) > n {
		slug = strings.TrimRight(string(runes[:n]), "-")
	}
	if slug == "" {
		return "claim"
	}
	return slug
}

func shorten(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
