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
	outJSON      string
	outMD        string
	checkTimeout time.Duration
	noExternal   bool
	topK         int
)

var checkCmd = &cobra.Command{
	Use:   "check <claim>",
	Short: "Find prior fact-checks of a claim and score their agreement",
	Long: `Check searches the archive and the external fact-check API in parallel,
merges the results into source groups and reports:
- The closest archive precedent (the anchor)
- How far publishers agree, with outliers
- The record of the speaker the claim is attributed to

Example:
  precedent check "The unemployment rate doubled under the last governor"
  precedent check "Crime fell 20% in Texas" --json check.json --md check.md
  precedent check "Tax cuts pay for themselves" --no-external --top-k 10`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	checkCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", time.Minute, "overall check timeout")
	checkCmd.Flags().BoolVar(&noExternal, "no-external", false, "search the archive only")
	checkCmd.Flags().IntVar(&topK, "top-k", 0, "archive matches to retrieve (default from config)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	claim := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if topK > 0 {
		cfg.Retrieval.TopK = topK
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Checking: %s\n", claim)
		fmt.Fprintf(os.Stderr, "Archive: %s (%s backend)\n", cfg.Archive.DataDir, cfg.Archive.Backend)
		fmt.Fprintf(os.Stderr, "External search: %v\n\n", !noExternal && cfg.FactCheck.Enabled)
	}

	svc, err := newServices(ctx, cfg, log, !noExternal)
	if err != nil {
		return err
	}
	defer svc.Close()

	analysis, err := svc.engine.Check(ctx, claim)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Retrieval.SimThreshold)
	if outJSON != "" {
		if err := renderer.RenderJSON(analysis, outJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
		}
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(analysis, outMD); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", outMD)
		}
	}

	renderer.RenderSummary(os.Stdout, analysis)
	return nil
}
