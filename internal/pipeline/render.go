package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/precedent/internal/consensus"
	"github.com/ppiankov/precedent/internal/model"
)

// Renderer writes analyses as JSON, Markdown or a terminal summary
type Renderer struct {
	simThreshold float64
}

// NewRenderer creates a renderer. Archive matches at or above simThreshold
// are marked as strong.
func NewRenderer(simThreshold float64) *Renderer {
	return &Renderer{simThreshold: simThreshold}
}

// RenderJSON writes v as indented JSON to path
func (r *Renderer) RenderJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the analysis as Markdown to path
func (r *Renderer) RenderMarkdown(a *model.Analysis, path string) error {
	return writeFile(path, []byte(r.Markdown(a)))
}

// RenderScanMarkdown writes every check of a scanned article to path
func (r *Renderer) RenderScanMarkdown(report *ScanReport, path string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", report.Title)
	fmt.Fprintf(&b, "Source: %s  \nFetched: %s\n\n", report.URL, report.FetchedAt.Format("2006-01-02 15:04 MST"))

	for _, w := range report.Warnings {
		fmt.Fprintf(&b, "> Warning: %s\n\n", w)
	}
	for _, a := range report.Checks {
		b.WriteString(demote(r.Markdown(a)))
		b.WriteString("\n---\n\n")
	}
	if len(report.Failures) > 0 {
		b.WriteString("## Failed checks\n\n")
		for claim, err := range report.Failures {
			fmt.Fprintf(&b, "- %s: %s\n", claim, err)
		}
	}
	return writeFile(path, []byte(b.String()))
}

// Markdown renders one analysis
func (r *Renderer) Markdown(a *model.Analysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Claim: %s\n\n", a.Query)
	fmt.Fprintf(&b, "Analysis `%s`, %s\n\n", a.ID, a.CreatedAt.Format("2006-01-02 15:04 MST"))

	for _, w := range a.Warnings {
		fmt.Fprintf(&b, "> Warning: %s\n\n", w)
	}

	b.WriteString("## Consensus\n\n")
	c := a.Consensus
	fmt.Fprintf(&b, "- Agreement: **%s**\n", c.Agreement)
	if c.Agreement.HasData() {
		fmt.Fprintf(&b, "- Consensus level: %.0f%%\n", c.ConsensusLevel*100)
		fmt.Fprintf(&b, "- Average rating: %.2f / 5 (%s)\n", *c.AverageRating, consensus.Tendency(c))
		fmt.Fprintf(&b, "- Publishers: %d\n", c.SourceCount)
		if len(c.Outliers) > 0 {
			fmt.Fprintf(&b, "- Outliers: %s\n", strings.Join(c.Outliers, ", "))
		}
	}
	b.WriteString("\n")

	if anchor, ok := a.Anchor(); ok {
		b.WriteString("## Closest archive precedent\n\n")
		fmt.Fprintf(&b, "> %s\n\n", anchor.Claim)
		fmt.Fprintf(&b, "Rated **%s** by %s (%s)\n\n", anchor.Rating, anchor.Publisher, r.matchStrength(anchor))
	}

	if s := a.Speaker; s != nil {
		b.WriteString("## Speaker record\n\n")
		fmt.Fprintf(&b, "**%s**: %s across %d checks\n\n", s.Speaker, s.Indicator, s.TotalChecks)
		fmt.Fprintf(&b, "- False: %.0f%%\n- True: %.0f%%\n- Mixed: %.0f%%\n", s.FalsePct, s.TruePct, s.MixedPct)
		if s.EarliestCheck != nil && s.LatestCheck != nil {
			fmt.Fprintf(&b, "- Checked between %s and %s\n", s.EarliestCheck.Format("2006-01-02"), s.LatestCheck.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}

	for _, g := range a.Sources {
		fmt.Fprintf(&b, "## %s (%d)\n\n", g.SourceName, g.Len())
		if g.Len() == 0 {
			b.WriteString("No matches.\n\n")
			continue
		}
		for i, res := range g.Results {
			fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, res.Rating, res.Claim)
			meta := []string{res.Publisher}
			if res.SimilarityScore != nil {
				meta = append(meta, fmt.Sprintf("similarity %.2f", res.Similarity()))
			}
			if res.Boosted {
				meta = append(meta, "keyword match")
			}
			if res.ReviewDate != "" {
				meta = append(meta, res.ReviewDate)
			}
			fmt.Fprintf(&b, "   %s  \n   %s\n", strings.Join(meta, " · "), res.URL)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderSummary prints a short terminal summary
func (r *Renderer) RenderSummary(w io.Writer, a *model.Analysis) {
	c := a.Consensus

	fmt.Fprintf(w, "\nClaim: %s\n", a.Query)
	fmt.Fprintf(w, "Consensus: %s", c.Agreement)
	if c.Agreement.HasData() {
		fmt.Fprintf(w, " (level %.2f, avg %.2f %s, %d publishers)", c.ConsensusLevel, *c.AverageRating, consensus.Tendency(c), c.SourceCount)
	}
	fmt.Fprintln(w)
	if len(c.Outliers) > 0 {
		fmt.Fprintf(w, "Outliers: %s\n", strings.Join(c.Outliers, ", "))
	}

	if anchor, ok := a.Anchor(); ok {
		fmt.Fprintf(w, "Anchor: %s [%s, %s]\n", anchor.Claim, anchor.Rating, r.matchStrength(anchor))
	}
	if s := a.Speaker; s != nil {
		fmt.Fprintf(w, "Speaker: %s, %s (%d checks, %.0f%% false)\n", s.Speaker, s.Indicator, s.TotalChecks, s.FalsePct)
	}

	for _, g := range a.Sources {
		fmt.Fprintf(w, "  %-45s %d\n", g.SourceName, g.Len())
	}
	for _, warn := range a.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warn)
	}
}

func (r *Renderer) matchStrength(res model.SearchResult) string {
	switch {
	case res.Boosted:
		return "keyword match"
	case res.Similarity() >= r.simThreshold:
		return fmt.Sprintf("strong match %.2f", res.Similarity())
	default:
		return fmt.Sprintf("weak match %.2f", res.Similarity())
	}
}

// demote shifts Markdown headings one level down
func demote(md string) string {
	lines := strings.Split(md, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, "#") {
			lines[i] = "#" + l
		}
	}
	return strings.Join(lines, "\n")
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
