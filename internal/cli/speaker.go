package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ppiankov/precedent/internal/archive"
	"github.com/ppiankov/precedent/internal/speaker"
)

var (
	speakerList bool
	speakerJSON bool
)

var speakerCmd = &cobra.Command{
	Use:   "speaker [text]",
	Short: "Detect who a claim is attributed to and show their fact-check record",
	Long: `Speaker detects the speaker of a claim from attribution patterns such as
"X said", "according to X" or "X: ..." and fuzzy-matches the name against the
most frequently checked speakers in the archive.

Only the archive metadata is read; no embeddings or network calls are made.

Example:
  precedent speaker "Joe Biden said inflation is transitory"
  precedent speaker --list`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSpeaker,
}

func init() {
	rootCmd.AddCommand(speakerCmd)

	speakerCmd.Flags().BoolVar(&speakerList, "list", false, "list the known speaker roster")
	speakerCmd.Flags().BoolVar(&speakerJSON, "json", false, "print the profile as JSON")
}

func runSpeaker(cmd *cobra.Command, args []string) error {
	if !speakerList && len(args) == 0 {
		return fmt.Errorf("provide text to analyze or use --list")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	entries, err := archive.LoadMetadata(filepath.Join(cfg.Archive.DataDir, cfg.Archive.MetadataFile))
	if err != nil {
		return err
	}
	tracker := speaker.NewTracker(entries, cfg.Speaker)

	if speakerList {
		for i, name := range tracker.Roster() {
			fmt.Printf("%3d. %s\n", i+1, name)
		}
		return nil
	}

	profile := tracker.Lookup(args[0])
	if profile == nil {
		fmt.Fprintln(os.Stderr, "No known speaker detected")
		return nil
	}

	if speakerJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	}

	fmt.Printf("Speaker:    %s\n", profile.Speaker)
	fmt.Printf("Record:     %s\n", profile.Indicator)
	fmt.Printf("Checks:     %d\n", profile.TotalChecks)
	fmt.Printf("False:      %.1f%%\n", profile.FalsePct)
	fmt.Printf("True:       %.1f%%\n", profile.TruePct)
	fmt.Printf("Mixed:      %.1f%%\n", profile.MixedPct)
	if profile.EarliestCheck != nil && profile.LatestCheck != nil {
		fmt.Printf("Checked:    %s to %s\n", profile.EarliestCheck.Format("2006-01-02"), profile.LatestCheck.Format("2006-01-02"))
	}

	labels := make([]string, 0, len(profile.RatingBreakdown))
	for label := range profile.RatingBreakdown {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		ci, cj := profile.RatingBreakdown[labels[i]], profile.RatingBreakdown[labels[j]]
		if ci != cj {
			return ci > cj
		}
		return labels[i] < labels[j]
	})
	fmt.Println()
	for _, label := range labels {
		fmt.Printf("  %-16s %d\n", label, profile.RatingBreakdown[label])
	}
	return nil
}
