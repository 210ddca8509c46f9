package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/cclens/internal/models"
)

var (
	statsJSON bool
	statsToon bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate stats and index health",
	Long: `Display the aggregate usage stats from the monitored tree plus
index-level counts and any sources that failed to load.

Examples:
  cclens stats
  cclens stats --json
  cclens stats --toon`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	statsCmd.Flags().BoolVar(&statsToon, "toon", false, "Output in LLM-friendly toon format")
}

type indexStats struct {
	Aggregate models.AggregateStats `json:"aggregate"`
	Sessions  int                   `json:"sessions"`
	Agents    int                   `json:"agents"`
	Commands  int                   `json:"commands"`
	Skills    int                   `json:"skills"`
	Version   uint64                `json:"version"`
	Failures  []models.LoadFailure  `json:"failures,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) error {
	st, err := buildIndex(cmd.Context())
	if err != nil {
		return err
	}

	snap := st.ReadSnapshot()
	out := indexStats{
		Aggregate: snap.Stats,
		Sessions:  len(snap.Sessions()),
		Agents:    len(snap.Descriptors(models.KindAgent)),
		Commands:  len(snap.Descriptors(models.KindCommand)),
		Skills:    len(snap.Descriptors(models.KindSkill)),
		Version:   snap.Version,
		Failures:  snap.Report.Failures,
	}

	if statsJSON {
		return printJSON(out)
	}
	if statsToon {
		return printToon(out)
	}

	fmt.Println("Aggregate stats:")
	fmt.Printf("  Sessions:      %d\n", out.Aggregate.SessionCount)
	fmt.Printf("  Messages:      %d\n", out.Aggregate.MessageCount)
	fmt.Printf("  Input tokens:  %d\n", out.Aggregate.InputTokens)
	fmt.Printf("  Output tokens: %d\n", out.Aggregate.OutputTokens)
	if len(out.Aggregate.ByModel) > 0 {
		fmt.Println("  By model:")
		for model, n := range out.Aggregate.ByModel {
			fmt.Printf("    %-32s %d\n", model, n)
		}
	}

	fmt.Println("\nIndex:")
	fmt.Printf("  Sessions: %d  Agents: %d  Commands: %d  Skills: %d\n",
		out.Sessions, out.Agents, out.Commands, out.Skills)
	fmt.Printf("  Version:  %d\n", out.Version)

	if len(out.Failures) > 0 {
		fmt.Printf("\nDegraded sources (%d):\n", len(out.Failures))
		for _, f := range out.Failures {
			if f.Line > 0 {
				fmt.Printf("  %s:%d: %s\n", f.Path, f.Line, f.Reason)
			} else {
				fmt.Printf("  %s: %s\n", f.Path, f.Reason)
			}
		}
	}

	return nil
}
