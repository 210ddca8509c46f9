package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var (
	settingsJSON bool
	settingsToon bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the effective merged settings",
	Long: `Display the effective settings after merging every layer of the
cascade: local > project > global > built-in defaults.

Examples:
  cclens settings
  cclens settings --json
  cclens settings --project-dir ~/code/my-app`,
	RunE: runSettings,
}

func init() {
	rootCmd.AddCommand(settingsCmd)

	settingsCmd.Flags().BoolVar(&settingsJSON, "json", false, "Output as JSON")
	settingsCmd.Flags().BoolVar(&settingsToon, "toon", false, "Output in LLM-friendly toon format")
}

func runSettings(cmd *cobra.Command, args []string) error {
	st, err := buildIndex(cmd.Context())
	if err != nil {
		return err
	}

	snap := st.ReadSnapshot()

	if settingsJSON {
		return printJSON(snap.Settings)
	}
	if settingsToon {
		return printToon(snap.Settings)
	}

	keys := make([]string, 0, len(snap.Settings))
	for k := range snap.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println("Effective settings:")
	for _, k := range keys {
		fmt.Printf("  %-24s %v\n", k, snap.Settings[k])
	}

	for _, failure := range snap.Report.Failures {
		fmt.Printf("\nWarning: %s: %s\n", failure.Path, failure.Reason)
	}

	return nil
}
