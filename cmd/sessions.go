package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/cclens/internal/models"
)

var (
	sessionsProject string
	sessionsSince   string
	sessionsJSON    bool
	sessionsToon    bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List indexed sessions",
	Long: `List session summaries from the index with optional filtering.

Examples:
  cclens sessions
  cclens sessions --project my-app
  cclens sessions --since 2026-08-01
  cclens sessions --json`,
	RunE: runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)

	sessionsCmd.Flags().StringVar(&sessionsProject, "project", "", "Filter by project name")
	sessionsCmd.Flags().StringVar(&sessionsSince, "since", "", "Show sessions updated since date (YYYY-MM-DD)")
	sessionsCmd.Flags().BoolVar(&sessionsJSON, "json", false, "Output as JSON")
	sessionsCmd.Flags().BoolVar(&sessionsToon, "toon", false, "Output in LLM-friendly toon format")
}

func runSessions(cmd *cobra.Command, args []string) error {
	st, err := buildIndex(cmd.Context())
	if err != nil {
		return err
	}

	snap := st.ReadSnapshot()
	sessions := snap.Sessions()

	var since time.Time
	if sessionsSince != "" {
		since, err = time.Parse("2006-01-02", sessionsSince)
		if err != nil {
			return fmt.Errorf("invalid --since date format (use YYYY-MM-DD): %w", err)
		}
	}

	var filtered []*models.SessionMeta
	for _, s := range sessions {
		if sessionsProject != "" && s.Project != sessionsProject {
			continue
		}
		if !since.IsZero() && s.UpdatedAt.Before(since) {
			continue
		}
		filtered = append(filtered, s)
	}

	if sessionsJSON {
		return printJSON(filtered)
	}
	if sessionsToon {
		return printToon(filtered)
	}

	if len(filtered) == 0 {
		fmt.Println("No sessions match the filter criteria")
		return nil
	}

	fmt.Printf("Found %d session(s):\n\n", len(filtered))
	for _, s := range filtered {
		fmt.Printf("  %s  %s\n", s.ShortID, s.Project)
		fmt.Printf("    Updated:  %s\n", s.UpdatedAt.Format("2006-01-02 15:04"))
		fmt.Printf("    Messages: %d user / %d assistant\n", s.UserMsgs, s.AgentMsgs)
		if len(s.Models) > 0 {
			fmt.Printf("    Models:   %v\n", s.Models)
		}
		if s.Summary != "" {
			fmt.Printf("    Summary:  %s\n", s.Summary)
		}
		fmt.Println()
	}

	if snap.Report.Degraded() {
		fmt.Printf("Warning: %d source(s) failed to load; run 'cclens stats' for details\n", len(snap.Report.Failures))
	}

	return nil
}
