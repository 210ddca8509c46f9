package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/cclens/internal/models"
	"github.com/pders01/cclens/internal/parse"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the full content of one indexed entity",
	Long: `Load and display the content behind a single index entry: the
conversation for a session, or the body of an agent/command/skill
descriptor.

Content is read lazily from the source file at request time; the index
itself never holds message or descriptor bodies.

Examples:
  cclens show 3f2a9c1e-8b4d-4f6a-9c0d-1e2f3a4b5c6d
  cclens show agent:reviewer`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")
}

func runShow(cmd *cobra.Command, args []string) error {
	id := args[0]

	st, err := buildIndex(cmd.Context())
	if err != nil {
		return err
	}

	ent, ok := st.GetEntity(id)
	if !ok {
		// Accept a short id prefix as a convenience.
		for _, s := range st.ReadSnapshot().Sessions() {
			if strings.HasPrefix(s.ID, id) {
				ent, ok = s, true
				break
			}
		}
	}
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}

	if dm, ok := ent.(*models.DescriptorMeta); ok {
		return showDescriptor(dm)
	}
	meta, isSession := ent.(*models.SessionMeta)
	if !isSession {
		return fmt.Errorf("cannot show entity: %s", id)
	}

	messages, failures, err := parse.SessionMessages(meta.Path)
	if err != nil {
		return fmt.Errorf("failed to load session content: %w", err)
	}

	if showJSON {
		return printJSON(messages)
	}

	fmt.Printf("Session %s (%s)\n", meta.ShortID, meta.Project)
	if meta.Summary != "" {
		fmt.Printf("Summary: %s\n", meta.Summary)
	}
	fmt.Println()

	for _, msg := range messages {
		fmt.Printf("[%s]\n%s\n\n", msg.Role, msg.Text)
	}

	if len(failures) > 0 {
		fmt.Printf("Warning: %d malformed record(s) skipped\n", len(failures))
	}

	return nil
}

func showDescriptor(dm *models.DescriptorMeta) error {
	body, err := parse.DescriptorBody(dm.Path)
	if err != nil {
		return fmt.Errorf("failed to load descriptor content: %w", err)
	}

	if showJSON {
		return printJSON(struct {
			*models.DescriptorMeta
			Body string `json:"body"`
		}{dm, body})
	}

	fmt.Printf("%s %s\n", dm.Kind_, dm.Name)
	if dm.Description != "" {
		fmt.Printf("Description: %s\n", dm.Description)
	}
	if dm.Model != "" {
		fmt.Printf("Model:       %s\n", dm.Model)
	}
	if len(dm.Tools) > 0 {
		fmt.Printf("Tools:       %v\n", dm.Tools)
	}
	fmt.Println()
	fmt.Println(body)
	return nil
}
