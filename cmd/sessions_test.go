package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/pders01/cclens/internal/testutil"
)

const testSessionID = "0b5a7f2e-1c3d-4e5f-8a9b-0c1d2e3f4a5b"

// useTempTree points the command layer at a throwaway monitored tree.
func useTempTree(t *testing.T, dir *testutil.TempClaudeDir) {
	t.Helper()
	viper.Set("claude_dir", dir.Path)
	viper.Set("cache.enabled", false)
	t.Cleanup(func() {
		viper.Set("claude_dir", "")
		viper.Set("cache.enabled", false)
	})
}

func writeDemoSession(dir *testutil.TempClaudeDir) {
	base := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	dir.WriteSession("demo", testSessionID,
		testutil.UserLine(testSessionID, "/home/u/src/widget", "list me later", base),
		testutil.AssistantLine(testSessionID, "claude-sonnet-4", "Noted.", 50, 10, base.Add(time.Minute)),
	)
}

func TestSessionsEmptyTree(t *testing.T) {
	dir := testutil.NewTempClaudeDir(t)
	defer dir.Cleanup()
	useTempTree(t, dir)

	sessionsProject = ""
	sessionsSince = ""
	sessionsJSON = false
	sessionsToon = false

	sessionsCmd.SetContext(context.Background())
	if err := runSessions(sessionsCmd, nil); err != nil {
		t.Fatalf("sessions command failed: %v", err)
	}
}

func TestSessionsListsIndexed(t *testing.T) {
	dir := testutil.NewTempClaudeDir(t)
	defer dir.Cleanup()
	useTempTree(t, dir)
	writeDemoSession(dir)

	sessionsProject = ""
	sessionsSince = ""
	sessionsJSON = true
	sessionsToon = false

	sessionsCmd.SetContext(context.Background())
	if err := runSessions(sessionsCmd, nil); err != nil {
		t.Fatalf("sessions command failed: %v", err)
	}
}

func TestSessionsProjectFilter(t *testing.T) {
	dir := testutil.NewTempClaudeDir(t)
	defer dir.Cleanup()
	useTempTree(t, dir)
	writeDemoSession(dir)

	sessionsProject = "no-such-project"
	sessionsSince = ""
	sessionsJSON = false
	sessionsToon = false

	sessionsCmd.SetContext(context.Background())
	if err := runSessions(sessionsCmd, nil); err != nil {
		t.Fatalf("sessions command failed: %v", err)
	}
}

func TestSessionsBadSinceDate(t *testing.T) {
	dir := testutil.NewTempClaudeDir(t)
	defer dir.Cleanup()
	useTempTree(t, dir)

	sessionsProject = ""
	sessionsSince = "not-a-date"
	sessionsJSON = false
	sessionsToon = false

	sessionsCmd.SetContext(context.Background())
	if err := runSessions(sessionsCmd, nil); err == nil {
		t.Error("expected error for malformed --since date")
	}
	sessionsSince = ""
}
