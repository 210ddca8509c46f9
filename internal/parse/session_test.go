package parse

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pders01/cclens/internal/testutil"
)

const testSessionID = "0b5a7f2e-1c3d-4e5f-8a9b-0c1d2e3f4a5b"

func statFile(t *testing.T, path string) os.FileInfo {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	return info
}

func TestParseSession(t *testing.T) {
	dir := testutil.NewTempClaudeDir(t)
	defer dir.Cleanup()

	base := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	path := dir.WriteSession("demo", testSessionID,
		testutil.UserLine(testSessionID, "/home/u/src/widget", "fix the flaky watcher test", base),
		testutil.AssistantLine(testSessionID, "claude-sonnet-4", "Looking at it now.", 120, 40, base.Add(time.Minute)),
		testutil.AssistantLine(testSessionID, "claude-sonnet-4", "Done.", 80, 25, base.Add(2*time.Minute)),
	)

	meta, failures, err := ParseSession(path, statFile(t, path), nil)
	if err != nil {
		t.Fatalf("ParseSession failed: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %+v", failures)
	}

	if meta.ID != testSessionID {
		t.Errorf("ID = %q", meta.ID)
	}
	if meta.Project != "widget" {
		t.Errorf("Project = %q, want widget", meta.Project)
	}
	if meta.Summary != "fix the flaky watcher test" {
		t.Errorf("Summary = %q", meta.Summary)
	}
	if meta.UserMsgs != 1 || meta.AgentMsgs != 2 {
		t.Errorf("UserMsgs = %d, AgentMsgs = %d", meta.UserMsgs, meta.AgentMsgs)
	}
	if meta.InputToks != 200 || meta.OutputToks != 65 {
		t.Errorf("tokens = %d in / %d out", meta.InputToks, meta.OutputToks)
	}
	if len(meta.Models) != 1 || meta.Models[0] != "claude-sonnet-4" {
		t.Errorf("Models = %v", meta.Models)
	}
	if !meta.StartedAt.Equal(base) {
		t.Errorf("StartedAt = %v, want %v", meta.StartedAt, base)
	}
	if !meta.UpdatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("UpdatedAt = %v", meta.UpdatedAt)
	}
}

func TestParseSessionMalformedLine(t *testing.T) {
	dir := testutil.NewTempClaudeDir(t)
	defer dir.Cleanup()

	base := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	lines := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		if i == 50 {
			lines = append(lines, `{"type":"user","broken`)
			continue
		}
		lines = append(lines, testutil.UserLine(testSessionID, "/home/u/p",
			fmt.Sprintf("message %d", i), base.Add(time.Duration(i)*time.Second)))
	}
	path := dir.WriteSession("demo", testSessionID, lines...)

	meta, failures, err := ParseSession(path, statFile(t, path), nil)
	if err != nil {
		t.Fatalf("ParseSession failed: %v", err)
	}
	if meta == nil {
		t.Fatal("one bad line killed the whole file")
	}
	if meta.Lines != 99 {
		t.Errorf("Lines = %d, want 99", meta.Lines)
	}
	if meta.UserMsgs != 99 {
		t.Errorf("UserMsgs = %d, want 99", meta.UserMsgs)
	}
	if len(failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(failures))
	}
	if failures[0].Line != 51 {
		t.Errorf("failure Line = %d, want 51", failures[0].Line)
	}
	if failures[0].Path != path {
		t.Errorf("failure Path = %q", failures[0].Path)
	}
}

func TestParseSessionResume(t *testing.T) {
	dir := testutil.NewTempClaudeDir(t)
	defer dir.Cleanup()

	base := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	path := dir.WriteSession("demo", testSessionID,
		testutil.UserLine(testSessionID, "/home/u/p", "first question", base),
		testutil.AssistantLine(testSessionID, "claude-sonnet-4", "first answer", 100, 30, base.Add(time.Minute)),
	)

	prev, _, err := ParseSession(path, statFile(t, path), nil)
	if err != nil {
		t.Fatalf("initial parse: %v", err)
	}
	if prev.ScanOffset != statFile(t, path).Size() {
		t.Fatalf("ScanOffset = %d, want file size %d", prev.ScanOffset, statFile(t, path).Size())
	}

	dir.AppendFile(
		"projects/demo/"+testSessionID+".jsonl",
		testutil.UserLine(testSessionID, "/home/u/p", "followup", base.Add(2*time.Minute))+"\n"+
			testutil.AssistantLine(testSessionID, "claude-opus-4", "second answer", 200, 60, base.Add(3*time.Minute))+"\n",
	)

	meta, failures, err := ParseSession(path, statFile(t, path), prev)
	if err != nil {
		t.Fatalf("resumed parse: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("failures: %+v", failures)
	}

	// Counters accumulate across the resume instead of restarting.
	if meta.UserMsgs != 2 || meta.AgentMsgs != 2 {
		t.Errorf("UserMsgs = %d, AgentMsgs = %d", meta.UserMsgs, meta.AgentMsgs)
	}
	if meta.InputToks != 300 || meta.OutputToks != 90 {
		t.Errorf("tokens = %d in / %d out", meta.InputToks, meta.OutputToks)
	}
	if len(meta.Models) != 2 {
		t.Errorf("Models = %v", meta.Models)
	}
	// The summary stays the first user message from the original head.
	if meta.Summary != "first question" {
		t.Errorf("Summary = %q", meta.Summary)
	}
	if meta.ScanOffset != statFile(t, path).Size() {
		t.Errorf("ScanOffset = %d, want %d", meta.ScanOffset, statFile(t, path).Size())
	}
}

func TestParseSessionResumeKeepsLinePositions(t *testing.T) {
	dir := testutil.NewTempClaudeDir(t)
	defer dir.Cleanup()

	base := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	path := dir.WriteSession("demo", testSessionID,
		testutil.UserLine(testSessionID, "/home/u/p", "hello", base),
		`{"type":"user","broken`,
		testutil.UserLine(testSessionID, "/home/u/p", "still here", base.Add(time.Second)),
	)

	prev, failures, err := ParseSession(path, statFile(t, path), nil)
	if err != nil {
		t.Fatalf("initial parse: %v", err)
	}
	if len(failures) != 1 || failures[0].Line != 2 {
		t.Fatalf("initial failures = %+v, want one at line 2", failures)
	}
	if prev.ScanLines != 3 {
		t.Fatalf("ScanLines = %d, want 3", prev.ScanLines)
	}

	dir.AppendFile("projects/demo/"+testSessionID+".jsonl",
		testutil.UserLine(testSessionID, "/home/u/p", "after resume", base.Add(2*time.Second))+"\n"+
			`{"type":"user","also broken`+"\n",
	)

	_, failures, err = ParseSession(path, statFile(t, path), prev)
	if err != nil {
		t.Fatalf("resumed parse: %v", err)
	}
	// The failure names the real file line, not a count restarted at
	// the resume point.
	if len(failures) != 1 || failures[0].Line != 5 {
		t.Errorf("resumed failures = %+v, want one at line 5", failures)
	}
}

func TestParseSessionStaleOffsetRescans(t *testing.T) {
	dir := testutil.NewTempClaudeDir(t)
	defer dir.Cleanup()

	base := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	path := dir.WriteSession("demo", testSessionID,
		testutil.UserLine(testSessionID, "/home/u/p", "only line", base),
	)

	prev, _, err := ParseSession(path, statFile(t, path), nil)
	if err != nil {
		t.Fatalf("initial parse: %v", err)
	}

	// The file shrank; the recorded offset is past EOF so the resume is
	// abandoned and the file rescanned whole.
	dir.WriteSession("demo", testSessionID,
		testutil.UserLine(testSessionID, "/home/u/p", "new", base),
	)

	meta, _, err := ParseSession(path, statFile(t, path), prev)
	if err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if meta.UserMsgs != 1 {
		t.Errorf("UserMsgs = %d, want 1", meta.UserMsgs)
	}
	if meta.Summary != "new" {
		t.Errorf("Summary = %q, want new", meta.Summary)
	}
}

func TestParseSessionSummaryCleaning(t *testing.T) {
	dir := testutil.NewTempClaudeDir(t)
	defer dir.Cleanup()

	base := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	long := strings.Repeat("lengthy request ", 20)
	path := dir.WriteSession("demo", testSessionID,
		testutil.UserLine(testSessionID, "/home/u/p",
			"<system-hint></system-hint>  "+long, base),
	)

	meta, _, err := ParseSession(path, statFile(t, path), nil)
	if err != nil {
		t.Fatalf("ParseSession failed: %v", err)
	}
	if strings.Contains(meta.Summary, "<") || strings.Contains(meta.Summary, ">") {
		t.Errorf("tags not stripped: %q", meta.Summary)
	}
	if got := len([]rune(meta.Summary)); got > 120 {
		t.Errorf("summary length = %d runes, want <= 120", got)
	}
	if !strings.HasSuffix(meta.Summary, "..") {
		t.Errorf("truncated summary missing ellipsis: %q", meta.Summary)
	}
}

func TestParseSessionIDFromFilename(t *testing.T) {
	dir := testutil.NewTempClaudeDir(t)
	defer dir.Cleanup()

	// No record carries a sessionId; the UUID filename stem supplies it.
	path := dir.WriteSession("demo", testSessionID,
		`{"type":"summary","summary":"earlier context"}`,
	)

	meta, failures, err := ParseSession(path, statFile(t, path), nil)
	if err != nil {
		t.Fatalf("ParseSession failed: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("failures: %+v", failures)
	}
	if meta.ID != testSessionID {
		t.Errorf("ID = %q, want filename stem", meta.ID)
	}
}

func TestParseSessionNoID(t *testing.T) {
	dir := testutil.NewTempClaudeDir(t)
	defer dir.Cleanup()

	path := dir.WriteFile("projects/demo/notes.jsonl", `{"type":"summary"}`+"\n")

	meta, failures, err := ParseSession(path, statFile(t, path), nil)
	if err != nil {
		t.Fatalf("ParseSession errored: %v", err)
	}
	if meta != nil {
		t.Errorf("expected nil meta for an id-less file, got %+v", meta)
	}
	if len(failures) != 1 || failures[0].Reason != "no session id found" {
		t.Errorf("failures = %+v", failures)
	}
}

func TestSessionMessages(t *testing.T) {
	dir := testutil.NewTempClaudeDir(t)
	defer dir.Cleanup()

	base := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	path := dir.WriteSession("demo", testSessionID,
		testutil.UserLine(testSessionID, "/home/u/p", "hello", base),
		`{"type":"user","sessionId":"`+testSessionID+`","message":{"role":"user","content":[{"type":"tool_result","content":"output"}]}}`,
		testutil.AssistantLine(testSessionID, "claude-sonnet-4", "hi there", 10, 5, base.Add(time.Minute)),
	)

	messages, failures, err := SessionMessages(path)
	if err != nil {
		t.Fatalf("SessionMessages failed: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("failures: %+v", failures)
	}
	// The tool-result turn carries no text and is dropped.
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	if messages[0].Role != "user" || messages[0].Text != "hello" {
		t.Errorf("messages[0] = %+v", messages[0])
	}
	if messages[1].Role != "assistant" || messages[1].Text != "hi there" {
		t.Errorf("messages[1] = %+v", messages[1])
	}
	if messages[1].Model != "claude-sonnet-4" {
		t.Errorf("Model = %q", messages[1].Model)
	}
}
