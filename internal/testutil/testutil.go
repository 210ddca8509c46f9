package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TempClaudeDir builds a throwaway monitored tree for tests.
type TempClaudeDir struct {
	Path string
	T    *testing.T
}

// NewTempClaudeDir creates an empty monitored tree with the standard
// subdirectories in place.
func NewTempClaudeDir(t *testing.T) *TempClaudeDir {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "cclens-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	for _, sub := range []string{"projects", "agents", "commands", "skills"} {
		if err := os.MkdirAll(filepath.Join(tmpDir, sub), 0o755); err != nil {
			os.RemoveAll(tmpDir)
			t.Fatalf("failed to create %s dir: %v", sub, err)
		}
	}

	return &TempClaudeDir{Path: tmpDir, T: t}
}

// Cleanup removes the tree.
func (d *TempClaudeDir) Cleanup() {
	d.T.Helper()
	if err := os.RemoveAll(d.Path); err != nil {
		d.T.Errorf("failed to cleanup temp dir: %v", err)
	}
}

// WriteFile writes a file at a path relative to the tree root,
// creating parent directories as needed.
func (d *TempClaudeDir) WriteFile(rel, content string) string {
	d.T.Helper()
	path := filepath.Join(d.Path, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		d.T.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		d.T.Fatalf("failed to write file: %v", err)
	}
	return path
}

// AppendFile appends content to a file under the tree.
func (d *TempClaudeDir) AppendFile(rel, content string) {
	d.T.Helper()
	path := filepath.Join(d.Path, rel)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		d.T.Fatalf("failed to open file for append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		d.T.Fatalf("failed to append: %v", err)
	}
}

// RemoveFile deletes a file under the tree.
func (d *TempClaudeDir) RemoveFile(rel string) {
	d.T.Helper()
	if err := os.Remove(filepath.Join(d.Path, rel)); err != nil {
		d.T.Fatalf("failed to remove file: %v", err)
	}
}

// WriteSession writes a session JSONL file from prebuilt lines and
// returns its path.
func (d *TempClaudeDir) WriteSession(project, id string, lines ...string) string {
	d.T.Helper()
	content := ""
	for _, line := range lines {
		content += line + "\n"
	}
	return d.WriteFile(filepath.Join("projects", project, id+".jsonl"), content)
}

// WriteSettings writes one settings layer file ("settings.json" or
// "settings.local.json") from a tree.
func (d *TempClaudeDir) WriteSettings(name string, tree map[string]any) {
	d.T.Helper()
	data, err := json.Marshal(tree)
	if err != nil {
		d.T.Fatalf("failed to marshal settings: %v", err)
	}
	d.WriteFile(name, string(data))
}

// WriteStats writes the aggregate stats file.
func (d *TempClaudeDir) WriteStats(tree map[string]any) {
	d.T.Helper()
	data, err := json.Marshal(tree)
	if err != nil {
		d.T.Fatalf("failed to marshal stats: %v", err)
	}
	d.WriteFile("stats.json", string(data))
}

// UserLine builds a user-turn session record.
func UserLine(sessionID, cwd, text string, ts time.Time) string {
	return fmt.Sprintf(
		`{"type":"user","sessionId":%q,"cwd":%q,"timestamp":%q,"message":{"role":"user","content":%q}}`,
		sessionID, cwd, ts.Format(time.RFC3339), text,
	)
}

// AssistantLine builds an assistant-turn session record with usage.
func AssistantLine(sessionID, model, text string, inToks, outToks int, ts time.Time) string {
	return fmt.Sprintf(
		`{"type":"assistant","sessionId":%q,"timestamp":%q,"message":{"role":"assistant","model":%q,`+
			`"content":[{"type":"text","text":%q}],"usage":{"input_tokens":%d,"output_tokens":%d}}}`,
		sessionID, ts.Format(time.RFC3339), model, text, inToks, outToks,
	)
}
