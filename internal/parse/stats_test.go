package parse

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/pders01/cclens/internal/testutil"
)

func TestParseStats(t *testing.T) {
	dir := testutil.NewTempClaudeDir(t)
	defer dir.Cleanup()

	dir.WriteStats(map[string]any{
		"session_count": 12,
		"message_count": 340,
		"input_tokens":  150000,
		"output_tokens": 42000,
		"by_model":      map[string]any{"claude-sonnet-4": 300},
	})

	stats, err := ParseStats(filepath.Join(dir.Path, "stats.json"))
	if err != nil {
		t.Fatalf("ParseStats failed: %v", err)
	}
	if stats.SessionCount != 12 {
		t.Errorf("SessionCount = %d, want 12", stats.SessionCount)
	}
	if stats.MessageCount != 340 {
		t.Errorf("MessageCount = %d, want 340", stats.MessageCount)
	}
	if stats.ByModel["claude-sonnet-4"] != 300 {
		t.Errorf("ByModel = %v", stats.ByModel)
	}
}

func TestParseStatsMalformed(t *testing.T) {
	dir := testutil.NewTempClaudeDir(t)
	defer dir.Cleanup()

	path := dir.WriteFile("stats.json", `{"session_count": 12,`)

	_, err := ParseStats(path)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestParseStatsMissing(t *testing.T) {
	dir := testutil.NewTempClaudeDir(t)
	defer dir.Cleanup()

	_, err := ParseStats(filepath.Join(dir.Path, "stats.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
	if errors.Is(err, ErrMalformed) {
		t.Error("a missing file must not classify as malformed")
	}
}
