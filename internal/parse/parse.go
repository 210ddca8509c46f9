// Package parse turns source files from the monitored tree into
// summary metadata. Parsers produce partial results plus per-file
// failure notes instead of aborting on the first error.
package parse

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/pders01/cclens/internal/models"
)

// kindPatterns maps root-relative glob patterns to source kinds.
// First match wins.
var kindPatterns = []struct {
	pattern string
	kind    models.Kind
}{
	{"projects/*/*.jsonl", models.KindSession},
	{"stats.json", models.KindStats},
	{"settings.json", models.KindSettings},
	{"settings.local.json", models.KindSettings},
	{"agents/*.md", models.KindAgent},
	{"commands/*.md", models.KindCommand},
	{"skills/*/SKILL.md", models.KindSkill},
}

// Classify maps an absolute path under root to the parser kind that
// owns it. Paths the system writes itself (the fingerprint cache,
// vector files) and anything unrecognized classify as KindUnknown.
func Classify(root, path string) models.Kind {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return models.KindUnknown
	}
	rel = filepath.ToSlash(rel)

	if strings.HasPrefix(rel, "vectors/") || strings.HasPrefix(filepath.Base(rel), ".cclens-") {
		return models.KindUnknown
	}
	if rel == "index-cache.jsonl" {
		return models.KindUnknown
	}
	// Subagent transcripts live next to session files with an agent-
	// prefixed stem; they are not top-level sessions.
	if strings.HasPrefix(filepath.Base(rel), "agent-") {
		return models.KindUnknown
	}

	for _, kp := range kindPatterns {
		if ok, _ := doublestar.Match(kp.pattern, rel); ok {
			return kp.kind
		}
	}
	return models.KindUnknown
}
