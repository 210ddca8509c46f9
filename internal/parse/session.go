package parse

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/pders01/cclens/internal/models"
)

const (
	// summaryMaxLen bounds the preview stored in session metadata.
	summaryMaxLen = 120
	// maxLineBytes caps a single record; large tool outputs can push
	// lines into the megabytes.
	maxLineBytes = 10 * 1024 * 1024
)

var xmlTagRe = regexp.MustCompile(`<[^>]+>`)

// ParseSession derives SessionMeta from an append-only session JSONL
// file by a sequential scan that extracts only summary fields. When
// prev carries metadata for an earlier, shorter version of the same
// file, scanning resumes from the recorded offset instead of re-reading
// the head. A malformed record is skipped and noted, never fatal to
// the file.
func ParseSession(path string, info os.FileInfo, prev *models.SessionMeta) (*models.SessionMeta, []models.LoadFailure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session file: %w", err)
	}
	defer f.Close()

	meta := &models.SessionMeta{
		Path:      path,
		UpdatedAt: info.ModTime(),
	}
	var consumed int64

	resuming := prev != nil && prev.Path == path &&
		prev.ScanOffset > 0 && prev.ScanOffset <= info.Size()
	if resuming {
		copied := *prev
		copied.UpdatedAt = info.ModTime()
		meta = &copied
		if _, err := f.Seek(prev.ScanOffset, io.SeekStart); err != nil {
			return nil, nil, fmt.Errorf("failed to seek session file: %w", err)
		}
		consumed = prev.ScanOffset
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), maxLineBytes)

	var failures []models.LoadFailure
	lineNo := meta.ScanLines
	modelSet := make(map[string]bool, len(meta.Models))
	for _, m := range meta.Models {
		modelSet[m] = true
	}

	for scanner.Scan() {
		raw := scanner.Bytes()
		consumed += int64(len(raw)) + 1
		lineNo++

		line := strings.TrimSpace(string(raw))
		if line == "" {
			continue
		}
		if !gjson.Valid(line) {
			failures = append(failures, models.LoadFailure{
				Path:   path,
				Line:   lineNo,
				Reason: "malformed record",
				At:     time.Now(),
			})
			continue
		}
		meta.Lines++

		rec := gjson.Parse(line)
		if meta.ID == "" {
			if sid := rec.Get("sessionId").Str; sid != "" {
				meta.ID = sid
			}
		}
		if meta.CWD == "" {
			meta.CWD = rec.Get("cwd").Str
		}
		if ts, err := time.Parse(time.RFC3339, rec.Get("timestamp").Str); err == nil {
			if meta.StartedAt.IsZero() || ts.Before(meta.StartedAt) {
				meta.StartedAt = ts
			}
			if ts.After(meta.UpdatedAt) {
				meta.UpdatedAt = ts
			}
		}

		switch rec.Get("type").Str {
		case "user":
			content := rec.Get("message.content")
			if content.Type != gjson.String {
				// tool results arrive as content arrays
				continue
			}
			meta.UserMsgs++
			if meta.Summary == "" {
				meta.Summary = cleanSummary(content.Str)
			}
		case "assistant":
			meta.AgentMsgs++
			if m := rec.Get("message.model").Str; m != "" && !modelSet[m] {
				modelSet[m] = true
				meta.Models = append(meta.Models, m)
			}
			meta.InputToks += rec.Get("message.usage.input_tokens").Int()
			meta.OutputToks += rec.Get("message.usage.output_tokens").Int()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, failures, fmt.Errorf("failed to scan session file: %w", err)
	}

	if consumed > info.Size() {
		consumed = info.Size()
	}
	meta.ScanOffset = consumed
	meta.ScanLines = lineNo

	if meta.ID == "" {
		// Some files open with non-session records; fall back to the
		// filename stem when it is a session UUID.
		stem := strings.TrimSuffix(filepath.Base(path), ".jsonl")
		if _, err := uuid.Parse(stem); err == nil {
			meta.ID = stem
		}
	}
	if meta.ID == "" {
		failures = append(failures, models.LoadFailure{
			Path:   path,
			Reason: "no session id found",
			At:     time.Now(),
		})
		return nil, failures, nil
	}

	meta.ShortID = models.ShortID(meta.ID)
	meta.Project = projectName(meta.CWD, path)
	return meta, failures, nil
}

// SessionMessages streams the full conversation for one session. It is
// only called for an explicit on-demand request targeting that session;
// metadata scans never load message bodies.
func SessionMessages(path string) ([]models.Message, []models.LoadFailure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), maxLineBytes)

	var messages []models.Message
	var failures []models.LoadFailure
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(string(scanner.Bytes()))
		if line == "" {
			continue
		}
		if !gjson.Valid(line) {
			failures = append(failures, models.LoadFailure{
				Path:   path,
				Line:   lineNo,
				Reason: "malformed record",
				At:     time.Now(),
			})
			continue
		}

		rec := gjson.Parse(line)
		role := rec.Get("type").Str
		if role != "user" && role != "assistant" {
			continue
		}

		text := messageText(rec.Get("message.content"))
		if text == "" {
			continue
		}

		msg := models.Message{
			Role:  role,
			Text:  text,
			Model: rec.Get("message.model").Str,
			Index: len(messages),
		}
		if ts, err := time.Parse(time.RFC3339, rec.Get("timestamp").Str); err == nil {
			msg.Timestamp = ts
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return messages, failures, fmt.Errorf("failed to scan session file: %w", err)
	}

	return messages, failures, nil
}

// messageText flattens a message content field: either a plain string
// or an array of typed parts, of which only text parts survive.
func messageText(content gjson.Result) string {
	switch content.Type {
	case gjson.String:
		return strings.TrimSpace(content.Str)
	case gjson.JSON:
		if !content.IsArray() {
			return ""
		}
		var parts []string
		content.ForEach(func(_, part gjson.Result) bool {
			if part.Get("type").Str == "text" {
				if t := strings.TrimSpace(part.Get("text").Str); t != "" {
					parts = append(parts, t)
				}
			}
			return true
		})
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

// cleanSummary derives the stored preview from a user message: system
// tags stripped, whitespace collapsed, truncated to summaryMaxLen.
func cleanSummary(s string) string {
	s = xmlTagRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) <= summaryMaxLen {
		return s
	}
	return string(runes[:summaryMaxLen-2]) + ".."
}

func projectName(cwd, path string) string {
	if cwd != "" {
		if base := filepath.Base(cwd); base != "" && base != "." && base != string(filepath.Separator) {
			return base
		}
	}
	// Fall back to the project slug directory under projects/.
	return filepath.Base(filepath.Dir(path))
}
