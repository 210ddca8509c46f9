package parse

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pders01/cclens/internal/models"
)

const previewMaxLen = 160

// frontmatter is the YAML block at the head of a descriptor file.
// Tools appears either as a YAML list or a comma-separated string.
type frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Model       string `yaml:"model"`
	Tools       any    `yaml:"tools"`
}

// ParseDescriptor reads an agent/command/skill descriptor: YAML
// frontmatter plus a free-text body. Only a short body preview is
// kept; the full body loads lazily on request. A malformed file fails
// whole with a single error.
func ParseDescriptor(path string, kind models.Kind) (*models.DescriptorMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}

	fm, body, err := splitFrontmatter(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var head frontmatter
	if fm != "" {
		if err := yaml.Unmarshal([]byte(fm), &head); err != nil {
			return nil, fmt.Errorf("%w: failed to parse frontmatter: %v", ErrMalformed, err)
		}
	}

	name := head.Name
	if name == "" {
		name = descriptorName(path, kind)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat descriptor: %w", err)
	}

	return &models.DescriptorMeta{
		Name:        name,
		Description: head.Description,
		Model:       head.Model,
		Tools:       toolList(head.Tools),
		Kind_:       kind,
		Path:        path,
		Preview:     preview(body),
		UpdatedAt:   info.ModTime(),
	}, nil
}

// DescriptorBody returns the full free-text body of a descriptor,
// loaded on demand.
func DescriptorBody(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read descriptor: %w", err)
	}
	_, body, err := splitFrontmatter(string(data))
	if err != nil {
		return "", err
	}
	return body, nil
}

// splitFrontmatter separates an optional leading "---" YAML block from
// the body. A file without frontmatter is all body.
func splitFrontmatter(content string) (fm string, body string, err error) {
	trimmed := strings.TrimPrefix(content, "\uFEFF")
	if !strings.HasPrefix(trimmed, "---\n") && trimmed != "---" {
		return "", strings.TrimSpace(trimmed), nil
	}

	rest := strings.TrimPrefix(trimmed, "---\n")
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return "", "", fmt.Errorf("unterminated frontmatter block")
	}

	fm = rest[:idx]
	body = rest[idx+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")
	return fm, strings.TrimSpace(body), nil
}

func toolList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		var tools []string
		for _, part := range strings.Split(t, ",") {
			if p := strings.TrimSpace(part); p != "" {
				tools = append(tools, p)
			}
		}
		return tools
	case []any:
		var tools []string
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				tools = append(tools, strings.TrimSpace(s))
			}
		}
		return tools
	default:
		return nil
	}
}

func preview(body string) string {
	body = strings.Join(strings.Fields(body), " ")
	runes := []rune(body)
	if len(runes) <= previewMaxLen {
		return body
	}
	return string(runes[:previewMaxLen-2]) + ".."
}

func descriptorName(path string, kind models.Kind) string {
	base := strings.TrimSuffix(strings.TrimSuffix(stripDir(path), ".md"), ".MD")
	if kind == models.KindSkill && strings.EqualFold(base, "SKILL") {
		// skills/<name>/SKILL.md names the skill by its directory
		parts := strings.Split(strings.ReplaceAll(path, "\\", "/"), "/")
		if len(parts) >= 2 {
			return parts[len(parts)-2]
		}
	}
	return base
}

func stripDir(path string) string {
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		return path[i+1:]
	}
	return path
}
