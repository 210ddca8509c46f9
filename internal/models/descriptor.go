package models

import "time"

// DescriptorMeta summarizes one frontmatter descriptor file (an agent,
// command, or skill definition). The free-text body is reduced to a
// short preview; the full body is read lazily when requested by id.
type DescriptorMeta struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Model       string    `json:"model,omitempty"`
	Tools       []string  `json:"tools,omitempty"`
	Kind_       Kind      `json:"kind"`
	Path        string    `json:"path"`
	Preview     string    `json:"preview,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (d *DescriptorMeta) EntityID() string   { return string(d.Kind_) + ":" + d.Name }
func (d *DescriptorMeta) EntityKind() Kind   { return d.Kind_ }
func (d *DescriptorMeta) SourcePath() string { return d.Path }
