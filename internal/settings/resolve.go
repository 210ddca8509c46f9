// Package settings merges the cascading settings layers of the
// monitored tree (local > project > global > built-in defaults) into
// one effective view.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
)

// Layer is one named configuration layer. Layers are ordered lowest
// precedence first when passed to Resolve.
type Layer struct {
	Name string
	Tree map[string]any
}

// EffectiveSettings is the deep-merged view across all layers.
type EffectiveSettings map[string]any

// ArrayPolicy controls how array-valued keys combine across layers.
// Only override is implemented; the constant exists so the policy is
// an explicit decision point rather than an accident of the merge.
type ArrayPolicy int

const (
	// ArrayOverride replaces the whole array with the higher-precedence
	// layer's value.
	ArrayOverride ArrayPolicy = iota
)

// Defaults is the built-in lowest-precedence layer.
func Defaults() Layer {
	return Layer{
		Name: "defaults",
		Tree: map[string]any{
			"cleanupPeriodDays":   float64(30),
			"includeCoAuthoredBy": true,
		},
	}
}

// Resolve deep-merges layers, lowest precedence first. For map nodes
// present on both sides keys merge recursively; for every other node,
// including arrays and type conflicts, the later (higher-precedence)
// layer wins outright. Resolve is pure: identical ordered input yields
// identical output.
func Resolve(layers []Layer) EffectiveSettings {
	out := make(map[string]any)
	for _, layer := range layers {
		out = mergeMaps(out, layer.Tree)
	}
	return out
}

func mergeMaps(base, over map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		merged[k] = copyNode(v)
	}
	for k, v := range over {
		if bm, ok := merged[k].(map[string]any); ok {
			if om, ok := v.(map[string]any); ok {
				merged[k] = mergeMaps(bm, om)
				continue
			}
		}
		merged[k] = copyNode(v)
	}
	return merged
}

// copyNode deep-copies map nodes: the merged tree never aliases a
// layer's subtrees, so mutating an effective view cannot reach back
// into a retained layer.
func copyNode(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(m))
	for k, mv := range m {
		out[k] = copyNode(mv)
	}
	return out
}

// LoadLayer reads one JSON settings file into a layer. A missing file
// is an empty layer, not an error; a malformed file is an error so the
// caller can record it and keep the prior value.
func LoadLayer(name, path string) (Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Layer{Name: name, Tree: map[string]any{}}, nil
		}
		return Layer{}, fmt.Errorf("failed to read %s settings: %w", name, err)
	}

	tree := make(map[string]any)
	if err := json.Unmarshal(data, &tree); err != nil {
		return Layer{}, fmt.Errorf("failed to parse %s settings: %w", name, err)
	}
	return Layer{Name: name, Tree: tree}, nil
}
