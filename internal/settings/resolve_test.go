package settings

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestResolvePrecedence(t *testing.T) {
	layers := []Layer{
		{Name: "global", Tree: map[string]any{"a": 1, "b": 2}},
		{Name: "project", Tree: map[string]any{"b": 3}},
		{Name: "local", Tree: map[string]any{"a": 9}},
	}

	got := Resolve(layers)
	want := EffectiveSettings{"a": 9, "b": 3}

	if !reflect.DeepEqual(map[string]any(got), map[string]any(want)) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolveDeepMerge(t *testing.T) {
	layers := []Layer{
		{Name: "global", Tree: map[string]any{
			"permissions": map[string]any{
				"allow": []any{"Read", "Write"},
				"deny":  []any{"Bash"},
			},
			"theme": "light",
		}},
		{Name: "local", Tree: map[string]any{
			"permissions": map[string]any{
				"allow": []any{"Read"},
			},
		}},
	}

	got := Resolve(layers)

	perms, ok := got["permissions"].(map[string]any)
	if !ok {
		t.Fatalf("expected permissions map, got %T", got["permissions"])
	}
	// arrays replace wholesale
	if !reflect.DeepEqual(perms["allow"], []any{"Read"}) {
		t.Errorf("allow = %v, want [Read]", perms["allow"])
	}
	// keys unique to the lower layer survive
	if !reflect.DeepEqual(perms["deny"], []any{"Bash"}) {
		t.Errorf("deny = %v, want [Bash]", perms["deny"])
	}
	if got["theme"] != "light" {
		t.Errorf("theme = %v, want light", got["theme"])
	}
}

func TestResolveTypeConflict(t *testing.T) {
	layers := []Layer{
		{Name: "global", Tree: map[string]any{"env": []any{"A", "B"}}},
		{Name: "local", Tree: map[string]any{"env": "single"}},
	}

	got := Resolve(layers)
	if got["env"] != "single" {
		t.Errorf("env = %v, want higher-precedence scalar to win", got["env"])
	}

	// And the reverse direction: map over scalar.
	layers = []Layer{
		{Name: "global", Tree: map[string]any{"env": "single"}},
		{Name: "local", Tree: map[string]any{"env": map[string]any{"k": "v"}}},
	}
	got = Resolve(layers)
	if _, ok := got["env"].(map[string]any); !ok {
		t.Errorf("env = %v, want higher-precedence map to win", got["env"])
	}
}

func TestResolveIdempotent(t *testing.T) {
	layers := []Layer{
		{Name: "global", Tree: map[string]any{"a": 1, "nested": map[string]any{"x": true}}},
		{Name: "local", Tree: map[string]any{"nested": map[string]any{"y": false}}},
	}

	once := Resolve(layers)
	twice := Resolve(append([]Layer{{Name: "merged", Tree: once}}, layers...))

	if !reflect.DeepEqual(map[string]any(once), map[string]any(twice)) {
		t.Errorf("merge not idempotent: %v vs %v", once, twice)
	}
}

func TestResolveMissingLayers(t *testing.T) {
	got := Resolve([]Layer{
		{Name: "global", Tree: map[string]any{"a": 1}},
		{Name: "project", Tree: map[string]any{}},
		{Name: "local", Tree: nil},
	})
	if got["a"] != 1 {
		t.Errorf("a = %v, want 1", got["a"])
	}
}

func TestResolvePure(t *testing.T) {
	layers := []Layer{
		{Name: "global", Tree: map[string]any{"nested": map[string]any{"x": 1}}},
		{Name: "local", Tree: map[string]any{"nested": map[string]any{"y": 2}}},
	}

	first := Resolve(layers)
	second := Resolve(layers)

	if !reflect.DeepEqual(map[string]any(first), map[string]any(second)) {
		t.Errorf("identical input produced different output")
	}

	// Mutating the result must not leak into the input layers.
	first["nested"].(map[string]any)["x"] = 99
	if layers[0].Tree["nested"].(map[string]any)["x"] != 1 {
		t.Errorf("Resolve shares state with its input")
	}

	// A subtree present in only one layer must not be aliased either.
	single := []Layer{
		{Name: "global", Tree: map[string]any{"only": map[string]any{"x": 1}}},
		{Name: "local", Tree: map[string]any{"other": true}},
	}
	out := Resolve(single)
	out["only"].(map[string]any)["x"] = 99
	if single[0].Tree["only"].(map[string]any)["x"] != 1 {
		t.Errorf("single-sided subtree aliased into the result")
	}
}

func TestLoadLayer(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(path, []byte(`{"theme":"dark"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	layer, err := LoadLayer("global", path)
	if err != nil {
		t.Fatalf("LoadLayer failed: %v", err)
	}
	if layer.Tree["theme"] != "dark" {
		t.Errorf("theme = %v, want dark", layer.Tree["theme"])
	}

	// Missing file is an empty layer, not an error.
	layer, err = LoadLayer("local", filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("missing layer should not error: %v", err)
	}
	if len(layer.Tree) != 0 {
		t.Errorf("missing layer should be empty, got %v", layer.Tree)
	}

	// Malformed file is an error so the caller can keep the prior value.
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{not json`), 0o644)
	if _, err := LoadLayer("global", bad); err == nil {
		t.Error("malformed layer should error")
	}
}
