package embeddings

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestWriteReadVector(t *testing.T) {
	dir := t.TempDir()
	path := VectorPath(filepath.Join(dir, "vectors"), "abc-123")

	vec := []float64{0.1, -0.5, 2.25, 0}
	if err := WriteVector(path, vec); err != nil {
		t.Fatalf("WriteVector failed: %v", err)
	}

	got, err := ReadVector(path)
	if err != nil {
		t.Fatalf("ReadVector failed: %v", err)
	}
	if !reflect.DeepEqual(got, vec) {
		t.Errorf("round trip = %v, want %v", got, vec)
	}
}

func TestWriteVectorEmpty(t *testing.T) {
	if err := WriteVector(filepath.Join(t.TempDir(), "v.vec"), nil); err == nil {
		t.Error("empty vector should not write")
	}
}

func TestReadVectorInvalidSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.vec")
	if err := os.WriteFile(path, []byte("xyz"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadVector(path); err == nil {
		t.Error("truncated vector file should not read")
	}
}

func TestReadVectorMissing(t *testing.T) {
	if _, err := ReadVector(filepath.Join(t.TempDir(), "none.vec")); err == nil {
		t.Error("missing file should error")
	}
}
