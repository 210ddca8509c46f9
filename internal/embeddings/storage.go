// Package embeddings persists and compares summary embedding vectors
// used by the hybrid search command. Vectors live outside the store:
// they are derived search artifacts, not entity metadata.
package embeddings

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// VectorPath returns the on-disk location for one entity's vector.
func VectorPath(dir, id string) string {
	return filepath.Join(dir, id+".vec")
}

// WriteVector persists a vector as a flat little-endian float64 array.
func WriteVector(path string, vec []float64) error {
	if len(vec) == 0 {
		return fmt.Errorf("embedding vector cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create vectors dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create vector file: %w", err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, vec); err != nil {
		return fmt.Errorf("failed to write vector: %w", err)
	}
	return nil
}

// ReadVector loads a vector written by WriteVector.
func ReadVector(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat vector file: %w", err)
	}
	size := stat.Size()
	if size == 0 || size%8 != 0 {
		return nil, fmt.Errorf("invalid vector file size: %d", size)
	}

	vec := make([]float64, size/8)
	if err := binary.Read(f, binary.LittleEndian, vec); err != nil {
		return nil, fmt.Errorf("failed to read vector: %w", err)
	}
	return vec, nil
}
