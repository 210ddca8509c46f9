package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ClaudeDir returns the root of the monitored configuration tree.
// Resolution order: CCLENS_CLAUDE_DIR, config file, ~/.claude.
func ClaudeDir() string {
	if dir := viper.GetString("claude_dir"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".claude"
	}
	return filepath.Join(home, ".claude")
}

// ProjectDir returns the optional project-scoped root whose
// .claude/settings.json contributes the project settings layer.
// Empty means no project layer.
func ProjectDir() string {
	return viper.GetString("project_dir")
}

// DebounceWindow returns the reconciler debounce window.
func DebounceWindow() time.Duration {
	ms := viper.GetInt("watch.debounce_ms")
	if ms <= 0 {
		ms = 300
	}
	return time.Duration(ms) * time.Millisecond
}

// Workers returns the parse worker pool size.
func Workers() int {
	n := viper.GetInt("watch.workers")
	if n <= 0 {
		n = 4
	}
	return n
}

// CachePath returns the location of the durable fingerprint cache.
func CachePath() string {
	if p := viper.GetString("cache.path"); p != "" {
		return p
	}
	return filepath.Join(ClaudeDir(), "index-cache.jsonl")
}

// CacheEnabled reports whether the fingerprint cache is in use.
func CacheEnabled() bool {
	return viper.GetBool("cache.enabled")
}

// GetEmbeddingsEnabled reports whether semantic search is enabled.
func GetEmbeddingsEnabled() bool {
	return viper.GetBool("embeddings.enabled")
}

// GetEmbeddingModel returns the Ollama embedding model name.
func GetEmbeddingModel() string {
	return viper.GetString("embeddings.model")
}

// GetOllamaURL returns the Ollama API endpoint.
func GetOllamaURL() string {
	return viper.GetString("embeddings.ollama_url")
}

// GetKeywordWeight returns the keyword component weight for hybrid search.
func GetKeywordWeight() float64 {
	return viper.GetFloat64("search.keyword_weight")
}

// GetSemanticWeight returns the semantic component weight for hybrid search.
func GetSemanticWeight() float64 {
	return viper.GetFloat64("search.semantic_weight")
}

// VectorsDir returns the directory for persisted summary embeddings.
func VectorsDir() string {
	return filepath.Join(ClaudeDir(), "vectors")
}
