package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alpkeskin/gotoon"

	"github.com/pders01/cclens/internal/config"
	"github.com/pders01/cclens/internal/fingerprint"
	"github.com/pders01/cclens/internal/reconcile"
	"github.com/pders01/cclens/internal/store"
)

// buildIndex scans the monitored tree once and returns the populated
// store. The fingerprint cache makes repeat invocations cheap; it is
// flushed before returning.
func buildIndex(ctx context.Context) (*store.Store, error) {
	st := store.New()

	var cache *fingerprint.Cache
	if config.CacheEnabled() {
		cache = fingerprint.Open(config.CachePath())
	}

	rec := reconcile.New(st, reconcile.Options{
		Root:       config.ClaudeDir(),
		ProjectDir: config.ProjectDir(),
		Debounce:   config.DebounceWindow(),
		Workers:    config.Workers(),
		Cache:      cache,
	})

	if err := rec.Scan(ctx); err != nil {
		if cache != nil {
			cache.Close()
		}
		return nil, fmt.Errorf("failed to scan %s: %w", config.ClaudeDir(), err)
	}
	if cache != nil {
		if err := cache.Close(); err != nil {
			fmt.Printf("Warning: failed to flush fingerprint cache: %v\n", err)
		}
	}
	return st, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printToon(v any) error {
	output, err := gotoon.Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode Toon: %w", err)
	}
	fmt.Println(output)
	return nil
}
