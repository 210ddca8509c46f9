package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pders01/cclens/internal/config"
	"github.com/pders01/cclens/internal/fingerprint"
	"github.com/pders01/cclens/internal/logging"
	"github.com/pders01/cclens/internal/reconcile"
	"github.com/pders01/cclens/internal/store"
)

var (
	watchNoCache  bool
	watchLogLevel string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the tree and keep the index fresh",
	Long: `Scan the monitored tree, then watch it for changes until
interrupted. Bursts of filesystem events coalesce behind a debounce
window and only the affected entries are re-derived.

Examples:
  cclens watch
  cclens watch --log-level debug
  cclens watch --no-cache`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchNoCache, "no-cache", false, "Bypass the fingerprint cache")
	watchCmd.Flags().StringVar(&watchLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logging.Configure(watchLogLevel, os.Stderr)

	root := config.ClaudeDir()
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("monitored tree not found: %s", root)
	}

	st := store.New()

	var cache *fingerprint.Cache
	if config.CacheEnabled() && !watchNoCache {
		cache = fingerprint.Open(config.CachePath())
		defer func() {
			if err := cache.Close(); err != nil {
				logging.Warn("failed to flush fingerprint cache", "err", err)
			}
		}()
	}

	rec := reconcile.New(st, reconcile.Options{
		Root:       root,
		ProjectDir: config.ProjectDir(),
		Debounce:   config.DebounceWindow(),
		Workers:    config.Workers(),
		Cache:      cache,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	versions, cancel := st.Subscribe()
	defer cancel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-versions:
				snap := st.ReadSnapshot()
				logging.Info("index updated",
					"version", v,
					"entities", len(snap.Entities),
					"failures", len(snap.Report.Failures))
			}
		}
	}()

	logging.Info("watching", "root", root, "debounce", config.DebounceWindow())

	err := rec.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logging.Info("shutting down")
		return nil
	}
	return err
}
