// Package reconcile bridges filesystem events to the store. Bursts of
// changes coalesce behind a debounce window, each changed path maps to
// the minimal re-derive job, and results land in the store through its
// narrow upsert/remove operations.
package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pders01/cclens/internal/fingerprint"
	"github.com/pders01/cclens/internal/logging"
	"github.com/pders01/cclens/internal/models"
	"github.com/pders01/cclens/internal/parse"
	"github.com/pders01/cclens/internal/settings"
	"github.com/pders01/cclens/internal/store"
)

// State is the reconciler's position in the debounce cycle.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateResolving
	StateApplying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateResolving:
		return "resolving"
	case StateApplying:
		return "applying"
	default:
		return "unknown"
	}
}

// Options configures a Reconciler.
type Options struct {
	// Root is the monitored configuration tree.
	Root string
	// ProjectDir optionally contributes <ProjectDir>/.claude/settings.json
	// as the project settings layer.
	ProjectDir string
	// Debounce is the quiet window after the last event before a cycle
	// begins.
	Debounce time.Duration
	// Workers bounds the parse worker pool.
	Workers int
	// Cache is the durable fingerprint cache; nil disables caching.
	Cache *fingerprint.Cache
}

// Reconciler drives targeted reloads of the store from filesystem
// change events.
type Reconciler struct {
	opts  Options
	store *store.Store

	mu      sync.Mutex
	state   State
	pending map[string]struct{}
	timer   *time.Timer

	reloadCh chan struct{}

	// pathIDs maps a source path to the entity id it produced, so a
	// deletion event can be routed to the right removal.
	pathIDs sync.Map

	// lastLayers retains the most recent good parse of each settings
	// layer, per the stale-but-present policy.
	layerMu    sync.Mutex
	lastLayers map[string]settings.Layer
}

// New returns a reconciler feeding st.
func New(st *store.Store, opts Options) *Reconciler {
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	r := &Reconciler{
		opts:       opts,
		store:      st,
		state:      StateIdle,
		pending:    make(map[string]struct{}),
		reloadCh:   make(chan struct{}, 1),
		lastLayers: make(map[string]settings.Layer),
	}
	r.timer = time.NewTimer(time.Hour)
	if !r.timer.Stop() {
		<-r.timer.C
	}
	return r
}

// State returns the current cycle state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Reload queues a full re-scan, e.g. from a manual refresh trigger.
// Multiple pending requests collapse into one.
func (r *Reconciler) Reload() {
	select {
	case r.reloadCh <- struct{}{}:
	default:
	}
}

// Run watches the tree until ctx is done. The initial full scan honors
// ctx cancellation; cache writes stay per-entry atomic throughout, so
// aborting never corrupts the durable cache.
func (r *Reconciler) Run(ctx context.Context) error {
	if err := r.Scan(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	r.addWatchDirs(watcher)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			r.observeEvent(watcher, ev)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("watch error", "err", err)

		case <-r.timer.C:
			r.runCycle(ctx)

		case <-r.reloadCh:
			if err := r.Scan(ctx); err != nil {
				logging.Warn("reload failed", "err", err)
			}
		}
	}
}

// observeEvent filters one raw fsnotify event into the pending batch
// and advances Idle to Collecting. Events arriving mid-window reset
// the timer; events during Resolving/Applying stay queued and start a
// fresh cycle afterwards, so nothing is silently lost.
func (r *Reconciler) observeEvent(watcher *fsnotify.Watcher, ev fsnotify.Event) {
	path := ev.Name

	// A new directory (project, skill) joins the watch set.
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			_ = watcher.Add(path)
			return
		}
	}

	if !r.interesting(path) {
		// A removed or renamed directory arrives as one event for the
		// directory path; it still owns the entities indexed under it.
		if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 || !r.hasIndexedUnder(path) {
			return
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending[path] = struct{}{}
	switch r.state {
	case StateIdle:
		r.state = StateCollecting
		r.resetTimerLocked()
	case StateCollecting:
		r.resetTimerLocked()
	}
}

func (r *Reconciler) resetTimerLocked() {
	if !r.timer.Stop() {
		select {
		case <-r.timer.C:
		default:
		}
	}
	r.timer.Reset(r.opts.Debounce)
}

// interesting reports whether a path maps to any store entry.
func (r *Reconciler) interesting(path string) bool {
	if r.projectSettingsPath() != "" && path == r.projectSettingsPath() {
		return true
	}
	return parse.Classify(r.opts.Root, path) != models.KindUnknown
}

// hasIndexedUnder reports whether any indexed entity's source path
// lies under dir.
func (r *Reconciler) hasIndexedUnder(dir string) bool {
	prefix := dir + string(filepath.Separator)
	found := false
	r.pathIDs.Range(func(k, _ any) bool {
		if strings.HasPrefix(k.(string), prefix) {
			found = true
			return false
		}
		return true
	})
	return found
}

func (r *Reconciler) projectSettingsPath() string {
	if r.opts.ProjectDir == "" {
		return ""
	}
	return filepath.Join(r.opts.ProjectDir, ".claude", "settings.json")
}

// runCycle executes Resolving and Applying for the collected batch,
// then returns to Idle, or straight back to Collecting when events
// arrived while applying.
func (r *Reconciler) runCycle(ctx context.Context) {
	r.mu.Lock()
	if len(r.pending) == 0 {
		r.state = StateIdle
		r.mu.Unlock()
		return
	}
	batch := r.pending
	r.pending = make(map[string]struct{})
	r.state = StateResolving
	r.mu.Unlock()

	plan := r.resolve(batch)

	r.mu.Lock()
	r.state = StateApplying
	r.mu.Unlock()

	r.apply(ctx, plan)

	r.mu.Lock()
	if len(r.pending) > 0 {
		r.state = StateCollecting
		r.resetTimerLocked()
	} else {
		r.state = StateIdle
	}
	r.mu.Unlock()
}

// addWatchDirs registers the root and its known subtrees. Individual
// failures are skipped; a directory that appears later is added from
// its create event.
func (r *Reconciler) addWatchDirs(watcher *fsnotify.Watcher) {
	dirs := []string{
		r.opts.Root,
		filepath.Join(r.opts.Root, "projects"),
		filepath.Join(r.opts.Root, "agents"),
		filepath.Join(r.opts.Root, "commands"),
		filepath.Join(r.opts.Root, "skills"),
	}
	for _, parent := range []string{
		filepath.Join(r.opts.Root, "projects"),
		filepath.Join(r.opts.Root, "skills"),
	} {
		entries, err := os.ReadDir(parent)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				dirs = append(dirs, filepath.Join(parent, e.Name()))
			}
		}
	}
	if r.opts.ProjectDir != "" {
		dirs = append(dirs, filepath.Join(r.opts.ProjectDir, ".claude"))
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			logging.Debug("skip watch dir", "dir", dir, "err", err)
		}
	}
}
