package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pders01/cclens/internal/logging"
	"github.com/pders01/cclens/internal/models"
	"github.com/pders01/cclens/internal/parse"
	"github.com/pders01/cclens/internal/settings"
)

const (
	wholeFileRetries = 2
	wholeFileBackoff = 50 * time.Millisecond
)

// job is one (parser, path) unit of work. seq is issued at resolve
// time so a job finishing late cannot overwrite a newer cycle's result.
type job struct {
	path string
	kind models.Kind
	seq  uint64
}

// plan is the minimal set of re-derives for one batch. Stats and
// settings are whole-value replaces, not entity jobs.
type plan struct {
	entities     []job
	reloadStats  bool
	reloadConfig bool
}

// resolve deduplicates a batch and classifies each path into the
// minimal job set.
func (r *Reconciler) resolve(batch map[string]struct{}) plan {
	var p plan
	for path := range batch {
		if psp := r.projectSettingsPath(); psp != "" && path == psp {
			p.reloadConfig = true
			continue
		}
		switch kind := parse.Classify(r.opts.Root, path); kind {
		case models.KindSettings:
			p.reloadConfig = true
		case models.KindStats:
			p.reloadStats = true
		case models.KindSession, models.KindAgent, models.KindCommand, models.KindSkill:
			p.entities = append(p.entities, job{path: path, kind: kind, seq: r.store.NextSeq()})
		default:
			// A directory event: fan out to the indexed sources under
			// it, so a whole-tree removal still lands as per-entity
			// removals.
			prefix := path + string(filepath.Separator)
			r.pathIDs.Range(func(k, _ any) bool {
				src := k.(string)
				if strings.HasPrefix(src, prefix) {
					p.entities = append(p.entities, job{
						path: src,
						kind: parse.Classify(r.opts.Root, src),
						seq:  r.store.NextSeq(),
					})
				}
				return true
			})
		}
	}
	return p
}

// apply runs the plan's jobs across the worker pool, pushes results
// into the store, and publishes the pass's load report. No failure
// aborts the pass.
func (r *Reconciler) apply(ctx context.Context, p plan) {
	var failMu sync.Mutex
	var failures []models.LoadFailure
	record := func(fs ...models.LoadFailure) {
		if len(fs) == 0 {
			return
		}
		failMu.Lock()
		failures = append(failures, fs...)
		failMu.Unlock()
	}

	g := new(errgroup.Group)
	g.SetLimit(r.opts.Workers)
	for _, jb := range p.entities {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			r.processEntity(jb, record)
			return nil
		})
	}
	g.Wait()

	if p.reloadStats {
		r.applyStats(record)
	}
	if p.reloadConfig {
		r.applySettings(record)
	}

	r.store.ReplaceReport(models.LoadReport{GeneratedAt: time.Now(), Failures: failures})
	if len(failures) > 0 {
		logging.Warn("reconcile pass degraded", "failures", len(failures))
	}
}

// processEntity re-derives one entity from its source file, consulting
// the fingerprint cache first. A file that fails to parse keeps its
// last-known-good metadata in the store; only a confirmed-gone path
// removes it.
func (r *Reconciler) processEntity(jb job, record func(...models.LoadFailure)) {
	info, err := os.Stat(jb.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.removePath(jb)
			return
		}
		record(models.LoadFailure{Path: jb.path, Reason: err.Error(), At: time.Now()})
		return
	}
	if info.IsDir() {
		return
	}

	size, mtime := info.Size(), info.ModTime().UnixNano()
	if r.opts.Cache != nil {
		if kind, raw, ok := r.opts.Cache.Get(jb.path, size, mtime); ok && kind == jb.kind {
			if ent := decodeEntity(kind, raw); ent != nil {
				r.commit(jb, ent)
				return
			}
		}
	}

	switch jb.kind {
	case models.KindSession:
		meta, fails, err := parse.ParseSession(jb.path, info, r.prevSession(jb.path))
		record(fails...)
		if err != nil {
			record(models.LoadFailure{Path: jb.path, Reason: err.Error(), At: time.Now()})
			return
		}
		if meta == nil {
			return
		}
		r.commit(jb, meta)
		r.cachePut(jb, size, mtime, meta)

	case models.KindAgent, models.KindCommand, models.KindSkill:
		var meta *models.DescriptorMeta
		err := retryWholeFile(func() error {
			var perr error
			meta, perr = parse.ParseDescriptor(jb.path, jb.kind)
			return perr
		})
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				r.removePath(jb)
				return
			}
			record(models.LoadFailure{Path: jb.path, Reason: err.Error(), At: time.Now()})
			return
		}
		r.commit(jb, meta)
		r.cachePut(jb, size, mtime, meta)
	}
}

func (r *Reconciler) commit(jb job, ent models.Entity) {
	if r.store.UpsertEntity(ent.EntityID(), ent, jb.seq) {
		r.pathIDs.Store(jb.path, ent.EntityID())
	}
}

func (r *Reconciler) cachePut(jb job, size, mtime int64, ent models.Entity) {
	if r.opts.Cache == nil {
		return
	}
	raw, err := json.Marshal(ent)
	if err != nil {
		return
	}
	r.opts.Cache.Put(jb.path, size, mtime, jb.kind, raw)
}

// removePath drops the entity for a source path confirmed gone. Not
// recorded as an error.
func (r *Reconciler) removePath(jb job) {
	id := r.entityIDFor(jb.path, jb.kind)
	if id != "" {
		r.store.RemoveEntity(id, jb.seq)
	}
	r.pathIDs.Delete(jb.path)
	if r.opts.Cache != nil {
		r.opts.Cache.Remove(jb.path)
	}
}

// entityIDFor recovers the entity id for a path, preferring the id the
// path actually produced and falling back to filename-derived ids.
func (r *Reconciler) entityIDFor(path string, kind models.Kind) string {
	if v, ok := r.pathIDs.Load(path); ok {
		return v.(string)
	}
	base := filepath.Base(path)
	switch kind {
	case models.KindSession:
		return strings.TrimSuffix(base, ".jsonl")
	case models.KindAgent, models.KindCommand:
		return string(kind) + ":" + strings.TrimSuffix(base, ".md")
	case models.KindSkill:
		return string(kind) + ":" + filepath.Base(filepath.Dir(path))
	default:
		return ""
	}
}

// prevSession returns the session metadata currently in the store for
// a path, enabling incremental resume on append-only growth.
func (r *Reconciler) prevSession(path string) *models.SessionMeta {
	v, ok := r.pathIDs.Load(path)
	if !ok {
		return nil
	}
	ent, ok := r.store.GetEntity(v.(string))
	if !ok {
		return nil
	}
	sm, _ := ent.(*models.SessionMeta)
	return sm
}

// applyStats reloads the aggregate stats file whole. On failure the
// prior value is retained and the failure recorded; a missing file is
// neither.
func (r *Reconciler) applyStats(record func(...models.LoadFailure)) {
	path := filepath.Join(r.opts.Root, "stats.json")

	var stats *models.AggregateStats
	err := retryWholeFile(func() error {
		var perr error
		stats, perr = parse.ParseStats(path)
		return perr
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		record(models.LoadFailure{Path: path, Reason: err.Error(), At: time.Now()})
		return
	}
	r.store.ReplaceStats(*stats)
}

// applySettings rebuilds the effective settings from the cascade,
// lowest precedence first: defaults, global, project, local. A layer
// that fails to load contributes its last good value instead.
func (r *Reconciler) applySettings(record func(...models.LoadFailure)) {
	layers := []settings.Layer{settings.Defaults()}

	sources := []struct {
		name string
		path string
	}{
		{"global", filepath.Join(r.opts.Root, "settings.json")},
	}
	if psp := r.projectSettingsPath(); psp != "" {
		sources = append(sources, struct {
			name string
			path string
		}{"project", psp})
	}
	sources = append(sources, struct {
		name string
		path string
	}{"local", filepath.Join(r.opts.Root, "settings.local.json")})

	r.layerMu.Lock()
	defer r.layerMu.Unlock()

	for _, src := range sources {
		layer, err := settings.LoadLayer(src.name, src.path)
		if err != nil {
			record(models.LoadFailure{Path: src.path, Reason: err.Error(), At: time.Now()})
			if prev, ok := r.lastLayers[src.name]; ok {
				layers = append(layers, prev)
			}
			continue
		}
		r.lastLayers[src.name] = layer
		layers = append(layers, layer)
	}

	r.store.ReplaceSettings(settings.Resolve(layers))
}

// retryWholeFile applies the bounded retry policy for whole-file
// sources: transient read errors get up to two more attempts with a
// short backoff; malformed content and missing files never retry.
func retryWholeFile(fn func() error) error {
	var err error
	for attempt := 0; attempt <= wholeFileRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(wholeFileBackoff)
		}
		err = fn()
		if err == nil || errors.Is(err, parse.ErrMalformed) || errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return err
}

func decodeEntity(kind models.Kind, raw json.RawMessage) models.Entity {
	switch kind {
	case models.KindSession:
		var sm models.SessionMeta
		if err := json.Unmarshal(raw, &sm); err != nil || sm.ID == "" {
			return nil
		}
		return &sm
	case models.KindAgent, models.KindCommand, models.KindSkill:
		var dm models.DescriptorMeta
		if err := json.Unmarshal(raw, &dm); err != nil || dm.Name == "" {
			return nil
		}
		return &dm
	default:
		return nil
	}
}
