package reconcile

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/pders01/cclens/internal/models"
	"github.com/pders01/cclens/internal/parse"
)

// Scan performs a full reconciliation of the tree: every known source
// becomes a job, and entities whose sources are gone are removed. The
// walk is abortable through ctx; cache writes are per-entry atomic, so
// an aborted scan leaves the durable cache intact.
func (r *Reconciler) Scan(ctx context.Context) error {
	seen := make(map[string]struct{})
	var p plan
	p.reloadStats = true
	p.reloadConfig = true

	err := filepath.WalkDir(r.opts.Root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			if d.Name() == "vectors" {
				return filepath.SkipDir
			}
			return nil
		}

		switch kind := parse.Classify(r.opts.Root, path); kind {
		case models.KindSession, models.KindAgent, models.KindCommand, models.KindSkill:
			seen[path] = struct{}{}
			p.entities = append(p.entities, job{path: path, kind: kind, seq: r.store.NextSeq()})
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Sources indexed earlier (possibly in a previous run, via the
	// durable cache) that no longer exist on disk get removed.
	for _, ent := range r.store.ReadSnapshot().Entities {
		src := ent.SourcePath()
		if _, ok := seen[src]; ok {
			continue
		}
		kind := parse.Classify(r.opts.Root, src)
		if kind == models.KindUnknown {
			kind = ent.EntityKind()
		}
		p.entities = append(p.entities, job{path: src, kind: kind, seq: r.store.NextSeq()})
	}

	r.apply(ctx, p)
	return ctx.Err()
}
