// Package store holds the current committed view of everything the
// indexer derives: per-entity metadata, aggregate stats, effective
// settings, and the load report. Reads never block behind a write to
// an unrelated entity.
package store

import (
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pders01/cclens/internal/models"
	"github.com/pders01/cclens/internal/settings"
)

const shardCount = 16

// entry pairs an entity value with the sequence number of the job that
// produced it. A nil meta is a tombstone left by removal so a stale
// in-flight job cannot resurrect a deleted entity.
type entry struct {
	meta models.Entity
	seq  uint64
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// Store is safe for concurrent multi-reader, multi-writer use. Entity
// operations contend only on the shard owning the entity id; stats,
// settings, and the report share one read-biased lock because they are
// read far more often than written.
type Store struct {
	shards [shardCount]shard

	topMu    sync.RWMutex
	stats    models.AggregateStats
	settings settings.EffectiveSettings
	report   models.LoadReport

	version atomic.Uint64
	seq     atomic.Uint64

	subMu   sync.Mutex
	subs    map[int]chan uint64
	nextSub int
}

// New returns an empty store.
func New() *Store {
	s := &Store{subs: make(map[int]chan uint64)}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]entry)
	}
	return s
}

// NextSeq issues a monotonically increasing sequence number. The
// reconciler stamps every job with one at creation so results landing
// out of order still resolve newest-wins.
func (s *Store) NextSeq() uint64 {
	return s.seq.Add(1)
}

func (s *Store) shardFor(id string) *shard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.shards[h.Sum32()%shardCount]
}

// UpsertEntity atomically replaces one entity's metadata. The update
// applies only when seq is at least as new as what the store holds,
// so a slow job finishing after a later cycle cannot overwrite it.
// Reports whether the update was applied.
func (s *Store) UpsertEntity(id string, meta models.Entity, seq uint64) bool {
	sh := s.shardFor(id)

	sh.mu.Lock()
	cur, ok := sh.entries[id]
	if ok && seq < cur.seq {
		sh.mu.Unlock()
		return false
	}
	sh.entries[id] = entry{meta: meta, seq: seq}
	sh.mu.Unlock()

	s.bump()
	return true
}

// RemoveEntity drops an entity whose source path is confirmed gone. A
// tombstone keeps the sequence number so stale upserts stay rejected.
func (s *Store) RemoveEntity(id string, seq uint64) bool {
	sh := s.shardFor(id)

	sh.mu.Lock()
	cur, ok := sh.entries[id]
	if ok && seq < cur.seq {
		sh.mu.Unlock()
		return false
	}
	existed := ok && cur.meta != nil
	sh.entries[id] = entry{meta: nil, seq: seq}
	sh.mu.Unlock()

	if existed {
		s.bump()
	}
	return true
}

// GetEntity returns the live metadata for one id.
func (s *Store) GetEntity(id string) (models.Entity, bool) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	e, ok := sh.entries[id]
	if !ok || e.meta == nil {
		return nil, false
	}
	return e.meta, true
}

// ReplaceStats swaps the aggregate stats wholesale.
func (s *Store) ReplaceStats(stats models.AggregateStats) {
	s.topMu.Lock()
	s.stats = stats
	s.topMu.Unlock()
	s.bump()
}

// ReplaceSettings swaps the effective settings wholesale.
func (s *Store) ReplaceSettings(eff settings.EffectiveSettings) {
	s.topMu.Lock()
	s.settings = eff
	s.topMu.Unlock()
	s.bump()
}

// ReplaceReport publishes the load report for a reconciliation pass.
func (s *Store) ReplaceReport(report models.LoadReport) {
	s.topMu.Lock()
	s.report = report
	s.topMu.Unlock()
	s.bump()
}

// Version returns the current logical version. It increases on every
// committed mutation.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// Snapshot is an immutable consistent view handed to readers. Entity
// values are replace-whole on write, so no snapshot ever carries a
// half-updated entity.
type Snapshot struct {
	Version  uint64
	Stats    models.AggregateStats
	Settings settings.EffectiveSettings
	Report   models.LoadReport
	Entities []models.Entity
}

// ReadSnapshot collects the current view without blocking producers:
// each shard is read-locked briefly in turn.
func (s *Store) ReadSnapshot() Snapshot {
	s.topMu.RLock()
	snap := Snapshot{
		Stats:    s.stats,
		Settings: s.settings,
		Report:   s.report,
	}
	s.topMu.RUnlock()

	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for _, e := range sh.entries {
			if e.meta != nil {
				snap.Entities = append(snap.Entities, e.meta)
			}
		}
		sh.mu.RUnlock()
	}

	sort.Slice(snap.Entities, func(i, j int) bool {
		return snap.Entities[i].EntityID() < snap.Entities[j].EntityID()
	})

	snap.Version = s.version.Load()
	return snap
}

// Sessions filters a snapshot down to session metadata, newest first.
func (v Snapshot) Sessions() []*models.SessionMeta {
	var out []*models.SessionMeta
	for _, e := range v.Entities {
		if sm, ok := e.(*models.SessionMeta); ok {
			out = append(out, sm)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Descriptors filters a snapshot down to descriptors of one kind,
// sorted by name.
func (v Snapshot) Descriptors(kind models.Kind) []*models.DescriptorMeta {
	var out []*models.DescriptorMeta
	for _, e := range v.Entities {
		if dm, ok := e.(*models.DescriptorMeta); ok && dm.Kind_ == kind {
			out = append(out, dm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Subscribe registers for version-change notifications. The channel
// holds at most one pending version; rapid updates coalesce into the
// newest. Cancel with Unsubscribe.
func (s *Store) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
	return ch, cancel
}

// bump advances the version and notifies subscribers without blocking
// on a slow consumer.
func (s *Store) bump() {
	v := s.version.Add(1)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}
