// Package fingerprint implements the durable cross-run cache that maps
// (path, size, mtime) to previously derived metadata, so unchanged
// files are never re-parsed across process restarts.
package fingerprint

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/pders01/cclens/internal/fileutil"
	"github.com/pders01/cclens/internal/models"
)

// SchemaVersion is bumped whenever the record layout changes. A file
// written under a different version is discarded wholesale and rebuilt,
// never partially trusted.
const SchemaVersion = 1

type header struct {
	Schema int `json:"schema"`
}

type record struct {
	Path  string          `json:"path"`
	Size  int64           `json:"size"`
	MTime int64           `json:"mtime"`
	Kind  models.Kind     `json:"kind,omitempty"`
	Meta  json.RawMessage `json:"meta,omitempty"`
	Gone  bool            `json:"gone,omitempty"`
}

// Cache is the durable fingerprint cache. Safe for concurrent use;
// puts for different paths do not block each other beyond the brief
// map update and the serialized append.
type Cache struct {
	path string

	mu      sync.RWMutex
	entries map[string]record

	appendMu sync.Mutex
	f        *os.File
	appended int
}

// Open loads the cache at path. Open never fails hard: a missing,
// corrupt, or schema-mismatched file yields an empty cache that misses
// on every lookup and is rebuilt lazily.
func Open(path string) *Cache {
	c := &Cache{
		path:    path,
		entries: make(map[string]record),
	}
	c.load()
	c.f, _ = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	return c
}

func (c *Cache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !scanner.Scan() {
		return
	}
	var h header
	if err := json.Unmarshal(scanner.Bytes(), &h); err != nil || h.Schema != SchemaVersion {
		// Unknown layout: start over rather than trust it partially.
		os.Remove(c.path)
		return
	}

	// Replay records last-wins; damaged lines are skipped.
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil || rec.Path == "" {
			continue
		}
		if rec.Gone {
			delete(c.entries, rec.Path)
			continue
		}
		c.entries[rec.Path] = rec
	}
}

// Get returns the cached metadata for path if the stored (size, mtime)
// pair exactly matches the query. Any mismatch is a miss.
func (c *Cache) Get(path string, size int64, mtime int64) (models.Kind, json.RawMessage, bool) {
	c.mu.RLock()
	rec, ok := c.entries[path]
	c.mu.RUnlock()

	if !ok || rec.Size != size || rec.MTime != mtime {
		return "", nil, false
	}
	return rec.Kind, rec.Meta, true
}

// Put stores metadata for path under the given fingerprint. Concurrent
// puts to the same path resolve last-write-wins; each write is a
// complete record.
func (c *Cache) Put(path string, size int64, mtime int64, kind models.Kind, meta json.RawMessage) {
	rec := record{Path: path, Size: size, MTime: mtime, Kind: kind, Meta: meta}

	c.mu.Lock()
	c.entries[path] = rec
	c.mu.Unlock()

	c.appendRecord(rec)
}

// Remove drops the entry for a path that no longer exists on disk.
func (c *Cache) Remove(path string) {
	c.mu.Lock()
	_, ok := c.entries[path]
	delete(c.entries, path)
	c.mu.Unlock()

	if ok {
		c.appendRecord(record{Path: path, Gone: true})
	}
}

// appendRecord writes one record as a single line. A single write
// keeps each entry atomic on disk; append failures degrade the cache
// to memory-only rather than failing the caller.
func (c *Cache) appendRecord(rec record) {
	line, err := json.Marshal(rec)
	if err != nil {
		return
	}
	line = append(line, '\n')

	c.appendMu.Lock()
	defer c.appendMu.Unlock()

	if c.f == nil {
		return
	}
	if c.appended == 0 {
		if fi, err := c.f.Stat(); err == nil && fi.Size() == 0 {
			if hdr, err := json.Marshal(header{Schema: SchemaVersion}); err == nil {
				c.f.Write(append(hdr, '\n'))
			}
		}
	}
	if _, err := c.f.Write(line); err == nil {
		c.appended++
	}
}

// Flush compacts the append log into a fresh file containing one
// record per live path, written atomically.
func (c *Cache) Flush() error {
	c.mu.RLock()
	recs := make([]record, 0, len(c.entries))
	for _, rec := range c.entries {
		recs = append(recs, rec)
	}
	c.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].Path < recs[j].Path })

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(header{Schema: SchemaVersion}); err != nil {
		return err
	}
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}

	c.appendMu.Lock()
	defer c.appendMu.Unlock()

	if c.f != nil {
		c.f.Close()
		c.f = nil
	}
	if err := fileutil.AtomicWrite(c.path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	c.f, _ = os.OpenFile(c.path, os.O_WRONLY|os.O_APPEND, 0o644)
	c.appended = 0
	return nil
}

// Close flushes and releases the append handle.
func (c *Cache) Close() error {
	err := c.Flush()

	c.appendMu.Lock()
	defer c.appendMu.Unlock()
	if c.f != nil {
		c.f.Close()
		c.f = nil
	}
	return err
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry, in memory and on disk.
func (c *Cache) Clear() error {
	c.mu.Lock()
	c.entries = make(map[string]record)
	c.mu.Unlock()
	return c.Flush()
}

// Path returns the on-disk location of the cache.
func (c *Cache) Path() string {
	return c.path
}
