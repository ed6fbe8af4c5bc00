// Package sourcecache implements the per-output-directory content cache
// that answers "has this file or any of its dependencies changed since the
// last build?" so the scheduler can skip up-to-date compile/link steps.
package sourcecache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is the cached state for a single tracked path.
type Entry struct {
	LastWriteTime int64  `json:"lwt"`
	Version       string `json:"v,omitempty"`
	Arch          string `json:"a,omitempty"`
	ExternalFlag  string `json:"e,omitempty"`
}

// onDisk is the persisted JSON shape: one object mapping path to Entry plus
// top-level bookkeeping fields.
type onDisk struct {
	LastBuilt int64             `json:"last-built"`
	Strategy  string            `json:"strategy"`
	ExtraHash string            `json:"extra-hash"`
	Files     map[string]Entry  `json:"files"`
}

// Cache is the in-memory, mutation-buffered view of one output directory's
// source cache file. Mutations are visible to subsequent queries
// immediately but are only durable once Flush succeeds.
type Cache struct {
	path string

	mu        sync.Mutex
	lastBuilt int64
	strategy  string
	extraHash string
	files     map[string]Entry
	dirty     bool
}

// Load reads path (cache.json under an output directory), or returns an
// empty Cache if the file is absent or corrupt — corruption is a warning
// condition at the driver layer, not a fatal error here.
func Load(path string) (*Cache, error) {
	c := &Cache{path: path, files: map[string]Entry{}}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, err
	}

	var d onDisk
	if err := json.Unmarshal(b, &d); err != nil {
		// Cache corruption: discard and continue as if empty.
		return c, nil
	}

	c.lastBuilt = d.LastBuilt
	c.strategy = d.Strategy
	c.extraHash = d.ExtraHash
	if d.Files != nil {
		c.files = d.Files
	}
	return c, nil
}

// Strategy returns the strategy string recorded at the last successful
// flush ("" if the cache is new).
func (c *Cache) Strategy() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.strategy
}

// ExtraHash returns the extra-hash recorded at the last successful flush.
func (c *Cache) ExtraHash() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extraHash
}

// Dirty reports whether path is missing on disk, untracked, or has a
// last-write-time newer than the last successful build.
func (c *Cache) Dirty(path string) bool {
	c.mu.Lock()
	entry, ok := c.files[path]
	lastBuilt := c.lastBuilt
	c.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	if !ok {
		return true
	}
	return info.ModTime().UnixNano() > lastBuilt || entry.LastWriteTime > lastBuilt
}

// DirtyWithDep reports Dirty(path) || Dirty(dep).
func (c *Cache) DirtyWithDep(path, dep string) bool {
	return c.Dirty(path) || (dep != "" && c.Dirty(dep))
}

// DataChanged reports whether key's previously stored value for path
// differs from newValue (true if there was no previous value at all).
func (c *Cache) DataChanged(path, key, newValue string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.files[path]
	switch key {
	case "version":
		return entry.Version != newValue
	case "arch":
		return entry.Arch != newValue
	case "external":
		return entry.ExternalFlag != newValue
	default:
		return true
	}
}

// Touch records the current state of path (its on-disk mtime plus the given
// data attributes) in the in-memory buffer. It does not write to disk.
func (c *Cache) Touch(path, version, arch, externalFlag string) {
	info, err := os.Stat(path)
	var lwt int64
	if err == nil {
		lwt = info.ModTime().UnixNano()
	} else {
		lwt = time.Now().UnixNano()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[path] = Entry{LastWriteTime: lwt, Version: version, Arch: arch, ExternalFlag: externalFlag}
	c.dirty = true
}

// SetExtraHash records the fingerprint of environment deltas, theme,
// metadata and addExtraHash contributions that, if changed, forces a full
// rebuild regardless of individual file dirtiness.
func (c *Cache) SetExtraHash(h string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.extraHash = h
	c.dirty = true
}

// SetStrategy records which execution strategy produced this cache state.
func (c *Cache) SetStrategy(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strategy = s
	c.dirty = true
}

// Flush atomically persists the buffered mutations: write to a temp file,
// rename over the cache file. On any error the previous on-disk cache is
// left untouched. Flush should only be called on successful build
// completion; on failure the caller discards the Cache instance instead.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	c.lastBuilt = time.Now().UnixNano()
	d := onDisk{
		LastBuilt: c.lastBuilt,
		Strategy:  c.strategy,
		ExtraHash: c.extraHash,
		Files:     c.files,
	}

	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// Discard drops any buffered mutations without touching the on-disk file,
// used when a build fails partway through.
func (c *Cache) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = false
}
