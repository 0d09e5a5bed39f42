// Package cache persists parse results between runs, keyed by file path and
// content hash, so unchanged files skip the lexer and parser.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/phobologic/phpscope/internal/model"
)

// formatVersion is bumped whenever the stored model changes shape.
const formatVersion = 1

// Entry is the cached outcome of parsing one file. A nil Class records a
// file that declared no class.
type Entry struct {
	Hash         uint64       `json:"hash"`
	Class        *model.Class `json:"class,omitempty"`
	Lines        int          `json:"lines"`
	SyntaxErrors []int        `json:"syntax_errors,omitempty"`
}

type document struct {
	Version  int              `json:"version"`
	Settings string           `json:"settings"`
	Entries  map[string]Entry `json:"entries"`
}

// Cache is a concurrency-safe map of path to Entry backed by a JSON file.
type Cache struct {
	path     string
	settings string

	mu      sync.Mutex
	entries map[string]Entry
	dirty   bool
}

// Hash returns the content fingerprint stored in entries.
func Hash(content string) uint64 {
	return xxhash.Sum64String(content)
}

// Open loads the cache at path. A missing file, an unreadable document, or
// one written with different settings yields an empty cache rather than an
// error, since the cache can always be rebuilt.
func Open(path, settings string) *Cache {
	c := &Cache{path: path, settings: settings, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return c
	}
	if doc.Version != formatVersion || doc.Settings != settings || doc.Entries == nil {
		return c
	}
	c.entries = doc.Entries
	return c
}

// Get returns the entry for path if its hash matches content.
func (c *Cache) Get(path, content string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[path]
	if !ok || e.Hash != Hash(content) {
		return Entry{}, false
	}
	return e, true
}

// Put records the entry for path, stamping it with the hash of content.
func (c *Cache) Put(path, content string, e Entry) {
	e.Hash = Hash(content)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = e
	c.dirty = true
}

// Prune drops entries whose path is not in keep.
func (c *Cache) Prune(keep []string) {
	set := make(map[string]struct{}, len(keep))
	for _, p := range keep {
		set[p] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for p := range c.entries {
		if _, ok := set[p]; !ok {
			delete(c.entries, p)
			c.dirty = true
		}
	}
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Save writes the cache back to disk if anything changed. The document is
// written to a temporary file and renamed into place.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}
	data, err := json.Marshal(document{
		Version:  formatVersion,
		Settings: c.settings,
		Entries:  c.entries,
	})
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating cache directory: %w", err)
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return errors.Join(fmt.Errorf("replacing cache: %w", err), os.Remove(tmp))
	}
	c.dirty = false
	return nil
}
