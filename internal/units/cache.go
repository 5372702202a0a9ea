package units

import (
	"fmt"
	"hash/fnv"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/loqalabs/loqa-diphone/internal/voice"
)

// Source hands out the unit library for a directory.
type Source interface {
	Library(dir string) (*Library, error)
}

// Rebuilder builds a fresh library on every call.
type Rebuilder struct {
	Options Options
}

func (r Rebuilder) Library(dir string) (*Library, error) {
	return Build(dir, r.Options)
}

type cacheEntry struct {
	fingerprint uint64
	lib         *Library
}

// Cache keeps recently used libraries keyed by directory. Every lookup
// re-stats the directory and rebuilds when names, sizes or modification
// times have changed, so results always reflect the current contents.
type Cache struct {
	opts    Options
	mu      sync.Mutex
	entries *lru.Cache[string, cacheEntry]
}

// NewCache returns a cache holding up to size libraries.
func NewCache(size int, opts Options) (*Cache, error) {
	if size <= 0 {
		size = 1
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create unit cache: %w", err)
	}
	return &Cache{opts: opts, entries: entries}, nil
}

func (c *Cache) Library(dir string) (*Library, error) {
	key := filepath.Clean(dir)

	c.mu.Lock()
	defer c.mu.Unlock()

	fp, err := fingerprint(key)
	if err != nil {
		return nil, err
	}
	if entry, ok := c.entries.Get(key); ok && entry.fingerprint == fp {
		return entry.lib, nil
	}
	lib, err := Build(key, c.opts)
	if err != nil {
		c.entries.Remove(key)
		return nil, err
	}
	c.entries.Add(key, cacheEntry{fingerprint: fp, lib: lib})
	return lib, nil
}

// Invalidate drops the cached library for dir.
func (c *Cache) Invalidate(dir string) {
	c.entries.Remove(filepath.Clean(dir))
}

// Len returns the number of cached libraries.
func (c *Cache) Len() int { return c.entries.Len() }

func fingerprint(dir string) (uint64, error) {
	var lines []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.EqualFold(filepath.Ext(name), ".wav") && name != voice.FileName {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		lines = append(lines, fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano()))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan unit directory: %w", err)
	}
	sort.Strings(lines)
	h := fnv.New64a()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return h.Sum64(), nil
}
