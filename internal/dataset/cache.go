package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Fingerprint identifies one version of a file on disk.
// A change in either ModTime or Size invalidates cached parses.
type Fingerprint struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
}

// StatFile fingerprints the file at path
func StatFile(path string) (Fingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Fingerprint{}, err
	}
	if info.IsDir() {
		return Fingerprint{}, fmt.Errorf("%s is a directory", abs)
	}
	return Fingerprint{Path: abs, ModTime: info.ModTime(), Size: info.Size()}, nil
}

// Same reports whether both fingerprints describe the same file version
func (f Fingerprint) Same(o Fingerprint) bool {
	return f.Path == o.Path && f.Size == o.Size && f.ModTime.UnixNano() == o.ModTime.UnixNano()
}

func (f Fingerprint) key() string {
	return fmt.Sprintf("%s|%d|%d", f.Path, f.ModTime.UnixNano(), f.Size)
}

// PersistentTier stores parsed tables across process restarts
type PersistentTier interface {
	Load(table Table, fp Fingerprint, dest interface{}) (bool, error)
	Save(table Table, fp Fingerprint, value interface{}) error
}

// Recorder receives cache and load measurements
type Recorder interface {
	CacheHit(table, tier string)
	CacheMiss(table string)
	ObserveLoad(table string, d time.Duration, err error)
}

type entry struct {
	fp    Fingerprint
	value interface{}
}

// CacheStats is a point-in-time view of cache activity
type CacheStats struct {
	Entries        int   `json:"entries"`
	MemoryHits     int64 `json:"memory_hits"`
	PersistentHits int64 `json:"persistent_hits"`
	Misses         int64 `json:"misses"`
	Parses         int64 `json:"parses"`
}

// Cache memoizes parsed tables by file fingerprint
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry // by absolute path

	group      singleflight.Group
	persistent PersistentTier
	recorder   Recorder
	log        zerolog.Logger

	memoryHits     atomic.Int64
	persistentHits atomic.Int64
	misses         atomic.Int64
	parses         atomic.Int64
}

// CacheOption configures a Cache
type CacheOption func(*Cache)

// WithPersistentTier adds a second-level cache that survives restarts
func WithPersistentTier(p PersistentTier) CacheOption {
	return func(c *Cache) { c.persistent = p }
}

// WithRecorder reports hits, misses and load times
func WithRecorder(r Recorder) CacheOption {
	return func(c *Cache) { c.recorder = r }
}

// NewCache creates an empty cache
func NewCache(log zerolog.Logger, opts ...CacheOption) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		log:     log.With().Str("component", "dataset_cache").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stats returns cache counters
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()

	return CacheStats{
		Entries:        n,
		MemoryHits:     c.memoryHits.Load(),
		PersistentHits: c.persistentHits.Load(),
		Misses:         c.misses.Load(),
		Parses:         c.parses.Load(),
	}
}

// Invalidate drops every in-memory entry. The persistent tier is untouched;
// its rows are keyed by fingerprint and cannot go stale.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

func (c *Cache) lookup(fp Fingerprint) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fp.Path]
	if !ok || !e.fp.Same(fp) {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) store(fp Fingerprint, value interface{}) {
	c.mu.Lock()
	c.entries[fp.Path] = entry{fp: fp, value: value}
	c.mu.Unlock()
}

// reindexer is implemented by values that carry derived lookup state which
// the persistent encoding does not preserve.
type reindexer interface {
	Reindex()
}

// load returns the parsed contents of path, parsing only when the file's
// fingerprint has changed since the last call. Values are shared between
// callers and must be treated as read-only.
func load[T any](c *Cache, table Table, path string, parse func(path string) (T, error)) (T, error) {
	var zero T

	fp, err := StatFile(path)
	if err != nil {
		return zero, fmt.Errorf("failed to stat %s: %w", table.FileName(), err)
	}

	if v, ok := c.lookup(fp); ok {
		c.memoryHits.Add(1)
		if c.recorder != nil {
			c.recorder.CacheHit(string(table), "memory")
		}
		return v.(T), nil
	}

	v, err, _ := c.group.Do(fp.key(), func() (interface{}, error) {
		// Another caller may have finished while we waited for the group
		if v, ok := c.lookup(fp); ok {
			return v, nil
		}

		if c.persistent != nil {
			var decoded T
			found, err := c.persistent.Load(table, fp, &decoded)
			if err != nil {
				c.log.Warn().Err(err).Str("table", string(table)).Msg("Persistent cache read failed, re-parsing")
			} else if found {
				if r, ok := any(decoded).(reindexer); ok {
					r.Reindex()
				}
				c.persistentHits.Add(1)
				if c.recorder != nil {
					c.recorder.CacheHit(string(table), "persistent")
				}
				c.store(fp, decoded)
				return decoded, nil
			}
		}

		c.misses.Add(1)
		if c.recorder != nil {
			c.recorder.CacheMiss(string(table))
		}

		start := time.Now()
		parsed, err := parse(fp.Path)
		elapsed := time.Since(start)
		if c.recorder != nil {
			c.recorder.ObserveLoad(string(table), elapsed, err)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", table.FileName(), err)
		}
		c.parses.Add(1)

		c.log.Debug().
			Str("table", string(table)).
			Int64("size", fp.Size).
			Dur("duration", elapsed).
			Msg("Parsed dataset table")

		c.store(fp, parsed)

		if c.persistent != nil {
			if err := c.persistent.Save(table, fp, parsed); err != nil {
				c.log.Warn().Err(err).Str("table", string(table)).Msg("Failed to persist parsed table")
			}
		}
		return parsed, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}
