package cache

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/tierkv/core"
)

// DiskCacheConfig holds configuration for the disk cache.
type DiskCacheConfig struct {
	// RootDir is the directory where cache files are stored.
	RootDir string
	// MaxSizeBytes is the maximum size of the cache in bytes.
	MaxSizeBytes int64
	// MaxConcurrentWrites limits background disk writes to prevent unbounded goroutines.
	// Defaults to 16 if <= 0.
	MaxConcurrentWrites int64
}

// DiskBlockCache implements BlockCache backed by the local filesystem. It is
// the L2 tier in front of remote cold stores and maintains an in-memory LRU
// index of the files on disk.
type DiskBlockCache struct {
	mu          sync.Mutex
	rootDir     string
	maxSize     int64
	currentSize int64

	// writeSem limits concurrent background writes.
	writeSem *semaphore.Weighted

	items   map[Key]*lruEntry
	lruHead *lruEntry
	lruTail *lruEntry
	wg      sync.WaitGroup

	hits   atomic.Int64
	misses atomic.Int64
}

type lruEntry struct {
	key        Key
	size       int64
	filePath   string
	next, prev *lruEntry
}

// NewDiskBlockCache creates a new disk-backed block cache. It scans the
// directory to rebuild the index on startup.
func NewDiskBlockCache(config DiskCacheConfig) (*DiskBlockCache, error) {
	if err := os.MkdirAll(config.RootDir, 0o755); err != nil {
		return nil, err
	}

	maxWrites := config.MaxConcurrentWrites
	if maxWrites <= 0 {
		maxWrites = 16
	}

	c := &DiskBlockCache{
		rootDir:  config.RootDir,
		maxSize:  config.MaxSizeBytes,
		items:    make(map[Key]*lruEntry),
		writeSem: semaphore.NewWeighted(maxWrites),
	}
	c.scanExistingFiles()
	return c, nil
}

func (c *DiskBlockCache) scanExistingFiles() {
	entries, err := os.ReadDir(c.rootDir)
	if err != nil {
		return
	}
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		key, ok := parseFileName(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		c.addToLRU(key, filepath.Join(c.rootDir, de.Name()), info.Size())
	}
}

// fileName encodes a key as <kind>-<db>-<escaped name>.blk. The cold store
// key is path-escaped so separators like ':' and '{' stay filesystem-safe.
func fileName(key Key) string {
	return fmt.Sprintf("%d-%d-%s.blk", key.Kind, key.DB, url.PathEscape(key.Name))
}

func parseFileName(name string) (Key, bool) {
	name, ok := strings.CutSuffix(name, ".blk")
	if !ok {
		return Key{}, false
	}
	parts := strings.SplitN(name, "-", 3)
	if len(parts) != 3 {
		return Key{}, false
	}
	kind, err := strconv.Atoi(parts[0])
	if err != nil {
		return Key{}, false
	}
	db, err := strconv.Atoi(parts[1])
	if err != nil {
		return Key{}, false
	}
	unescaped, err := url.PathUnescape(parts[2])
	if err != nil {
		return Key{}, false
	}
	return Key{Kind: Kind(kind), DB: core.DBID(db), Name: unescaped}, true
}

func (c *DiskBlockCache) Get(ctx context.Context, key Key) ([]byte, bool) {
	c.mu.Lock()
	ent, ok := c.items[key]
	if ok {
		c.moveToFront(ent)
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	data, err := os.ReadFile(ent.filePath)
	if err != nil {
		// File disappeared out from under the index.
		c.mu.Lock()
		c.removeEntry(ent)
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return data, true
}

func (c *DiskBlockCache) Set(ctx context.Context, key Key, b []byte) {
	c.mu.Lock()

	if ent, ok := c.items[key]; ok {
		c.moveToFront(ent)
		c.mu.Unlock()
		// Cold blocks are immutable, no rewrite.
		return
	}

	size := int64(len(b))
	absPath := filepath.Join(c.rootDir, fileName(key))

	for c.currentSize+size > c.maxSize {
		if c.lruTail == nil {
			break
		}
		c.evictOne()
	}

	c.mu.Unlock()

	// If all write slots are busy, skip caching this block.
	if !c.writeSem.TryAcquire(1) {
		return
	}

	// The index is only updated once the write completes, so concurrent Gets
	// miss and hit the backend again during warm-up.
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.writeSem.Release(1)

		tmpFile, err := os.CreateTemp(c.rootDir, "tmp-blk-*")
		if err != nil {
			return
		}
		tmpName := tmpFile.Name()

		defer func() {
			if _, err := os.Stat(tmpName); err == nil {
				_ = os.Remove(tmpName)
			}
		}()

		if _, err := tmpFile.Write(b); err != nil {
			_ = tmpFile.Close()
			return
		}
		if err := tmpFile.Close(); err != nil {
			return
		}
		if err := os.Rename(tmpName, absPath); err != nil {
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		// Recheck capacity in case other writes landed in the meantime.
		for c.currentSize+size > c.maxSize {
			if c.lruTail == nil {
				break
			}
			c.evictOne()
		}
		c.addToLRU(key, absPath, size)
	}()
}

func (c *DiskBlockCache) Invalidate(predicate func(key Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*lruEntry
	for k, ent := range c.items {
		if predicate(k) {
			toRemove = append(toRemove, ent)
		}
	}
	for _, ent := range toRemove {
		_ = os.Remove(ent.filePath)
		c.removeEntry(ent)
	}
}

// Close waits for all background writes to complete.
func (c *DiskBlockCache) Close() error {
	c.wg.Wait()
	return nil
}

func (c *DiskBlockCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Internal LRU helpers (must hold lock)

func (c *DiskBlockCache) addToLRU(key Key, path string, size int64) {
	ent := &lruEntry{
		key:      key,
		filePath: path,
		size:     size,
	}
	c.items[key] = ent
	c.currentSize += size

	if c.lruHead == nil {
		c.lruHead = ent
		c.lruTail = ent
	} else {
		ent.next = c.lruHead
		c.lruHead.prev = ent
		c.lruHead = ent
	}
}

func (c *DiskBlockCache) moveToFront(ent *lruEntry) {
	if c.lruHead == ent {
		return
	}

	if ent.prev != nil {
		ent.prev.next = ent.next
	}
	if ent.next != nil {
		ent.next.prev = ent.prev
	}
	if c.lruTail == ent {
		c.lruTail = ent.prev
	}

	ent.next = c.lruHead
	ent.prev = nil
	if c.lruHead != nil {
		c.lruHead.prev = ent
	}
	c.lruHead = ent
	if c.lruTail == nil {
		c.lruTail = ent
	}
}

func (c *DiskBlockCache) removeEntry(ent *lruEntry) {
	if ent.prev != nil {
		ent.prev.next = ent.next
	} else {
		c.lruHead = ent.next
	}
	if ent.next != nil {
		ent.next.prev = ent.prev
	} else {
		c.lruTail = ent.prev
	}
	delete(c.items, ent.key)
	c.currentSize -= ent.size
}

func (c *DiskBlockCache) evictOne() {
	if c.lruTail == nil {
		return
	}
	_ = os.Remove(c.lruTail.filePath)
	c.removeEntry(c.lruTail)
}
