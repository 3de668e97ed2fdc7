// Package cache provides an LRU cache of prepared bulk update statements.
package cache

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	"github.com/golang/groupcache/lru"
)

const (
	// DefaultStmtCacheCapacity is the default maximum number of cached prepared statements.
	DefaultStmtCacheCapacity = 256
	// DefaultMaxSQLLength is the longest SQL text that is cached. Bulk
	// statements grow with the batch, and a large batch rarely repeats.
	DefaultMaxSQLLength = 16 * 1024
)

// Preparer prepares statements. *sql.DB and *sql.Conn implement it.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// StmtCache stores prepared statements keyed by SQL text. Evicted statements
// are closed.
type StmtCache struct {
	mu           sync.Mutex
	lru          *lru.Cache
	capacity     int
	maxSQLLength int
	clearing     bool

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	uncached  atomic.Uint64
}

// NewStmtCache creates a cache with default capacity.
func NewStmtCache() *StmtCache {
	return NewStmtCacheWithCapacity(DefaultStmtCacheCapacity)
}

// NewStmtCacheWithCapacity creates a cache holding at most capacity
// statements. Non-positive capacities fall back to the default.
func NewStmtCacheWithCapacity(capacity int) *StmtCache {
	if capacity <= 0 {
		capacity = DefaultStmtCacheCapacity
	}
	sc := &StmtCache{
		capacity:     capacity,
		maxSQLLength: DefaultMaxSQLLength,
	}
	sc.lru = lru.New(capacity)
	sc.lru.OnEvicted = sc.onEvicted
	return sc
}

// SetMaxSQLLength changes the longest cached SQL text. Zero or less caches
// every statement.
func (sc *StmtCache) SetMaxSQLLength(n int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.maxSQLLength = n
}

// onEvicted runs with sc.mu held.
func (sc *StmtCache) onEvicted(_ lru.Key, value interface{}) {
	_ = value.(*sql.Stmt).Close()
	if !sc.clearing {
		sc.evictions.Add(1)
	}
}

// Cacheable reports whether a query is short enough to be cached.
func (sc *StmtCache) Cacheable(query string) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.cacheable(query)
}

func (sc *StmtCache) cacheable(query string) bool {
	return sc.maxSQLLength <= 0 || len(query) <= sc.maxSQLLength
}

// Get returns a cached statement and marks it most recently used.
func (sc *StmtCache) Get(query string) (*sql.Stmt, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	v, ok := sc.lru.Get(query)
	if !ok {
		sc.misses.Add(1)
		return nil, false
	}
	sc.hits.Add(1)
	return v.(*sql.Stmt), true
}

// Set stores a statement, closing the one it replaces. The least recently
// used statement is evicted and closed when the cache is full.
func (sc *StmtCache) Set(query string, stmt *sql.Stmt) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if old, ok := sc.lru.Get(query); ok {
		if old.(*sql.Stmt) == stmt {
			return
		}
		_ = old.(*sql.Stmt).Close()
	}
	sc.lru.Add(query, stmt)
}

// Prepare returns a prepared statement for query. Cached statements are
// shared and must not be closed by the caller; owned is true when the
// statement was prepared outside the cache and the caller must close it.
func (sc *StmtCache) Prepare(ctx context.Context, p Preparer, query string) (stmt *sql.Stmt, owned bool, err error) {
	if !sc.Cacheable(query) {
		sc.uncached.Add(1)
		stmt, err = p.PrepareContext(ctx, query)
		return stmt, err == nil, err
	}
	if stmt, ok := sc.Get(query); ok {
		return stmt, false, nil
	}

	stmt, err = p.PrepareContext(ctx, query)
	if err != nil {
		return nil, false, err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	// Another caller may have prepared the same query meanwhile.
	if existing, ok := sc.lru.Get(query); ok {
		_ = stmt.Close()
		return existing.(*sql.Stmt), false, nil
	}
	sc.lru.Add(query, stmt)
	return stmt, false, nil
}

// Clear closes and removes all cached statements.
func (sc *StmtCache) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.clearing = true
	sc.lru.Clear()
	sc.clearing = false
}

// Stats holds cache performance metrics.
type Stats struct {
	Size      int     // Current number of cached statements.
	Capacity  int     // Maximum capacity.
	Hits      uint64  // Number of successful cache lookups.
	Misses    uint64  // Number of cache misses.
	Evictions uint64  // Number of evicted statements.
	Uncached  uint64  // Number of statements too long to cache.
	HitRate   float64 // Cache hit rate (hits / total lookups).
}

// Stats returns cache statistics.
func (sc *StmtCache) Stats() Stats {
	sc.mu.Lock()
	size := sc.lru.Len()
	sc.mu.Unlock()

	hits := sc.hits.Load()
	misses := sc.misses.Load()
	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:      size,
		Capacity:  sc.capacity,
		Hits:      hits,
		Misses:    misses,
		Evictions: sc.evictions.Load(),
		Uncached:  sc.uncached.Load(),
		HitRate:   hitRate,
	}
}
