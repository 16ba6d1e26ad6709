// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

// Package cache memoizes expensive reads for a bounded time window.
//
// Callers derive a key from the operation name and its arguments with
// GenerateKey, then call GetOrCompute with the TTL that suits the call site:
//
//	key := cache.GenerateKey("store:products", filter)
//	page, err := cache.GetOrCompute(ctx, c, key, 30*time.Second, func(ctx context.Context) (*ProductPage, error) {
//	    return s.listProducts(ctx, filter)
//	})
//
// Mutations drop every entry under a prefix with Invalidate("store:"). A
// compute that was already running when Invalidate was called returns its
// result to its callers but does not store it. An entry is fresh while
// now-stored < ttl, where ttl is the value passed by the reader; expiry is
// checked on read.
//
// Sweep removes entries older than the longest TTL any caller has used for
// them so memory does not grow with dead keys. A reader that asks for a
// longer TTL than any earlier caller used on that key may find a swept entry
// missing and recompute it.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/essence-shop/essence/internal/metrics"
)

// Entry is a cached value and the time it was stored.
type Entry struct {
	Data     any
	StoredAt time.Time
	// ExpiresAt is StoredAt plus the longest TTL used to store or read the
	// entry. Sweep removes the entry once it has passed.
	ExpiresAt time.Time
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits          int64
	Misses        int64
	Invalidations int64
	Swept         int64
	TotalKeys     int64
	LastSweep     time.Time
}

// Cache is a process-local TTL cache. The zero value is not usable; call New.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	clock   clockwork.Clock
	group   singleflight.Group
	// gen is bumped by every Invalidate, under mu.
	gen uint64

	statsMu sync.Mutex
	stats   Stats
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the wall clock, for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]Entry),
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key if it was stored less than ttl ago.
func (c *Cache) Get(key string, ttl time.Duration) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.clock.Since(entry.StoredAt) >= ttl {
		return nil, false
	}
	if expires := entry.StoredAt.Add(ttl); expires.After(entry.ExpiresAt) {
		c.extend(key, entry.StoredAt, expires)
	}
	return entry.Data, true
}

// extend raises the expiry of the entry stored at storedAt, if it is still
// the one under key.
func (c *Cache) extend(key string, storedAt, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || !entry.StoredAt.Equal(storedAt) || !expires.After(entry.ExpiresAt) {
		return
	}
	entry.ExpiresAt = expires
	c.entries[key] = entry
}

// Set stores value under key at the current time.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	size := c.storeLocked(key, value, ttl)
	c.mu.Unlock()

	c.setTotalKeys(size)
}

// storeIfCurrent stores value unless Invalidate ran since gen was read.
func (c *Cache) storeIfCurrent(key string, value any, ttl time.Duration, gen uint64) bool {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return false
	}
	size := c.storeLocked(key, value, ttl)
	c.mu.Unlock()

	c.setTotalKeys(size)
	return true
}

func (c *Cache) storeLocked(key string, value any, ttl time.Duration) int {
	now := c.clock.Now()
	c.entries[key] = Entry{Data: value, StoredAt: now, ExpiresAt: now.Add(ttl)}
	return len(c.entries)
}

func (c *Cache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// GetOrCompute returns the cached value for key when it is younger than ttl.
// Otherwise it runs compute, stores the result with the current time and
// returns it. Errors from compute are returned and not cached.
//
// Concurrent misses on the same key share one compute call. The shared call
// runs without the callers' cancellation; each caller stops waiting when its
// own ctx is done, and the call keeps running for the others.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (any, error)) (any, error) {
	ns := namespace(key)
	if v, ok := c.Get(key, ttl); ok {
		c.recordHit(ns)
		return v, nil
	}
	c.recordMiss(ns)

	gen := c.generation()
	flight := key + "\x00" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(flight, func() (any, error) {
		result, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.storeIfCurrent(key, result, ttl, gen)
		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.Val, r.Err
	}
}

// GetOrCompute is the typed form of Cache.GetOrCompute.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	v, err := c.GetOrCompute(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return compute(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: value under %q has type %T", key, v)
	}
	return typed, nil
}

// Invalidate removes every entry whose key starts with prefix and returns how
// many were removed. An empty prefix clears the cache.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	c.gen++
	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	size := len(c.entries)
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats.Invalidations += int64(removed)
	c.stats.TotalKeys = int64(size)
	c.statsMu.Unlock()

	metrics.CacheInvalidations.WithLabelValues(namespace(prefix)).Add(float64(removed))
	metrics.CacheEntries.Set(float64(size))
	return removed
}

// Clear removes every entry.
func (c *Cache) Clear() int {
	return c.Invalidate("")
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the stored keys in no particular order.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// Sweep drops entries past ExpiresAt and returns how many it dropped.
func (c *Cache) Sweep() int {
	now := c.clock.Now()
	c.mu.Lock()
	swept := 0
	for key, entry := range c.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(c.entries, key)
			swept++
		}
	}
	size := len(c.entries)
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats.Swept += int64(swept)
	c.stats.TotalKeys = int64(size)
	c.stats.LastSweep = now
	c.statsMu.Unlock()
	metrics.CacheEntries.Set(float64(size))
	return swept
}

// GetStats returns a copy of the counters.
func (c *Cache) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// HitRate returns hits as a percentage of lookups.
func (c *Cache) HitRate() float64 {
	s := c.GetStats()
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

func (c *Cache) recordHit(ns string) {
	c.statsMu.Lock()
	c.stats.Hits++
	c.statsMu.Unlock()
	metrics.CacheHits.WithLabelValues(ns).Inc()
}

func (c *Cache) recordMiss(ns string) {
	c.statsMu.Lock()
	c.stats.Misses++
	c.statsMu.Unlock()
	metrics.CacheMisses.WithLabelValues(ns).Inc()
}

func (c *Cache) setTotalKeys(n int) {
	c.statsMu.Lock()
	c.stats.TotalKeys = int64(n)
	c.statsMu.Unlock()
	metrics.CacheEntries.Set(float64(n))
}

// GenerateKey builds "name:<hash>" where hash covers the JSON encoding of
// args. Map keys are encoded in sorted order, so equal arguments give equal
// keys. Request, session and store handles must not be passed as args.
func GenerateKey(name string, args ...any) string {
	if len(args) == 0 {
		return name
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%s:%v", name, args)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", name, hash[:16])
}

// namespace keeps metric label cardinality bounded: "store:products:ab12"
// becomes "store".
func namespace(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	if key == "" {
		return "all"
	}
	return key
}
