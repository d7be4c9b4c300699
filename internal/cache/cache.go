// Package cache provides process-wide cache-aside lookups of channel
// configuration. Entries are loaded on first use, including negative
// results, and live until they are invalidated.
package cache

import (
	"context"
	"sync"

	"github.com/zulandar/polyglot/internal/store"
	"github.com/zulandar/polyglot/internal/telemetry"
)

// Loader fetches the value for key from the backing store. found=false
// means the key is legitimately absent and is cached as such.
type Loader[V any] func(ctx context.Context, key string) (value V, found bool, err error)

type entry[V any] struct {
	value V
	found bool
}

// Cache is a concurrency-safe cache-aside map keyed by channel ID. Two
// concurrent misses for the same key may both call the loader; the later
// result wins, which is harmless because loads are idempotent.
type Cache[V any] struct {
	name    string
	load    Loader[V]
	mu      sync.RWMutex
	entries map[string]entry[V]
}

// New creates an empty cache. name labels the cache in metrics.
func New[V any](name string, load Loader[V]) *Cache[V] {
	return &Cache[V]{
		name:    name,
		load:    load,
		entries: make(map[string]entry[V]),
	}
}

// Get returns the cached value for key, loading it on a miss. Loader errors
// are returned and nothing is cached.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		telemetry.CacheLookups.WithLabelValues(c.name, telemetry.ResultHit).Inc()
		return e.value, e.found, nil
	}
	telemetry.CacheLookups.WithLabelValues(c.name, telemetry.ResultMiss).Inc()

	value, found, err := c.load(ctx, key)
	if err != nil {
		var zero V
		return zero, false, err
	}

	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, found: found}
	c.mu.Unlock()
	return value, found, nil
}

// Invalidate drops the given keys; the next Get reloads them.
func (c *Cache[V]) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
}

// Flush drops every entry.
func (c *Cache[V]) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Len returns the number of cached entries, negative ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// NewLanguages caches each channel's configured translation language.
func NewLanguages(channels store.Channels) *Cache[string] {
	return New("language", channels.Language)
}

// NewTopology caches each channel's linked target channels.
func NewTopology(channels store.Channels) *Cache[[]string] {
	return New("topology", channels.LinkedChannels)
}

// Config groups the two channel configuration caches so they can be
// invalidated together when a channel is reconfigured.
type Config struct {
	Languages *Cache[string]
	Topology  *Cache[[]string]
}

// NewConfig builds both caches over the same store.
func NewConfig(channels store.Channels) *Config {
	return &Config{
		Languages: NewLanguages(channels),
		Topology:  NewTopology(channels),
	}
}

// Invalidate drops everything cached about the given channels.
func (c *Config) Invalidate(channelIDs ...string) {
	c.Languages.Invalidate(channelIDs...)
	c.Topology.Invalidate(channelIDs...)
}

// Flush drops every cached channel configuration.
func (c *Config) Flush() {
	c.Languages.Flush()
	c.Topology.Flush()
}
