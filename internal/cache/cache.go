// Package cache provides an in-memory registry of live values that expire
// after a period of inactivity.
package cache

import (
	"sync"
	"time"
)

// Entry is a registered value and its expiry.
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// IsExpired returns true if the entry has expired
func (e *Entry[V]) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Registry holds values keyed by ID. Each Get extends an entry's lifetime by
// the idle TTL; entries nobody touches expire and are passed to the evict
// callback.
type Registry[V any] struct {
	mu      sync.RWMutex
	entries map[string]*Entry[V]
	ttl     time.Duration
	onEvict func(key string, v V)

	// For background cleanup
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once // Ensures Stop() is idempotent
}

// NewRegistry creates a registry whose entries expire after ttl of
// inactivity. onEvict, if not nil, runs for every expired or removed entry
// outside the registry lock.
func NewRegistry[V any](ttl time.Duration, onEvict func(key string, v V)) *Registry[V] {
	if ttl <= 0 {
		ttl = time.Hour
	}
	interval := time.Minute
	if ttl < interval {
		interval = ttl / 2
	}

	r := &Registry[V]{
		entries:         make(map[string]*Entry[V]),
		ttl:             ttl,
		onEvict:         onEvict,
		cleanupInterval: interval,
		stopCleanup:     make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

// TTL returns the idle lifetime of entries.
func (r *Registry[V]) TTL() time.Duration {
	return r.ttl
}

// Get returns the value for key and extends its lifetime.
func (r *Registry[V]) Get(key string) (V, bool) {
	r.mu.Lock()
	entry, exists := r.entries[key]
	if exists && !entry.IsExpired() {
		entry.ExpiresAt = time.Now().Add(r.ttl)
		r.mu.Unlock()
		return entry.Value, true
	}
	r.mu.Unlock()

	if exists {
		// Entry has completely expired, remove it
		r.Remove(key)
	}
	var zero V
	return zero, false
}

// Set registers v under key, replacing (and evicting) any previous value.
func (r *Registry[V]) Set(key string, v V) {
	r.mu.Lock()
	prev, existed := r.entries[key]
	r.entries[key] = &Entry[V]{Value: v, ExpiresAt: time.Now().Add(r.ttl)}
	r.mu.Unlock()

	if existed && r.onEvict != nil {
		r.onEvict(key, prev.Value)
	}
}

// Remove deletes key and runs the evict callback for it.
func (r *Registry[V]) Remove(key string) {
	r.mu.Lock()
	entry, exists := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if exists && r.onEvict != nil {
		r.onEvict(key, entry.Value)
	}
}

// Range calls fn for every live value until fn returns false. fn runs without
// the registry lock held.
func (r *Registry[V]) Range(fn func(key string, v V) bool) {
	type kv struct {
		key string
		v   V
	}

	r.mu.RLock()
	live := make([]kv, 0, len(r.entries))
	for k, e := range r.entries {
		if !e.IsExpired() {
			live = append(live, kv{k, e.Value})
		}
	}
	r.mu.RUnlock()

	for _, item := range live {
		if !fn(item.key, item.v) {
			return
		}
	}
}

// cleanupLoop periodically removes expired entries
func (r *Registry[V]) cleanupLoop() {
	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.stopCleanup:
			return
		}
	}
}

// cleanup removes all expired entries
func (r *Registry[V]) cleanup() {
	var evicted []*Entry[V]
	var keys []string

	r.mu.Lock()
	now := time.Now()
	for key, entry := range r.entries {
		if now.After(entry.ExpiresAt) {
			delete(r.entries, key)
			evicted = append(evicted, entry)
			keys = append(keys, key)
		}
	}
	r.mu.Unlock()

	if r.onEvict == nil {
		return
	}
	for i, entry := range evicted {
		r.onEvict(keys[i], entry.Value)
	}
}

// Stop stops the background cleanup goroutine and evicts every entry.
// Safe to call multiple times
func (r *Registry[V]) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCleanup)

		r.mu.Lock()
		entries := r.entries
		r.entries = make(map[string]*Entry[V])
		r.mu.Unlock()

		if r.onEvict != nil {
			for key, entry := range entries {
				r.onEvict(key, entry.Value)
			}
		}
	})
}

// Len returns the number of entries in the registry (for testing)
func (r *Registry[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
