package cache

import (
	"sort"
	"sync"
	"testing"
	"time"
)

func TestRegistryBasic(t *testing.T) {
	r := NewRegistry[string](time.Minute, nil)
	defer r.Stop()

	// Initially empty
	if _, found := r.Get("test"); found {
		t.Error("expected miss for non-existent key")
	}

	r.Set("test", "value")

	v, found := r.Get("test")
	if !found {
		t.Fatal("expected hit")
	}
	if v != "value" {
		t.Errorf("unexpected value: %q", v)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", r.Len())
	}
}

func TestRegistryTTL(t *testing.T) {
	var mu sync.Mutex
	var evicted []string
	r := NewRegistry[int](50*time.Millisecond, func(key string, v int) {
		mu.Lock()
		defer mu.Unlock()
		evicted = append(evicted, key)
	})
	defer r.Stop()

	r.Set("short", 1)

	// Immediately available
	if _, found := r.Get("short"); !found {
		t.Error("expected hit immediately after set")
	}

	// Wait for expiration
	time.Sleep(100 * time.Millisecond)

	if _, found := r.Get("short"); found {
		t.Error("expected miss after TTL expired")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(evicted) != 1 || evicted[0] != "short" {
		t.Errorf("expected short to be evicted once, got %v", evicted)
	}
}

func TestRegistryGetExtendsLifetime(t *testing.T) {
	r := NewRegistry[int](80*time.Millisecond, nil)
	defer r.Stop()

	r.Set("busy", 1)
	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		if _, found := r.Get("busy"); !found {
			t.Fatalf("entry expired despite activity (iteration %d)", i)
		}
	}
}

func TestRegistryCleanupEvicts(t *testing.T) {
	done := make(chan string, 1)
	r := NewRegistry[int](20*time.Millisecond, func(key string, v int) {
		done <- key
	})
	defer r.Stop()

	r.Set("idle", 7)

	select {
	case key := <-done:
		if key != "idle" {
			t.Errorf("evicted %q, want idle", key)
		}
	case <-time.After(time.Second):
		t.Fatal("background cleanup never evicted the idle entry")
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
}

func TestRegistrySetReplacesAndEvicts(t *testing.T) {
	var evicted []int
	r := NewRegistry[int](time.Minute, func(key string, v int) {
		evicted = append(evicted, v)
	})
	defer r.Stop()

	r.Set("k", 1)
	r.Set("k", 2)

	if v, _ := r.Get("k"); v != 2 {
		t.Errorf("expected 2, got %d", v)
	}
	if len(evicted) != 1 || evicted[0] != 1 {
		t.Errorf("expected old value evicted, got %v", evicted)
	}
}

func TestRegistryRemove(t *testing.T) {
	var evicted []string
	r := NewRegistry[string](time.Minute, func(key string, v string) {
		evicted = append(evicted, key)
	})
	defer r.Stop()

	r.Set("a", "1")
	r.Set("b", "2")
	r.Remove("a")
	r.Remove("missing")

	if _, found := r.Get("a"); found {
		t.Error("expected a to be removed")
	}
	if _, found := r.Get("b"); !found {
		t.Error("expected b to remain")
	}
	if len(evicted) != 1 || evicted[0] != "a" {
		t.Errorf("expected only a evicted, got %v", evicted)
	}
}

func TestRegistryRange(t *testing.T) {
	r := NewRegistry[int](time.Minute, nil)
	defer r.Stop()

	r.Set("a", 1)
	r.Set("b", 2)
	r.Set("c", 3)

	var keys []string
	r.Range(func(key string, v int) bool {
		keys = append(keys, key)
		return true
	})
	sort.Strings(keys)
	if len(keys) != 3 || keys[0] != "a" || keys[2] != "c" {
		t.Errorf("unexpected keys: %v", keys)
	}

	count := 0
	r.Range(func(string, int) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("expected Range to stop after first value, got %d", count)
	}
}

func TestRegistryStopEvictsAll(t *testing.T) {
	var evicted []string
	r := NewRegistry[int](time.Minute, func(key string, v int) {
		evicted = append(evicted, key)
	})

	r.Set("a", 1)
	r.Set("b", 2)
	r.Stop()
	r.Stop()

	if len(evicted) != 2 {
		t.Errorf("expected 2 evictions, got %v", evicted)
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry after Stop, got %d", r.Len())
	}
}

func TestRegistryConcurrent(t *testing.T) {
	r := NewRegistry[int](time.Minute, nil)
	defer r.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			r.Set(key, i)
			r.Get(key)
			r.Range(func(string, int) bool { return true })
		}(i)
	}
	wg.Wait()

	if r.Len() != 20 {
		t.Errorf("expected 20 entries, got %d", r.Len())
	}
}
