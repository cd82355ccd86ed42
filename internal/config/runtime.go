package config

import (
	"sync"
)

// RuntimeConfig stores configuration set at runtime via CLI flags.
// These values are not persisted to config files.
type RuntimeConfig struct {
	mu       sync.RWMutex
	readOnly bool
}

var globalRuntime = &RuntimeConfig{}

// SetReadOnly enables or disables read-only mode.
// A read-only server renders and shares but refuses to save.
func SetReadOnly(readOnly bool) {
	globalRuntime.mu.Lock()
	defer globalRuntime.mu.Unlock()
	globalRuntime.readOnly = readOnly
}

// IsReadOnly returns whether saving is disabled.
func IsReadOnly() bool {
	globalRuntime.mu.RLock()
	defer globalRuntime.mu.RUnlock()
	return globalRuntime.readOnly
}
