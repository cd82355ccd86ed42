// Package gateway persists, restores and shares playground snapshots.
//
// The gateway is the only code that knows how a Snapshot is serialized. It
// maps backend failures onto the tinkerpen error types so callers can turn
// them into notices without inspecting driver errors.
package gateway

import (
	"context"
	"errors"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/store"
)

// Gateway saves and loads a single snapshot under a fixed key.
type Gateway struct {
	store store.Store
	key   string
}

// New returns a gateway over st. An empty key selects tinkerpen.StorageKey.
func New(st store.Store, key string) *Gateway {
	if key == "" {
		key = tinkerpen.StorageKey
	}
	return &Gateway{store: st, key: key}
}

// Key returns the storage key snapshots are saved under.
func (g *Gateway) Key() string {
	return g.key
}

// Store returns the backing store.
func (g *Gateway) Store() store.Store {
	return g.store
}

// Save serializes s and writes it under the key, replacing any previous value.
// A rejected write leaves the previous value in place and returns a
// *tinkerpen.StorageError.
func (g *Gateway) Save(ctx context.Context, s tinkerpen.Snapshot) error {
	data, err := tinkerpen.MarshalSnapshot(s)
	if err != nil {
		return &tinkerpen.StorageError{Op: "save", Key: g.key, Err: err}
	}
	if err := g.store.Put(ctx, g.key, data); err != nil {
		return &tinkerpen.StorageError{Op: "save", Key: g.key, Err: err}
	}
	return nil
}

// Load reads the saved snapshot. It returns tinkerpen.ErrNotFound when nothing
// was saved and a *tinkerpen.DeserializeError when the stored value is not a
// snapshot.
func (g *Gateway) Load(ctx context.Context) (tinkerpen.Snapshot, error) {
	data, err := g.store.Get(ctx, g.key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return tinkerpen.Snapshot{}, tinkerpen.ErrNotFound
		}
		return tinkerpen.Snapshot{}, &tinkerpen.StorageError{Op: "load", Key: g.key, Err: err}
	}

	s, err := tinkerpen.UnmarshalSnapshot(data)
	if err != nil {
		return tinkerpen.Snapshot{}, &tinkerpen.DeserializeError{Source: "storage", Err: err}
	}
	return s, nil
}
