package fs

import (
	"maps"

	"github.com/aretw0/introspection"
)

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path          string         `json:"path"`
	Collections   []string       `json:"collections"`
	KeyLocking    bool           `json:"key_locking"`
	HeldLocks     int            `json:"held_locks"`
	WatcherActive bool           `json:"watcher_active"`
	Operations    map[string]int `json:"operations"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	collections, _ := r.Collections()

	held := 0
	if r.locks != nil {
		held = r.locks.len()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return RepositoryState{
		Path:          r.Path,
		Collections:   collections,
		KeyLocking:    r.locks != nil,
		HeldLocks:     held,
		WatcherActive: r.watcherActive,
		Operations:    maps.Clone(r.counters),
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "fs-repository"
}

var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)

func (r *Repository) setWatcherActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watcherActive = active
}
