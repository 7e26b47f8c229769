// Package expand tracks which content blocks of a view are expanded.
package expand

import "sync"

// Registry is the set of currently expanded block keys for one view.
// Entries are created on first toggle and are never removed when the result
// that owns them is replaced; the registry lives exactly as long as its view.
type Registry struct {
	mu       sync.RWMutex
	expanded map[Key]struct{}
}

// NewRegistry returns an empty registry: every block starts collapsed.
func NewRegistry() *Registry {
	return &Registry{expanded: make(map[Key]struct{})}
}

// Toggle flips the membership of key. Two consecutive toggles of the same key
// leave the registry as it was.
func (r *Registry) Toggle(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.expanded[key]; ok {
		delete(r.expanded, key)
		return
	}
	r.expanded[key] = struct{}{}
}

// IsExpanded reports whether key is currently expanded.
func (r *Registry) IsExpanded(key Key) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.expanded[key]
	return ok
}
