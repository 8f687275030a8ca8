package tab

import "sync"

// Registry tracks the open tabs of this gateway.
type Registry struct {
	mu   sync.RWMutex
	tabs map[string]*Tab
}

func NewRegistry() *Registry {
	return &Registry{tabs: make(map[string]*Tab)}
}

func (r *Registry) Add(t *Tab) {
	r.mu.Lock()
	r.tabs[t.ID()] = t
	r.mu.Unlock()
}

// Remove forgets the tab with id. It does not close it.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.tabs, id)
	r.mu.Unlock()
}

func (r *Registry) Get(id string) (*Tab, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tabs[id]
	return t, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tabs)
}

// CloseAll closes and forgets every tab.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	tabs := r.tabs
	r.tabs = make(map[string]*Tab)
	r.mu.Unlock()

	for _, t := range tabs {
		t.Close()
	}
}
