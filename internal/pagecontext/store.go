// Package pagecontext holds the page context currently active in a tab.
package pagecontext

import (
	"sync"

	"hims.app/advisor/internal/model"
)

// Store is a single last-writer-wins slot.
type Store struct {
	mu      sync.RWMutex
	current *model.PageContext
}

func New() *Store {
	return &Store{}
}

// Set replaces the active context. A nil context clears the slot.
func (s *Store) Set(ctx *model.PageContext) {
	c := ctx.Clone()
	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
}

// Get returns a copy of the active context, or nil.
func (s *Store) Get() *model.PageContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Register makes ctx active and returns its release. Release clears the slot
// unconditionally, so a page registered later must set its context again;
// calling release more than once has no further effect.
func (s *Store) Register(ctx *model.PageContext) func() {
	s.Set(ctx)
	var once sync.Once
	return func() {
		once.Do(func() { s.Set(nil) })
	}
}
