// Package eventbus is an in-process publish/subscribe signal without payload.
// It carries "domain data changed" process-wide and "health updated" per tab.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
)

type Handler func()

type Bus struct {
	name     string
	mu       sync.RWMutex
	next     uint64
	handlers map[uint64]Handler
}

func New(name string) *Bus {
	return &Bus{
		name:     name,
		handlers: make(map[uint64]Handler),
	}
}

// Subscribe registers h and returns a function that removes it. The returned
// function may be called any number of times.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish calls every current handler on the caller's goroutine. Delivery
// order is unspecified. Handlers must not block.
func (b *Bus) Publish() {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h)
	}
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

func (b *Bus) deliver(h Handler) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(context.Background(), "event handler panicked",
				"bus", b.name,
				"panic", r)
		}
	}()
	h()
}
