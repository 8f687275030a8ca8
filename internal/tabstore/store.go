// Package tabstore is the per-tab key-value store. Values live as long as the
// tab connection and are never written to disk.
package tabstore

import (
	"encoding/json"
	"fmt"
	"sync"
)

const (
	KeySessionID = "copilot.sessionId"
	KeyHealth    = "copilot.health"
)

type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) Set(key, value string) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
}

func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
}

func PutJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	s.Set(key, string(data))
	return nil
}

// GetJSON decodes the value at key into v. It reports false when the key is
// absent.
func GetJSON(s Store, key string, v any) (bool, error) {
	raw, ok := s.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}
