package store

import (
	"strconv"
	"sync"
)

// Memory is an in-memory Store used in tests and by the demo binary when no
// database path is configured. Contents do not survive the process.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// GetString returns the value for key and whether it was present.
func (m *Memory) GetString(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// PutString stores value under key, overwriting any prior value.
func (m *Memory) PutString(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// GetBool returns the boolean for key, or def when absent or malformed.
func (m *Memory) GetBool(key string, def bool) bool {
	raw, ok := m.GetString(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

// PutBool stores a boolean under key.
func (m *Memory) PutBool(key string, value bool) {
	m.PutString(key, strconv.FormatBool(value))
}

// Remove deletes key. Removing an absent key is a no-op.
func (m *Memory) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// Len reports the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
