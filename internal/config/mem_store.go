package config

import "sync"

// MemStore is an in-memory Store for tests that never writes to disk.
type MemStore struct {
	mu    sync.Mutex
	cfg   *Config
	saves int
}

// NewMemStore returns an empty in-memory store (Load yields Default()).
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Load returns a copy of the stored config, or Default() if none has been saved yet.
func (m *MemStore) Load() (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		def := Default()
		return &def, nil
	}
	cp := *m.cfg
	return &cp, nil
}

// Save stores a copy of cfg in memory.
func (m *MemStore) Save(cfg *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cfg
	m.cfg = &cp
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *MemStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Path returns ":memory:" to indicate this is an in-memory store.
func (m *MemStore) Path() string { return ":memory:" }

// Flush is a no-op for in-memory stores.
func (m *MemStore) Flush() error { return nil }

var _ Store = (*MemStore)(nil)
