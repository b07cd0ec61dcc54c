package registry

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps artifacts in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]*Artifact
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{artifacts: make(map[string]*Artifact)}
}

// Put implements Store
func (m *MemoryStore) Put(_ context.Context, a *Artifact) error {
	if err := validateArtifact(a); err != nil {
		return err
	}

	cp := *a
	m.mu.Lock()
	m.artifacts[a.ID] = &cp
	m.mu.Unlock()
	return nil
}

// Get implements Store
func (m *MemoryStore) Get(_ context.Context, id string) (*Artifact, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	m.mu.RLock()
	a, ok := m.artifacts[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	cp := *a
	return &cp, nil
}

// Delete implements Store
func (m *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	if err := ValidateID(id); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.artifacts[id]; !ok {
		return false, nil
	}
	delete(m.artifacts, id)
	return true, nil
}

// List implements Store
func (m *MemoryStore) List(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	entries := make([]Entry, 0, len(m.artifacts))
	for _, a := range m.artifacts {
		entries = append(entries, Entry{ID: a.ID, Filename: a.Filename, CreatedAt: a.CreatedAt})
	}
	m.mu.RUnlock()

	sortEntries(entries)
	return entries, nil
}

// Close implements Store
func (m *MemoryStore) Close() error { return nil }

// sortEntries orders newest first, ties by id
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}
