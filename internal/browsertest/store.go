package browsertest

import (
	"context"
	"sync"

	"tabspaces/internal/domain"
	"tabspaces/internal/ports"
)

// FakeStore is an in-memory ports.StatePort
type FakeStore struct {
	mu      sync.Mutex
	state   domain.ExtensionState
	records map[string][]byte

	// SaveCount counts SaveRecord calls, keyed by record key
	SaveCount map[string]int
}

var _ ports.StatePort = (*FakeStore)(nil)

// NewStore creates an empty fake store
func NewStore() *FakeStore {
	return &FakeStore{
		records:   make(map[string][]byte),
		SaveCount: make(map[string]int),
	}
}

// GetState implements ports.StateReader
func (s *FakeStore) GetState(ctx context.Context) (domain.ExtensionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), nil
}

// SetState implements ports.StateWriter
func (s *FakeStore) SetState(ctx context.Context, patch ports.StatePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if patch.Workspaces != nil {
		workspaces := make([]domain.Workspace, len(*patch.Workspaces))
		copy(workspaces, *patch.Workspaces)
		s.state.Workspaces = workspaces
	}
	if patch.ActiveWorkspaceID != nil {
		s.state.ActiveWorkspaceID = *patch.ActiveWorkspaceID
	}
	return nil
}

// LoadRecord implements ports.RecordStore
func (s *FakeStore) LoadRecord(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return cp, nil
}

// SaveRecord implements ports.RecordStore
func (s *FakeStore) SaveRecord(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.records[key] = cp
	s.SaveCount[key]++
	return nil
}

// Close implements ports.StatePort
func (s *FakeStore) Close() error { return nil }

// Saves returns how many times key was persisted
func (s *FakeStore) Saves(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.SaveCount[key]
}
