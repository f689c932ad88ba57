// Package checkpoint implements the three canonical CheckpointStore backends
// named in spec §4.12/§6: in-memory, file-per-session JSON, and a relational
// single-table store. All three satisfy engine.CheckpointStore.
package checkpoint

import (
	"sort"
	"sync"

	"github.com/pocketomega/fsmagent/internal/engine"
)

// MemoryStore is a session->checkpoints map guarded by a mutex, grounded on
// the original implementation's MemoryCheckpointStore. Suitable for tests and
// short-lived sessions; state is lost on process exit.
type MemoryStore struct {
	mu    sync.Mutex
	store map[string][]engine.Checkpoint
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{store: make(map[string][]engine.Checkpoint)}
}

// Save appends cp to its session's list.
func (s *MemoryStore) Save(cp engine.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[cp.SessionId] = append(s.store[cp.SessionId], cp)
	return nil
}

// LoadLatest returns the highest-timestamp checkpoint for sessionId, or nil
// if the session has none.
func (s *MemoryStore) LoadLatest(sessionId string) (*engine.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.store[sessionId]
	if len(list) == 0 {
		return nil, nil
	}
	latest := list[0]
	for _, cp := range list[1:] {
		if cp.Timestamp.After(latest.Timestamp) {
			latest = cp
		}
	}
	return &latest, nil
}

// LoadById scans every session's list for a matching checkpoint id.
func (s *MemoryStore) LoadById(checkpointId string) (*engine.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range s.store {
		for _, cp := range list {
			if cp.CheckpointId == checkpointId {
				found := cp
				return &found, nil
			}
		}
	}
	return nil, nil
}

// ListSessions returns every session id with at least one checkpoint,
// sorted for deterministic output.
func (s *MemoryStore) ListSessions() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions := make([]string, 0, len(s.store))
	for id := range s.store {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}

var _ engine.CheckpointStore = (*MemoryStore)(nil)
