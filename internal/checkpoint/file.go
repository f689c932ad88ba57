package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pocketomega/fsmagent/internal/engine"
)

// FileStore persists each session as `<dir>/<sessionId>.json`, a JSON array
// of checkpoints in append order (which coincides with timestamp order), per
// spec §6. Grounded on the original implementation's FileCheckpointStore.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates dir (if absent) and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("checkpoint: create dir %q: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) sessionPath(sessionId string) string {
	return filepath.Join(s.dir, sessionId+".json")
}

func (s *FileStore) readSession(sessionId string) ([]engine.Checkpoint, error) {
	data, err := os.ReadFile(s.sessionPath(sessionId))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read session %q: %w", sessionId, err)
	}
	var list []engine.Checkpoint
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("checkpoint: parse session %q: %w", sessionId, err)
	}
	return list, nil
}

func (s *FileStore) writeSession(sessionId string, list []engine.Checkpoint) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal session %q: %w", sessionId, err)
	}
	if err := os.WriteFile(s.sessionPath(sessionId), data, 0o644); err != nil {
		return fmt.Errorf("checkpoint: write session %q: %w", sessionId, err)
	}
	return nil
}

// Save performs a read-modify-write append of cp onto its session's file.
func (s *FileStore) Save(cp engine.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.readSession(cp.SessionId)
	if err != nil {
		return err
	}
	list = append(list, cp)
	return s.writeSession(cp.SessionId, list)
}

// LoadLatest returns the last entry of the session's file (append order).
func (s *FileStore) LoadLatest(sessionId string) (*engine.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.readSession(sessionId)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	cp := list[len(list)-1]
	return &cp, nil
}

// LoadById scans every session file in dir for a matching checkpoint id.
// The original implementation notes this is inefficient for a file-backed
// store but satisfies the contract; unchanged here.
func (s *FileStore) LoadById(checkpointId string) (*engine.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: list dir %q: %w", s.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		sessionId := strings.TrimSuffix(e.Name(), ".json")
		list, err := s.readSession(sessionId)
		if err != nil {
			return nil, err
		}
		for _, cp := range list {
			if cp.CheckpointId == checkpointId {
				found := cp
				return &found, nil
			}
		}
	}
	return nil, nil
}

// ListSessions returns every session id with a file in dir, sorted.
func (s *FileStore) ListSessions() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: list dir %q: %w", s.dir, err)
	}
	var sessions []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(sessions)
	return sessions, nil
}

var _ engine.CheckpointStore = (*FileStore)(nil)
