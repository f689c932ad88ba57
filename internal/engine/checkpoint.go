package engine

import "time"

// Checkpoint is a point-in-time snapshot of a session: spec §4.12.
type Checkpoint struct {
	CheckpointId string       `json:"checkpoint_id"`
	SessionId    string       `json:"session_id"`
	State        State        `json:"state"`
	Memory       *AgentMemory `json:"memory"`
	Timestamp    time.Time    `json:"timestamp"`
}

// CheckpointStore is the contract of spec §4.12. Three canonical backends
// (in-memory, file-per-session, relational) live in internal/checkpoint and
// all honor this interface.
type CheckpointStore interface {
	Save(cp Checkpoint) error
	LoadLatest(sessionId string) (*Checkpoint, error)
	LoadById(checkpointId string) (*Checkpoint, error)
	ListSessions() ([]string, error)
}
