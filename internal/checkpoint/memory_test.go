package checkpoint

import (
	"testing"
	"time"

	"github.com/pocketomega/fsmagent/internal/engine"
)

func sampleCheckpoint(sessionId, checkpointId string, ts time.Time) engine.Checkpoint {
	return engine.Checkpoint{
		CheckpointId: checkpointId,
		SessionId:    sessionId,
		State:        engine.StatePlanning,
		Memory:       engine.NewAgentMemory(sessionId, "a task", engine.DefaultAgentConfig()),
		Timestamp:    ts,
	}
}

func TestMemoryStore_SaveAndLoadLatest(t *testing.T) {
	store := NewMemoryStore()
	base := time.Now()

	if err := store.Save(sampleCheckpoint("s1", "cp1", base)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(sampleCheckpoint("s1", "cp2", base.Add(time.Second))); err != nil {
		t.Fatalf("Save: %v", err)
	}

	latest, err := store.LoadLatest("s1")
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if latest == nil || latest.CheckpointId != "cp2" {
		t.Fatalf("LoadLatest = %+v, want checkpoint cp2", latest)
	}
}

func TestMemoryStore_LoadLatestUnknownSession(t *testing.T) {
	store := NewMemoryStore()
	cp, err := store.LoadLatest("nope")
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if cp != nil {
		t.Errorf("LoadLatest for unknown session = %+v, want nil", cp)
	}
}

func TestMemoryStore_LoadById(t *testing.T) {
	store := NewMemoryStore()
	base := time.Now()
	_ = store.Save(sampleCheckpoint("s1", "cp1", base))

	cp, err := store.LoadById("cp1")
	if err != nil {
		t.Fatalf("LoadById: %v", err)
	}
	if cp == nil || cp.SessionId != "s1" {
		t.Fatalf("LoadById = %+v, want session s1", cp)
	}

	cp, err = store.LoadById("missing")
	if err != nil {
		t.Fatalf("LoadById: %v", err)
	}
	if cp != nil {
		t.Errorf("LoadById for unknown id = %+v, want nil", cp)
	}
}

func TestMemoryStore_ListSessions(t *testing.T) {
	store := NewMemoryStore()
	base := time.Now()
	_ = store.Save(sampleCheckpoint("b", "cp1", base))
	_ = store.Save(sampleCheckpoint("a", "cp2", base))

	sessions, err := store.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0] != "a" || sessions[1] != "b" {
		t.Errorf("ListSessions = %v, want [a b]", sessions)
	}
}
