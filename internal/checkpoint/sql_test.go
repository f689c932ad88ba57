package checkpoint

import (
	"path/filepath"
	"testing"
	"time"
)

func TestSQLStore_SaveAndLoadLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	store, err := NewSQLStore(path)
	if err != nil {
		t.Fatalf("NewSQLStore: %v", err)
	}
	defer store.Close()

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
	if latest.Memory == nil || latest.Memory.Task != "a task" {
		t.Errorf("restored memory = %+v, want Task %q", latest.Memory, "a task")
	}
}

func TestSQLStore_LoadLatestUnknownSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	store, err := NewSQLStore(path)
	if err != nil {
		t.Fatalf("NewSQLStore: %v", err)
	}
	defer store.Close()

	cp, err := store.LoadLatest("nope")
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if cp != nil {
		t.Errorf("LoadLatest for unknown session = %+v, want nil", cp)
	}
}

func TestSQLStore_LoadByIdAndListSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	store, err := NewSQLStore(path)
	if err != nil {
		t.Fatalf("NewSQLStore: %v", err)
	}
	defer store.Close()

	base := time.Now()
	if err := store.Save(sampleCheckpoint("b", "cp1", base)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(sampleCheckpoint("a", "cp2", base)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cp, err := store.LoadById("cp1")
	if err != nil {
		t.Fatalf("LoadById: %v", err)
	}
	if cp == nil || cp.SessionId != "b" {
		t.Fatalf("LoadById = %+v, want session b", cp)
	}

	sessions, err := store.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0] != "a" || sessions[1] != "b" {
		t.Errorf("ListSessions = %v, want [a b]", sessions)
	}
}
