package checkpoint

import (
	"testing"
	"time"
)

func TestFileStore_SaveAndLoadLatest(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

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

func TestFileStore_LoadLatestUnknownSession(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cp, err := store.LoadLatest("nope")
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if cp != nil {
		t.Errorf("LoadLatest for unknown session = %+v, want nil", cp)
	}
}

func TestFileStore_LoadByIdAndListSessions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	base := time.Now()
	_ = store.Save(sampleCheckpoint("b", "cp1", base))
	_ = store.Save(sampleCheckpoint("a", "cp2", base))

	cp, err := store.LoadById("cp2")
	if err != nil {
		t.Fatalf("LoadById: %v", err)
	}
	if cp == nil || cp.SessionId != "a" {
		t.Fatalf("LoadById = %+v, want session a", cp)
	}

	sessions, err := store.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0] != "a" || sessions[1] != "b" {
		t.Errorf("ListSessions = %v, want [a b]", sessions)
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	store1, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store1.Save(sampleCheckpoint("s1", "cp1", time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}

	store2, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cp, err := store2.LoadLatest("s1")
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if cp == nil || cp.CheckpointId != "cp1" {
		t.Fatalf("LoadLatest from a fresh FileStore instance = %+v, want checkpoint cp1", cp)
	}
}
