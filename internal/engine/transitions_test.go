package engine

import "testing"

func TestDefaultTransitions_IdleStartsPlanning(t *testing.T) {
	table := NewTransitionTable(nil)
	to, ok := table.Lookup(StateIdle, EventStart)
	if !ok || to != StatePlanning {
		t.Errorf("Lookup(Idle, Start) = (%q, %v), want (Planning, true)", to, ok)
	}
}

func TestDefaultTransitions_UnknownEdgeNotFound(t *testing.T) {
	table := NewTransitionTable(nil)
	if _, ok := table.Lookup(StateDone, EventStart); ok {
		t.Error("Lookup(Done, Start) should not exist in the default table")
	}
}

func TestAddEdge_OverridesDefault(t *testing.T) {
	table := NewTransitionTable(nil)
	table.AddEdge(StateObserving, EventContinue, StateDone)

	to, ok := table.Lookup(StateObserving, EventContinue)
	if !ok || to != StateDone {
		t.Errorf("Lookup after AddEdge = (%q, %v), want (Done, true)", to, ok)
	}
}

func TestNewTransitionTable_OverridesWinOverDefaults(t *testing.T) {
	overrides := map[transitionKey]State{
		{StateIdle, EventStart}: StateError,
	}
	table := NewTransitionTable(overrides)

	to, ok := table.Lookup(StateIdle, EventStart)
	if !ok || to != StateError {
		t.Errorf("Lookup(Idle, Start) = (%q, %v), want (Error, true) after override", to, ok)
	}
	// Unrelated default edges remain intact.
	if to, ok := table.Lookup(StatePlanning, EventLlmFinalAnswer); !ok || to != StateDone {
		t.Errorf("Lookup(Planning, LlmFinalAnswer) = (%q, %v), want (Done, true)", to, ok)
	}
}
