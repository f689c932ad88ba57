package engine

// transitionKey identifies one edge of the transition table.
type transitionKey struct {
	From  State
	Event Event
}

// TransitionTable is the static (state, event) -> state map of spec §4.1,
// built once at engine construction. User-supplied edges are merged after
// the defaults and override identical keys.
type TransitionTable struct {
	edges map[transitionKey]State
}

// DefaultTransitions returns the built-in edge set named in spec §4.1.
func DefaultTransitions() map[transitionKey]State {
	return map[transitionKey]State{
		{StateIdle, EventStart}: StatePlanning,

		{StatePlanning, EventLlmToolCall}:          StateActing,
		{StatePlanning, EventLlmParallelToolCalls}: StateParallelActing,
		{StatePlanning, EventLlmFinalAnswer}:       StateDone,
		{StatePlanning, EventMaxSteps}:             StateError,
		{StatePlanning, EventLowConfidence}:        StateReflecting,
		{StatePlanning, EventAnswerTooShort}:       StatePlanning,
		{StatePlanning, EventToolBlacklisted}:      StatePlanning,
		{StatePlanning, EventFatalError}:           StateError,
		{StatePlanning, EventHumanApprovalRequired}: StateWaitingForHuman,

		{StateActing, EventToolSuccess}: StateObserving,
		{StateActing, EventToolFailure}: StateObserving,
		{StateActing, EventFatalError}:  StateError,

		{StateParallelActing, EventToolSuccess}: StateObserving,
		{StateParallelActing, EventToolFailure}: StateObserving,

		{StateObserving, EventContinue}:        StatePlanning,
		{StateObserving, EventNeedsReflection}: StateReflecting,

		{StateReflecting, EventReflectDone}: StatePlanning,

		{StateWaitingForHuman, EventHumanApproved}: StateActing,
		{StateWaitingForHuman, EventHumanRejected}: StateObserving,
		{StateWaitingForHuman, EventHumanModified}: StateActing,
		{StateWaitingForHuman, EventFatalError}:    StateError,
	}
}

// NewTransitionTable builds the default table merged with user overrides;
// overrides win on identical (from, event) keys.
func NewTransitionTable(overrides map[transitionKey]State) *TransitionTable {
	edges := DefaultTransitions()
	for k, v := range overrides {
		edges[k] = v
	}
	return &TransitionTable{edges: edges}
}

// AddEdge inserts or overrides a single (from, event) -> to edge. Exported
// via the builder as a keyed triple rather than the unexported
// transitionKey type.
func (t *TransitionTable) AddEdge(from State, event Event, to State) {
	t.edges[transitionKey{from, event}] = to
}

// Lookup returns the next state for (from, event), or false if no edge
// exists.
func (t *TransitionTable) Lookup(from State, event Event) (State, bool) {
	to, ok := t.edges[transitionKey{from, event}]
	return to, ok
}
