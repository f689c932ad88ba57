package engine

import "fmt"

// AgentFailedError wraps the terminal Error state's memory.error message.
type AgentFailedError struct {
	Message string
}

func (e *AgentFailedError) Error() string {
	return fmt.Sprintf("agent failed: %s", e.Message)
}

// InvalidTransitionError means the transition table has no edge for the
// (state, event) pair a handler just produced.
type InvalidTransitionError struct {
	From  State
	Event Event
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: no edge from %q on event %q", e.From, e.Event)
}

// NoHandlerForStateError means the handler map has no entry for a
// non-terminal state.
type NoHandlerForStateError struct {
	State State
}

func (e *NoHandlerForStateError) Error() string {
	return fmt.Sprintf("no handler registered for state %q", e.State)
}

// SafetyCapExceededError means the loop ran 3*maxSteps iterations without
// reaching a terminal state, independent of the MaxSteps event.
type SafetyCapExceededError struct {
	Iterations int
}

func (e *SafetyCapExceededError) Error() string {
	return fmt.Sprintf("safety cap exceeded after %d iterations", e.Iterations)
}

// BuildError is raised for construction-time failures: a missing LLM caller,
// a bad resume target, or a checkpoint load/save failure.
type BuildError struct {
	Message string
	Cause   error
}

func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("build error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("build error: %s", e.Message)
}

func (e *BuildError) Unwrap() error { return e.Cause }
