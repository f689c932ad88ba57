package handlers

import "github.com/pocketomega/fsmagent/internal/engine"

// Default returns the built-in handler set, keyed by state name, suitable
// as a starting point for AgentBuilder.State overrides.
func Default() map[engine.State]engine.Handler {
	return map[engine.State]engine.Handler{
		engine.StateIdle:            Idle{},
		engine.StatePlanning:        Planning{},
		engine.StateActing:          Acting{},
		engine.StateParallelActing:  ParallelActing{},
		engine.StateObserving:       Observing{},
		engine.StateReflecting:      Reflecting{},
		engine.StateDone:            Done{},
		engine.StateError:           Error{},
		engine.StateWaitingForHuman: WaitingForHuman{},
	}
}
