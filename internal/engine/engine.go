package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

const noAnswerSentinel = "[No answer produced]"

// traceData extracts a short human-readable context string for the trace
// entry recorded after a handler invocation: the first one set of the
// error, the current tool call's name, the last observation, or the final
// answer, checked in that order.
func traceData(m *AgentMemory) string {
	if m.Error != nil {
		return *m.Error
	}
	if m.CurrentToolCall != nil {
		return m.CurrentToolCall.Name
	}
	if m.LastObservation != nil {
		return *m.LastObservation
	}
	if m.FinalAnswer != nil {
		return *m.FinalAnswer
	}
	return ""
}

// Engine owns the running state machine: memory, tools, the LLM caller, the
// transition table, the handler set, and (optionally) a checkpoint store.
// Per spec §4.2.
type Engine struct {
	memory          *AgentMemory
	tools           ToolExecutor
	llm             LlmCaller
	transitions     *TransitionTable
	handlers        map[State]Handler
	terminalStates  map[State]bool
	state           State
	sessionId       string
	checkpointStore CheckpointStore
}

// New constructs an Engine in state Idle. terminalStates always includes
// Done and Error in addition to whatever extras the caller names.
func New(memory *AgentMemory, tools ToolExecutor, llm LlmCaller, transitions *TransitionTable, handlers map[State]Handler, extraTerminal []State, checkpointStore CheckpointStore) *Engine {
	terminal := map[State]bool{StateDone: true, StateError: true}
	for _, s := range extraTerminal {
		terminal[s] = true
	}
	return &Engine{
		memory:          memory,
		tools:           tools,
		llm:             llm,
		transitions:     transitions,
		handlers:        handlers,
		terminalStates:  terminal,
		state:           StateIdle,
		sessionId:       memory.SessionId,
		checkpointStore: checkpointStore,
	}
}

// State returns the engine's current state.
func (e *Engine) State() State { return e.state }

// SetState forces the engine's current state, used by AgentBuilder.Resume to
// restore a checkpointed state before the first Run.
func (e *Engine) SetState(s State) { e.state = s }

// Memory exposes the live memory pointer, e.g. for builder-side inspection
// after a Run. Callers must not mutate it concurrently with a running Run.
func (e *Engine) Memory() *AgentMemory { return e.memory }

// Run drives the loop to a terminal state and returns the final answer, or
// a structured failure. Per spec §4.2.
func (e *Engine) Run(ctx context.Context) (string, error) {
	return e.run(ctx, nil)
}

// RunStreaming behaves like Run but also drains AgentOutput values to sink
// after every step.
func (e *Engine) RunStreaming(ctx context.Context, sink OutputSink) (string, error) {
	return e.run(ctx, sink)
}

func (e *Engine) run(ctx context.Context, sink OutputSink) (string, error) {
	safetyCap := 3 * e.memory.Config.MaxSteps
	iterations := 0

	for !e.terminalStates[e.state] {
		if iterations >= safetyCap {
			return "", &SafetyCapExceededError{Iterations: iterations}
		}
		iterations++

		if err := e.step(ctx, sink); err != nil {
			return "", err
		}
	}

	// A terminal state's handler runs once, to log the outcome and emit the
	// final output; the event it returns is not looked up.
	if h, ok := e.handlers[e.state]; ok {
		h.Handle(ctx, e.memory, e.tools, e.llm, sink)
	}

	switch e.state {
	case StateDone:
		if e.memory.FinalAnswer != nil {
			return *e.memory.FinalAnswer, nil
		}
		return noAnswerSentinel, nil
	case StateError:
		msg := "unknown error"
		if e.memory.Error != nil {
			msg = *e.memory.Error
		}
		return "", &AgentFailedError{Message: msg}
	default:
		if e.memory.FinalAnswer != nil {
			return *e.memory.FinalAnswer, nil
		}
		return fmt.Sprintf("[Terminated in custom state %q with no answer]", e.state), nil
	}
}

// step executes one handler invocation and applies its transition. Per
// spec §4.2.
func (e *Engine) step(ctx context.Context, sink OutputSink) error {
	handler, ok := e.handlers[e.state]
	if !ok {
		return &NoHandlerForStateError{State: e.state}
	}

	if sink != nil {
		sink.Send(AgentOutput{Kind: OutputStateStarted, State: e.state})
	}

	event := handler.Handle(ctx, e.memory, e.tools, e.llm, sink)
	if e.memory.Trace != nil {
		e.memory.Trace.Record(e.memory.Step, e.state, event, traceData(e.memory), time.Now())
	}

	next, ok := e.transitions.Lookup(e.state, event)
	if !ok {
		return &InvalidTransitionError{From: e.state, Event: event}
	}

	if sink != nil {
		sink.Send(AgentOutput{Kind: OutputAction, State: e.state, Message: string(event)})
	}

	if e.checkpointStore != nil {
		cp := Checkpoint{
			CheckpointId: uuid.NewString(),
			SessionId:    e.sessionId,
			State:        next,
			Memory:       e.memory.Clone(),
			Timestamp:    time.Now(),
		}
		if err := e.checkpointStore.Save(cp); err != nil {
			return &BuildError{Message: "checkpoint save failed", Cause: err}
		}
	}

	log.Printf("[engine] %s -(%s)-> %s", e.state, event, next)
	e.state = next
	return nil
}
