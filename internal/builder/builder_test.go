package builder

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pocketomega/fsmagent/internal/checkpoint"
	"github.com/pocketomega/fsmagent/internal/engine"
	"github.com/pocketomega/fsmagent/internal/llmcaller"
)

func TestBuild_RequiresLlmCaller(t *testing.T) {
	_, err := New("do something").Build()
	if err == nil {
		t.Fatal("Build should fail without an LLM caller")
	}
	buildErr, ok := err.(*engine.BuildError)
	if !ok {
		t.Fatalf("error type = %T, want *engine.BuildError", err)
	}
	if buildErr.Message != "LLM caller is required" {
		t.Errorf("message = %q, want %q", buildErr.Message, "LLM caller is required")
	}
}

func TestBuild_RunsASimpleAgent(t *testing.T) {
	mock := llmcaller.NewMockCaller([]engine.LlmResponse{
		{Kind: engine.ResponseFinalAnswer, Content: "done"},
	})

	eng, err := New("say hello").LLM(mock).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	answer, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if answer != "done" {
		t.Errorf("answer = %q, want %q", answer, "done")
	}
}

func TestBuild_RegisteredToolIsReachable(t *testing.T) {
	mock := llmcaller.NewMockCaller([]engine.LlmResponse{
		{Kind: engine.ResponseToolCall, Tool: engine.ToolCall{Name: "echo", Args: json.RawMessage(`{}`)}, Confidence: 1.0},
		{Kind: engine.ResponseFinalAnswer, Content: "done"},
	})

	called := false
	eng, err := New("use the tool").LLM(mock).
		Tool("echo", "echoes", nil, func(context.Context, json.RawMessage) (string, error) {
			called = true
			return "echoed", nil
		}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !called {
		t.Error("registered tool should have been invoked")
	}
}

func TestBuild_BlacklistedToolIsEnforced(t *testing.T) {
	mock := llmcaller.NewMockCaller([]engine.LlmResponse{
		{Kind: engine.ResponseToolCall, Tool: engine.ToolCall{Name: "forbidden"}, Confidence: 1.0},
		{Kind: engine.ResponseFinalAnswer, Content: "done without it"},
	})

	eng, err := New("avoid forbidden").LLM(mock).BlacklistTool("forbidden").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	answer, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if answer != "done without it" {
		t.Errorf("answer = %q, want %q", answer, "done without it")
	}
}

func TestBuild_CustomMaxSteps(t *testing.T) {
	mock := llmcaller.NewMockCaller([]engine.LlmResponse{
		{Kind: engine.ResponseToolCall, Tool: engine.ToolCall{Name: "dummy"}, Confidence: 1.0},
	})

	eng, err := New("loop").LLM(mock).MaxSteps(1).
		Tool("dummy", "", nil, func(context.Context, json.RawMessage) (string, error) { return "ok", nil }).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if eng.Memory().Config.MaxSteps != 1 {
		t.Errorf("MaxSteps = %d, want 1", eng.Memory().Config.MaxSteps)
	}
}

func TestBuild_ConfigThenMaxStepsAppliesInCallOrder(t *testing.T) {
	mock := llmcaller.NewMockCaller([]engine.LlmResponse{
		{Kind: engine.ResponseFinalAnswer, Content: "done"},
	})

	custom := engine.DefaultAgentConfig()
	custom.MaxSteps = 99
	eng, err := New("task").LLM(mock).Config(custom).MaxSteps(7).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if eng.Memory().Config.MaxSteps != 7 {
		t.Errorf("MaxSteps = %d, want 7 (a later MaxSteps call should win over an earlier Config)", eng.Memory().Config.MaxSteps)
	}
	if eng.Memory().Config.ConfidenceThreshold != custom.ConfidenceThreshold {
		t.Errorf("ConfidenceThreshold = %v, want the value supplied via Config", eng.Memory().Config.ConfidenceThreshold)
	}
}

func TestBuilder_ResumeRestoresStateFromCheckpoint(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	mem := engine.NewAgentMemory("s1", "resumed task", engine.DefaultAgentConfig())
	mem.Step = 2
	cp := engine.Checkpoint{
		CheckpointId: "cp1",
		SessionId:    "s1",
		State:        engine.StateObserving,
		Memory:       mem,
	}
	if err := store.Save(cp); err != nil {
		t.Fatalf("Save: %v", err)
	}

	mock := llmcaller.NewMockCaller([]engine.LlmResponse{
		{Kind: engine.ResponseFinalAnswer, Content: "resumed and done"},
	})

	eng, err := New("ignored, overwritten by resume").LLM(mock).
		CheckpointStore(store).Resume("s1").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if eng.State() != engine.StateObserving {
		t.Errorf("resumed state = %q, want Observing", eng.State())
	}
	if eng.Memory().Task != "resumed task" {
		t.Errorf("resumed task = %q, want %q", eng.Memory().Task, "resumed task")
	}
}

func TestBuilder_ResumeWithoutCheckpointStoreFails(t *testing.T) {
	_, err := New("task").Resume("s1").Build()
	if err == nil {
		t.Fatal("Resume without a checkpoint store should surface an error at Build")
	}
}

func TestBuilder_AsToolDelegatesToSubAgent(t *testing.T) {
	subMock := llmcaller.NewMockCaller([]engine.LlmResponse{
		{Kind: engine.ResponseFinalAnswer, Content: "sub-agent answer"},
	})
	sub := New("placeholder").LLM(subMock)

	parentMock := llmcaller.NewMockCaller([]engine.LlmResponse{
		{Kind: engine.ResponseToolCall, Tool: engine.ToolCall{Name: "helper", Args: json.RawMessage(`{"task":"delegate this"}`)}, Confidence: 1.0},
		{Kind: engine.ResponseFinalAnswer, Content: "parent done"},
	})
	parent := New("top-level task").LLM(parentMock).AddSubAgent("helper", "delegates work", sub)

	eng, err := parent.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	answer, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if answer != "parent done" {
		t.Errorf("answer = %q, want %q", answer, "parent done")
	}
	if len(eng.Memory().History) != 1 || !eng.Memory().History[0].Success {
		t.Errorf("history = %+v, want one successful sub-agent entry", eng.Memory().History)
	}
}
