// Command fsmagent runs a single-task agent to completion from the command
// line: pick a provider, optionally enable built-in tools, checkpoint to a
// store, and print the trace table on exit. Grounded on cmd/omega/main.go's
// bootstrap sequence (env load, registry assembly, provider construction),
// narrowed from a long-running web server to a one-shot CLI run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pocketomega/fsmagent/internal/approval"
	"github.com/pocketomega/fsmagent/internal/builder"
	"github.com/pocketomega/fsmagent/internal/checkpoint"
	"github.com/pocketomega/fsmagent/internal/tool/builtin"
	"github.com/pocketomega/fsmagent/pkg/config"
)

func main() {
	config.LoadEnv()

	var (
		task         = flag.String("task", "", "task for the agent to accomplish (required)")
		provider     = flag.String("provider", "openai", "llm provider: openai, groq, ollama, anthropic")
		model        = flag.String("model", "", "model name override")
		maxSteps     = flag.Int("max-steps", 0, "override AgentConfig.MaxSteps (0 = default)")
		sessionId    = flag.String("session", "", "session id (random if unset)")
		resume       = flag.Bool("resume", false, "resume the latest checkpoint for -session")
		checkpointDB = flag.String("checkpoint-db", "", "path to a sqlite checkpoint store (empty disables checkpointing)")
		configFile   = flag.String("config", "", "path to a YAML AgentConfig file (empty uses defaults)")
		enableShell  = flag.Bool("tool-shell", false, "register the shell tool")
		enableHTTP   = flag.Bool("tool-http", true, "register the http_request tool")
		approveAll   = flag.Bool("auto-approve", true, "auto-approve every tool call (no human gate)")
	)
	flag.Parse()

	if *task == "" && !*resume {
		fmt.Fprintln(os.Stderr, "fsmagent: -task is required unless -resume is set")
		os.Exit(2)
	}

	fmt.Println("fsmagent — deterministic FSM agent engine")

	b := builder.New(*task)

	if *configFile != "" {
		cfg, err := config.LoadAgentConfig(*configFile)
		if err != nil {
			log.Fatalf("fsmagent: %v", err)
		}
		b.Config(cfg)
	}

	switch *provider {
	case "openai":
		b.OpenAI("")
	case "groq":
		b.Groq(os.Getenv("GROQ_API_KEY"))
	case "ollama":
		b.Ollama("")
	case "anthropic":
		b.Anthropic("")
	default:
		log.Fatalf("fsmagent: unknown -provider %q", *provider)
	}
	if *model != "" {
		b.Model(*model)
	}
	if *maxSteps > 0 {
		b.MaxSteps(*maxSteps)
	}

	if *enableShell {
		workDir, _ := os.Getwd()
		builtin.RegisterShell(b.Registry(), workDir, true)
	}
	if *enableHTTP {
		builtin.RegisterHTTPRequest(b.Registry(), false)
	}
	builtin.RegisterTime(b.Registry())

	if *approveAll {
		b.ApprovalPolicy(approval.NeverAsk())
	}

	var store *checkpoint.SQLStore
	if *checkpointDB != "" {
		s, err := checkpoint.NewSQLStore(*checkpointDB)
		if err != nil {
			log.Fatalf("fsmagent: checkpoint store: %v", err)
		}
		defer s.Close()
		store = s
		b.CheckpointStore(s)
	}

	if *sessionId != "" {
		b.SessionId(*sessionId)
	}
	if *resume {
		if store == nil {
			log.Fatalf("fsmagent: -resume requires -checkpoint-db")
		}
		if *sessionId == "" {
			log.Fatalf("fsmagent: -resume requires -session")
		}
		b.Resume(*sessionId)
	}

	eng, err := b.Build()
	if err != nil {
		log.Fatalf("fsmagent: build: %v", err)
	}

	answer, err := eng.Run(context.Background())
	if trace := eng.Memory().Trace; trace != nil {
		fmt.Println()
		fmt.Println(trace.PrintTable())
	}
	if err != nil {
		log.Fatalf("fsmagent: run failed: %v", err)
	}

	fmt.Println()
	fmt.Println("=== Final Answer ===")
	fmt.Println(answer)
}
