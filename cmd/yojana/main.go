package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/meera/yojana/internal/agent"
	"github.com/meera/yojana/internal/governance"
	"github.com/meera/yojana/internal/memory"
	"github.com/meera/yojana/internal/observability"
	"github.com/meera/yojana/internal/store"
	"github.com/meera/yojana/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	goal := flag.String("goal", "", "goal to run")
	resume := flag.String("resume", "", "run id of a checkpoint to resume")
	list := flag.Bool("list", false, "list stored checkpoints and exit")
	flag.Parse()

	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	cfg := config.LoadConfig(*configPath)

	checkpoints, err := store.NewCheckpointStore(cfg.Memory.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer checkpoints.Close()

	if *list {
		listCheckpoints(checkpoints)
		observability.CleanupTerminal()
		return
	}

	if *goal == "" && *resume == "" {
		log.Fatal("either -goal or -resume is required")
	}

	// Initialize LLM (using default enabled provider)
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}

	var llm llms.Model
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		log.Fatalf("Provider %s not yet implemented in main", pName)
	}
	if err != nil {
		log.Fatal(err)
	}

	logger := observability.NewLogger()
	prompts := agent.NewPromptManager(cfg.App.PromptsDir)

	gov := governance.NewDefaultPolicyEngine()
	for _, pattern := range cfg.Governance.DenyPrompts {
		if err := gov.DenyPrompt(pattern); err != nil {
			log.Fatalf("invalid governance pattern %q: %v", pattern, err)
		}
	}

	runID := *resume
	var mem *memory.Memory
	if *resume != "" {
		mem, err = checkpoints.Load(*resume)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		runID = store.NewRunID()
		mem = memory.New(*goal)
	}

	runner := agent.NewLLMRunner(llm, prompts)
	runner.Logger = logger
	runner.RunID = runID

	executor := agent.NewExecutor(runner)
	executor.Policy = gov
	executor.Logger = logger
	executor.RunID = runID
	executor.MaxLoopIterations = cfg.Agent.MaxLoopIterations
	executor.SnapshotLimit = cfg.Agent.SnapshotLimit

	planner := agent.NewLLMPlanner(llm, prompts)
	planner.Logger = logger
	planner.RunID = runID
	planner.SnapshotLimit = cfg.Agent.SnapshotLimit

	a := agent.New(planner, executor)
	a.Checkpoints = checkpoints
	a.RunID = runID
	a.Logger = logger
	a.MaxCycles = cfg.Agent.MaxCycles

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Live status line (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				observability.PrintLiveStatus()
			}
		}
	}()

	answer, runErr := a.RunWithMemory(ctx, mem)

	observability.CleanupTerminal()

	if runErr != nil {
		var budget *agent.CycleBudgetError
		if errors.As(runErr, &budget) {
			// State is checkpointed; the run can pick up where it stopped.
			log.Printf("%v", runErr)
			log.Fatalf("run paused after %d cycles; resume with -resume %s", mem.Iterations, runID)
		}
		log.Fatal(runErr)
	}

	fmt.Println(answer)

	// A completed run no longer needs its checkpoint.
	if err := checkpoints.Delete(runID); err != nil {
		log.Printf("Warning: failed to delete checkpoint %s: %v", runID, err)
	}
}

func listCheckpoints(checkpoints *store.CheckpointStore) {
	infos, err := checkpoints.List()
	if err != nil {
		log.Fatal(err)
	}
	if len(infos) == 0 {
		fmt.Println("no checkpoints")
		return
	}
	for _, info := range infos {
		fmt.Printf("%s  [%s, %d cycles, %s]  %s\n",
			info.RunID, info.Status, info.Iterations, info.UpdatedAt, info.Goal)
	}
}
