// Package agent contains the plan interpreter: a tree-walking executor for
// decoded plans, the LLM-backed planner and step runner, and the cycle
// orchestrator that alternates the two until the run reaches a terminal
// state or its cycle budget runs out.
package agent

import (
	"context"
	"log"
	"strings"

	"github.com/meera/yojana/internal/memory"
	"github.com/meera/yojana/internal/observability"
	"github.com/meera/yojana/internal/plan"
	"github.com/meera/yojana/internal/store"
)

// DefaultMaxCycles bounds the plan/execute rounds of one run.
const DefaultMaxCycles = 4

// PlanExecutor runs one decoded plan against the state container.
type PlanExecutor interface {
	Execute(ctx context.Context, steps []plan.Step, mem *memory.Memory) (bool, error)
}

// Agent alternates planning and execution. Each cycle asks the planner for
// a fresh plan against the current state, runs it, and stops when a finish
// step was reached. There are no retries: any planner or executor error
// aborts the run.
type Agent struct {
	Planner  Planner
	Executor PlanExecutor

	// Checkpoints, when set together with RunID, persists the state after
	// every cycle so the run can be resumed with RunWithMemory.
	Checkpoints *store.CheckpointStore
	RunID       string

	Logger    *observability.Logger
	MaxCycles int
}

func New(planner Planner, executor PlanExecutor) *Agent {
	return &Agent{
		Planner:   planner,
		Executor:  executor,
		MaxCycles: DefaultMaxCycles,
	}
}

// Run executes a fresh run for the goal and returns the final answer.
func (a *Agent) Run(ctx context.Context, goal string) (string, error) {
	return a.RunWithMemory(ctx, memory.New(goal))
}

// RunWithMemory executes the cycle loop against a caller-supplied state,
// typically reloaded from a checkpoint; the cycle counter starts at the
// state's stored iteration count. The container is mutated in place.
func (a *Agent) RunWithMemory(ctx context.Context, mem *memory.Memory) (string, error) {
	maxCycles := a.MaxCycles
	if maxCycles <= 0 {
		maxCycles = DefaultMaxCycles
	}
	defer observability.SetStatus(observability.RoleIdle, "")

	for {
		if mem.Iterations >= maxCycles {
			return "", &CycleBudgetError{MaxCycles: maxCycles}
		}

		observability.SetStatus(observability.RolePlanning, mem.Goal)
		steps, err := a.Planner.Plan(ctx, mem.Goal, mem)
		if err != nil {
			return "", err
		}
		a.Logger.LogPlan(a.RunID, len(steps))

		observability.SetStatus(observability.RoleExecuting, mem.Goal)
		finished, err := a.Executor.Execute(ctx, steps, mem)
		if err != nil {
			return "", err
		}
		a.Logger.LogCycle(a.RunID, mem.Iterations, finished)

		a.checkpoint(mem)

		if finished {
			break
		}
	}

	// Final consistency check: completion must have produced an answer.
	if answer, ok := mem.Answer(); ok {
		return answer, nil
	}
	if last := strings.TrimSpace(mem.LastResult); last != "" {
		return last, nil
	}
	return "", ErrNoAnswer
}

func (a *Agent) checkpoint(mem *memory.Memory) {
	if a.Checkpoints == nil || a.RunID == "" {
		return
	}
	if err := a.Checkpoints.Save(a.RunID, mem); err != nil {
		log.Printf("Warning: failed to checkpoint run %s: %v", a.RunID, err)
	}
}
