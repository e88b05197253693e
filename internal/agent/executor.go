package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/meera/yojana/internal/governance"
	"github.com/meera/yojana/internal/memory"
	"github.com/meera/yojana/internal/observability"
	"github.com/meera/yojana/internal/plan"
)

// StepRunner turns a rendered prompt into text for an action step. The
// executor blocks on it and writes the result back itself; runners must not
// touch the state container.
type StepRunner interface {
	Run(ctx context.Context, prompt string) (string, error)
}

const (
	// builtinTool is the only tool an action may name.
	builtinTool = "llm"

	// DefaultMaxLoopIterations caps loops that carry no positive
	// max_iterations of their own.
	DefaultMaxLoopIterations = 3

	// DefaultSnapshotLimit caps the state dump rendered into step prompts.
	DefaultSnapshotLimit = 1500

	// placeholderAnswer is used when a finish step has no summary and the
	// run has no last result to fall back on.
	placeholderAnswer = "Task completed."
)

// Executor walks a plan depth-first against a state container, strictly
// sequentially, delegating action steps to a StepRunner.
type Executor struct {
	Runner StepRunner

	// Policy, when set, screens each rendered prompt before it reaches
	// the runner.
	Policy governance.PolicyEngine

	Logger *observability.Logger
	RunID  string

	MaxLoopIterations int
	SnapshotLimit     int
}

func NewExecutor(runner StepRunner) *Executor {
	return &Executor{
		Runner:            runner,
		MaxLoopIterations: DefaultMaxLoopIterations,
		SnapshotLimit:     DefaultSnapshotLimit,
	}
}

// Execute runs one plan to completion or first error. It returns whether a
// finish step was reached; any error aborts the plan immediately with no
// partial continuation. The container's iteration counter is incremented
// exactly once per call, before any step runs.
func (e *Executor) Execute(ctx context.Context, steps []plan.Step, mem *memory.Memory) (bool, error) {
	mem.Iterations++
	return e.runSteps(ctx, steps, mem)
}

func (e *Executor) runSteps(ctx context.Context, steps []plan.Step, mem *memory.Memory) (bool, error) {
	for _, step := range steps {
		finished, err := e.runStep(ctx, step, mem)
		if err != nil {
			return false, err
		}
		// A finish anywhere below short-circuits every enclosing sequence.
		if finished {
			return true, nil
		}
	}
	return false, nil
}

func (e *Executor) runStep(ctx context.Context, step plan.Step, mem *memory.Memory) (bool, error) {
	switch s := step.(type) {
	case plan.Action:
		return e.runAction(ctx, s, mem)
	case plan.Branch:
		e.logStep(s.ID, "branch")
		if s.Condition.Eval(mem) {
			return e.runSteps(ctx, s.IfTrue, mem)
		}
		return e.runSteps(ctx, s.IfFalse, mem)
	case plan.Loop:
		return e.runLoop(ctx, s, mem)
	case plan.Finish:
		return e.runFinish(s, mem)
	default:
		return false, fmt.Errorf("agent: unknown step type %T", step)
	}
}

func (e *Executor) runAction(ctx context.Context, a plan.Action, mem *memory.Memory) (bool, error) {
	tool := strings.ToLower(strings.TrimSpace(a.Tool))
	if tool == "" {
		tool = builtinTool
	}
	if tool != builtinTool {
		return false, &UnsupportedToolError{Tool: tool, StepID: a.ID}
	}

	prompt := e.renderPrompt(a, mem)

	if e.Policy != nil {
		res, err := e.Policy.Evaluate(ctx, governance.Request{Tool: tool, Prompt: prompt, StepID: a.ID})
		if err != nil {
			return false, fmt.Errorf("agent: policy evaluation for step %q: %w", a.ID, err)
		}
		e.Logger.LogPolicyCheck(e.RunID, a.ID, string(res.Effect), res.Reason)
		if res.Effect == governance.EffectDeny {
			return false, fmt.Errorf("agent: step %q denied by policy: %s", a.ID, res.Reason)
		}
	}

	e.logStep(a.ID, "action")
	result, err := e.Runner.Run(ctx, prompt)
	if err != nil {
		return false, fmt.Errorf("agent: step %q: %w", a.ID, err)
	}

	key := strings.TrimSpace(a.SaveAs)
	if key == "" {
		key = a.ID
	}
	mem.Set(key, result)
	mem.LastResult = result
	return false, nil
}

func (e *Executor) runLoop(ctx context.Context, l plan.Loop, mem *memory.Memory) (bool, error) {
	limit := l.MaxIterations
	if limit <= 0 {
		limit = e.MaxLoopIterations
		if limit <= 0 {
			limit = DefaultMaxLoopIterations
		}
	}

	for iter := 0; iter < limit; iter++ {
		// The body may have changed the state, so the condition is
		// re-evaluated before every iteration.
		if !l.Condition.Eval(mem) {
			break
		}
		e.logStep(l.ID, "loop")
		finished, err := e.runSteps(ctx, l.Body, mem)
		if err != nil {
			return false, err
		}
		if finished {
			return true, nil
		}
	}
	return false, nil
}

func (e *Executor) runFinish(f plan.Finish, mem *memory.Memory) (bool, error) {
	answer := strings.TrimSpace(f.Summary)
	if answer == "" {
		answer = strings.TrimSpace(mem.LastResult)
	}
	if answer == "" {
		answer = placeholderAnswer
	}
	e.logStep(f.ID, "finish")
	mem.Complete(answer)
	return true, nil
}

func (e *Executor) renderPrompt(a plan.Action, mem *memory.Memory) string {
	limit := e.SnapshotLimit
	if limit <= 0 {
		limit = DefaultSnapshotLimit
	}
	return fmt.Sprintf("Step %s: %s\nGoal: %s\n\nCurrent state:\n%s\n\nTask:\n%s",
		a.ID, a.Label, mem.Goal, mem.Snapshot(limit), a.Prompt)
}

func (e *Executor) logStep(stepID, kind string) {
	e.Logger.LogStep(e.RunID, stepID, kind)
}
