package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/meera/yojana/internal/memory"
	"github.com/meera/yojana/internal/plan"
)

// stubPlanner returns the same plan on every cycle.
type stubPlanner struct {
	steps []plan.Step
	err   error
	calls int
}

func (p *stubPlanner) Plan(context.Context, string, *memory.Memory) ([]plan.Step, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.steps, nil
}

// stubExecutor lets tests force executor outcomes the real executor cannot
// produce (e.g. finishing without an answer).
type stubExecutor struct {
	mutate   func(mem *memory.Memory)
	finished bool
	err      error
}

func (e *stubExecutor) Execute(_ context.Context, _ []plan.Step, mem *memory.Memory) (bool, error) {
	mem.Iterations++
	if e.mutate != nil {
		e.mutate(mem)
	}
	return e.finished, e.err
}

func TestAgent_RunCompletes(t *testing.T) {
	planner := &stubPlanner{steps: []plan.Step{
		plan.Action{ID: "a", Label: "a", Prompt: "p", SaveAs: "r"},
		plan.Finish{ID: "f", Summary: "Done"},
	}}
	runner := &scriptedRunner{responses: []string{"X"}}

	a := New(planner, NewExecutor(runner))
	answer, err := a.Run(context.Background(), "G")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "Done" {
		t.Errorf("answer = %q, want Done", answer)
	}
	if planner.calls != 1 {
		t.Errorf("planner called %d times, want 1", planner.calls)
	}
}

func TestAgent_CycleBudgetExceeded(t *testing.T) {
	// A plan that never finishes burns through the budget.
	planner := &stubPlanner{steps: []plan.Step{
		plan.Action{ID: "a", Label: "a", Prompt: "p"},
	}}
	runner := &scriptedRunner{}

	a := New(planner, NewExecutor(runner))
	_, err := a.Run(context.Background(), "G")

	var budgetErr *CycleBudgetError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("expected CycleBudgetError, got %v", err)
	}
	if budgetErr.MaxCycles != DefaultMaxCycles {
		t.Errorf("budget error reports %d, want %d", budgetErr.MaxCycles, DefaultMaxCycles)
	}
	if planner.calls != DefaultMaxCycles {
		t.Errorf("planner called %d times, want %d", planner.calls, DefaultMaxCycles)
	}
}

func TestAgent_PlanningErrorAbortsImmediately(t *testing.T) {
	planner := &stubPlanner{err: errors.New("no parseable plan")}
	runner := &scriptedRunner{}

	a := New(planner, NewExecutor(runner))
	_, err := a.Run(context.Background(), "G")
	if err == nil || err.Error() != "no parseable plan" {
		t.Fatalf("planning errors must propagate untouched, got %v", err)
	}
	if planner.calls != 1 {
		t.Errorf("no retries allowed, planner called %d times", planner.calls)
	}
	if len(runner.prompts) != 0 {
		t.Error("nothing should execute after a planning failure")
	}
}

func TestAgent_ExecutorErrorAborts(t *testing.T) {
	planner := &stubPlanner{steps: []plan.Step{
		plan.Action{ID: "a", Label: "a", Prompt: "p", Tool: "email"},
	}}
	a := New(planner, NewExecutor(&scriptedRunner{}))
	_, err := a.Run(context.Background(), "G")

	var toolErr *UnsupportedToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected UnsupportedToolError, got %v", err)
	}
	if planner.calls != 1 {
		t.Errorf("run must abort on the first cycle, planner called %d times", planner.calls)
	}
}

func TestAgent_RunWithMemoryResumesCycleCount(t *testing.T) {
	planner := &stubPlanner{steps: []plan.Step{
		plan.Action{ID: "a", Label: "a", Prompt: "p"},
	}}
	a := New(planner, NewExecutor(&scriptedRunner{}))

	// Resuming at 3 stored iterations leaves exactly one cycle in a
	// budget of 4.
	mem := memory.New("G")
	mem.Iterations = 3
	_, err := a.RunWithMemory(context.Background(), mem)

	var budgetErr *CycleBudgetError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("expected CycleBudgetError, got %v", err)
	}
	if planner.calls != 1 {
		t.Errorf("expected a single remaining cycle, planner called %d times", planner.calls)
	}
	if mem.Iterations != 4 {
		t.Errorf("iterations = %d, want 4", mem.Iterations)
	}
}

func TestAgent_RunWithMemoryAtBudgetFailsBeforePlanning(t *testing.T) {
	planner := &stubPlanner{steps: []plan.Step{plan.Finish{ID: "f", Summary: "S"}}}
	a := New(planner, NewExecutor(&scriptedRunner{}))

	mem := memory.New("G")
	mem.Iterations = DefaultMaxCycles
	_, err := a.RunWithMemory(context.Background(), mem)

	var budgetErr *CycleBudgetError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("expected CycleBudgetError, got %v", err)
	}
	if planner.calls != 0 {
		t.Error("budget is checked before planning")
	}
}

func TestAgent_NoAnswerProduced(t *testing.T) {
	// The executor reports finished but never wrote an answer or a last
	// result; the run must fail loudly rather than return a blank.
	planner := &stubPlanner{steps: []plan.Step{plan.Finish{ID: "f"}}}
	a := New(planner, &stubExecutor{finished: true})

	_, err := a.Run(context.Background(), "G")
	if !errors.Is(err, ErrNoAnswer) {
		t.Fatalf("expected ErrNoAnswer, got %v", err)
	}
}

func TestAgent_AnswerFallsBackToLastResult(t *testing.T) {
	planner := &stubPlanner{steps: []plan.Step{plan.Finish{ID: "f"}}}
	a := New(planner, &stubExecutor{
		finished: true,
		mutate:   func(mem *memory.Memory) { mem.LastResult = "tail output" },
	})

	answer, err := a.Run(context.Background(), "G")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "tail output" {
		t.Errorf("answer = %q, want the last result fallback", answer)
	}
}

func TestAgent_MultiCycleRun(t *testing.T) {
	// First cycle plans an action, second cycle finishes once the
	// variable exists.
	firstCycle := []plan.Step{plan.Action{ID: "a", Label: "a", Prompt: "p", SaveAs: "r"}}
	secondCycle := []plan.Step{plan.Branch{
		ID:        "b",
		Condition: plan.HasVariable{Key: "r"},
		IfTrue:    []plan.Step{plan.Finish{ID: "f", Summary: "done after two"}},
	}}

	calls := 0
	planner := plannerFunc(func(_ context.Context, _ string, mem *memory.Memory) ([]plan.Step, error) {
		calls++
		if mem.Has("r") {
			return secondCycle, nil
		}
		return firstCycle, nil
	})

	a := New(planner, NewExecutor(&scriptedRunner{responses: []string{"X"}}))
	answer, err := a.Run(context.Background(), "G")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "done after two" {
		t.Errorf("answer = %q", answer)
	}
	if calls != 2 {
		t.Errorf("planner called %d times, want 2", calls)
	}
}

type plannerFunc func(ctx context.Context, goal string, mem *memory.Memory) ([]plan.Step, error)

func (f plannerFunc) Plan(ctx context.Context, goal string, mem *memory.Memory) ([]plan.Step, error) {
	return f(ctx, goal, mem)
}
