package agent

import (
	"errors"
	"fmt"
)

// ErrNoAnswer is returned when a plan signals completion but neither a
// final answer nor a last result exists. A run never silently drops an
// answer: it either returns one or returns a descriptive error.
var ErrNoAnswer = errors.New("agent: plan finished but no answer was produced")

// UnsupportedToolError aborts a run when an action references a tool other
// than the built-in LLM capability.
type UnsupportedToolError struct {
	Tool   string
	StepID string
}

func (e *UnsupportedToolError) Error() string {
	return fmt.Sprintf("agent: unsupported tool %q on step %q (only %q is available)", e.Tool, e.StepID, builtinTool)
}

// CycleBudgetError aborts a run that has used up its plan/execute cycles.
type CycleBudgetError struct {
	MaxCycles int
}

func (e *CycleBudgetError) Error() string {
	return fmt.Sprintf("agent: cycle budget of %d exhausted without reaching a terminal state", e.MaxCycles)
}
