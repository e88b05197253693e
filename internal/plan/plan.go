// Package plan defines the step tree produced by the planner and its JSON
// decoding. A plan is an ordered sequence of steps; branch and loop bodies
// are themselves step sequences, so a plan is a tree. Plans are immutable
// values: the executor walks them but never modifies them.
package plan

// Step is one node of the plan tree: Action, Branch, Loop or Finish.
type Step interface {
	// StepID returns the caller-supplied id of the step. Uniqueness across
	// the plan is not enforced.
	StepID() string

	isStep()
}

// Action asks the step runner to perform one unit of work. Tool defaults to
// "llm" when empty; the result is stored under SaveAs (or ID when SaveAs is
// blank) and becomes the run's last result.
type Action struct {
	ID     string
	Label  string
	Tool   string
	Prompt string
	SaveAs string
}

// Branch evaluates its condition against the current state and runs exactly
// one of its two bodies.
type Branch struct {
	ID        string
	Condition Condition
	IfTrue    []Step
	IfFalse   []Step
}

// Loop runs its body while its condition holds, bounded by MaxIterations
// (non-positive means "use the executor's default cap").
type Loop struct {
	ID            string
	Condition     Condition
	Body          []Step
	MaxIterations int
}

// Finish terminates the whole plan, marking the run completed.
type Finish struct {
	ID      string
	Summary string
}

func (a Action) StepID() string { return a.ID }
func (b Branch) StepID() string { return b.ID }
func (l Loop) StepID() string   { return l.ID }
func (f Finish) StepID() string { return f.ID }

func (Action) isStep() {}
func (Branch) isStep() {}
func (Loop) isStep()   {}
func (Finish) isStep() {}
