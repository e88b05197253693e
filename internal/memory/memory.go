package memory

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FinalAnswerKey is the variable that mirrors the completed answer.
const FinalAnswerKey = "final_answer"

// StatusKind identifies the lifecycle state of a run.
type StatusKind string

const (
	StatusInProgress StatusKind = "in_progress"
	StatusCompleted  StatusKind = "completed"
	StatusFailed     StatusKind = "failed"
)

// Status is the run outcome. Answer is set for completed, Reason for failed.
type Status struct {
	Kind   StatusKind
	Answer string
	Reason string
}

// Memory is the mutable state container for a single run: the goal, the
// variables written by executed steps, the most recent step output and the
// number of executor passes so far. One executor owns one Memory at a time;
// no locking is needed.
type Memory struct {
	Goal       string
	Variables  map[string]any
	Status     Status
	LastResult string
	Iterations int
}

// New returns an empty in-progress Memory for the given goal.
func New(goal string) *Memory {
	return &Memory{
		Goal:      goal,
		Variables: make(map[string]any),
		Status:    Status{Kind: StatusInProgress},
	}
}

// Set stores a variable. Last write wins.
func (m *Memory) Set(key string, value any) {
	if m.Variables == nil {
		m.Variables = make(map[string]any)
	}
	m.Variables[key] = value
}

// Get returns a variable and whether it is present.
func (m *Memory) Get(key string) (any, bool) {
	v, ok := m.Variables[key]
	return v, ok
}

// Has reports whether a variable is present.
func (m *Memory) Has(key string) bool {
	_, ok := m.Variables[key]
	return ok
}

// Complete marks the run completed. The answer, variables[final_answer] and
// the last result are written together so they can never disagree.
func (m *Memory) Complete(answer string) {
	m.Status = Status{Kind: StatusCompleted, Answer: answer}
	m.Set(FinalAnswerKey, answer)
	m.LastResult = answer
}

// Fail marks the run failed with a reason.
func (m *Memory) Fail(reason string) {
	m.Status = Status{Kind: StatusFailed, Reason: reason}
}

// Answer returns the final answer if one exists: the completed status answer,
// or a pre-seeded variables[final_answer] for runs that never routed through
// Complete.
func (m *Memory) Answer() (string, bool) {
	if m.Status.Kind == StatusCompleted {
		return m.Status.Answer, true
	}
	if v, ok := m.Variables[FinalAnswerKey]; ok {
		return CanonicalText(v), true
	}
	return "", false
}

// CanonicalText renders a variable value as text: strings verbatim, anything
// else as its compact JSON serialization. Condition matching and the answer
// fallback both rely on this exact formatting.
func CanonicalText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// Snapshot renders a human-readable dump of the container for inclusion in a
// prompt, tail-truncated so it never exceeds limit characters.
func (m *Memory) Snapshot(limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "status: %s\n", m.Status.Kind)

	if len(m.Variables) == 0 {
		b.WriteString("variables: (none)\n")
	} else {
		b.WriteString("variables:\n")
		keys := make([]string, 0, len(m.Variables))
		for k := range m.Variables {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s = %s\n", k, CanonicalText(m.Variables[k]))
		}
	}

	if strings.TrimSpace(m.LastResult) != "" {
		fmt.Fprintf(&b, "last_result: %s\n", m.LastResult)
	}

	return truncate(strings.TrimRight(b.String(), "\n"), limit)
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
