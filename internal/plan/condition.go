package plan

import (
	"github.com/meera/yojana/internal/memory"
)

// Condition is a small boolean expression evaluated against the state
// container to drive branches and loops. Conditions are pure: evaluation
// never mutates state.
type Condition interface {
	Eval(m *memory.Memory) bool

	isCondition()
}

// Always is true for every state.
type Always struct{}

// HasVariable is true when the key is present in the state's variables.
type HasVariable struct {
	Key string
}

// NotHasVariable is the complement of HasVariable.
type NotHasVariable struct {
	Key string
}

// Equals compares a variable against a literal. String variables compare by
// exact string equality; any other value compares by its canonical JSON
// text. The asymmetry is deliberate: an integer 42 matches the literal "42"
// because that is its JSON serialization.
type Equals struct {
	Key     string
	Literal string
}

// Not negates its inner condition.
type Not struct {
	Inner Condition
}

func (Always) Eval(*memory.Memory) bool { return true }

func (c HasVariable) Eval(m *memory.Memory) bool { return m.Has(c.Key) }

func (c NotHasVariable) Eval(m *memory.Memory) bool { return !m.Has(c.Key) }

func (c Equals) Eval(m *memory.Memory) bool {
	v, ok := m.Get(c.Key)
	if !ok {
		return false
	}
	return memory.CanonicalText(v) == c.Literal
}

func (c Not) Eval(m *memory.Memory) bool { return !c.Inner.Eval(m) }

func (Always) isCondition()         {}
func (HasVariable) isCondition()    {}
func (NotHasVariable) isCondition() {}
func (Equals) isCondition()         {}
func (Not) isCondition()            {}
