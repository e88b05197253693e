package plan

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/meera/yojana/internal/memory"
)

// DecodeError reports a malformed or schema-violating plan document. Field
// names the offending field or type string.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("plan: field %q: %s", e.Field, e.Reason)
}

func errf(field, format string, args ...any) *DecodeError {
	return &DecodeError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Decode parses a JSON plan document into a step tree.
func Decode(data []byte) ([]Step, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errf("plan", "invalid JSON: %v", err)
	}
	return DecodeValue(v)
}

// DecodeValue decodes a generic JSON value into a step tree. The top level
// may be an object holding a "plan" or "nodes" array, or a bare array.
func DecodeValue(v any) ([]Step, error) {
	switch t := v.(type) {
	case []any:
		return decodeSteps(t, "plan")
	case map[string]any:
		if raw, ok := t["plan"]; ok {
			arr, ok := raw.([]any)
			if !ok {
				return nil, errf("plan", "expected an array of steps")
			}
			return decodeSteps(arr, "plan")
		}
		if raw, ok := t["nodes"]; ok {
			arr, ok := raw.([]any)
			if !ok {
				return nil, errf("nodes", "expected an array of steps")
			}
			return decodeSteps(arr, "nodes")
		}
		return nil, errf("plan", `missing "plan" or "nodes" array`)
	default:
		return nil, errf("plan", "expected an object or array, got %T", v)
	}
}

func decodeSteps(arr []any, field string) ([]Step, error) {
	steps := make([]Step, 0, len(arr))
	for i, raw := range arr {
		step, err := decodeStep(raw)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func decodeStep(raw any) (Step, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errf("step", "expected an object, got %T", raw)
	}
	typ, err := requireString(obj, "type")
	if err != nil {
		return nil, err
	}

	switch typ {
	case "action":
		return decodeAction(obj)
	case "branch":
		return decodeBranch(obj)
	case "loop":
		return decodeLoop(obj)
	case "finish":
		return decodeFinish(obj)
	default:
		return nil, errf("type", "unknown step type %q", typ)
	}
}

func decodeAction(obj map[string]any) (Step, error) {
	id, err := requireString(obj, "id")
	if err != nil {
		return nil, err
	}
	prompt, err := requireString(obj, "prompt")
	if err != nil {
		return nil, err
	}

	// Label falls back to description, then to the id itself.
	label, ok, err := optionalString(obj, "label")
	if err != nil {
		return nil, err
	}
	if !ok {
		label, ok, err = optionalString(obj, "description")
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		label = id
	}

	tool, _, err := optionalString(obj, "tool")
	if err != nil {
		return nil, err
	}
	saveAs, _, err := optionalString(obj, "save_as")
	if err != nil {
		return nil, err
	}

	return Action{ID: id, Label: label, Tool: tool, Prompt: prompt, SaveAs: saveAs}, nil
}

func decodeBranch(obj map[string]any) (Step, error) {
	id, err := requireString(obj, "id")
	if err != nil {
		return nil, err
	}
	cond, err := requireCondition(obj)
	if err != nil {
		return nil, err
	}
	ifTrue, err := optionalSteps(obj, "if_true")
	if err != nil {
		return nil, err
	}
	ifFalse, err := optionalSteps(obj, "if_false")
	if err != nil {
		return nil, err
	}
	return Branch{ID: id, Condition: cond, IfTrue: ifTrue, IfFalse: ifFalse}, nil
}

func decodeLoop(obj map[string]any) (Step, error) {
	id, err := requireString(obj, "id")
	if err != nil {
		return nil, err
	}
	cond, err := requireCondition(obj)
	if err != nil {
		return nil, err
	}
	body, err := optionalSteps(obj, "body")
	if err != nil {
		return nil, err
	}

	// Accepts ints, floats (truncated) and null. Non-positive values are
	// kept as-is; the executor treats them as "use the default cap".
	maxIter := 0
	if raw, ok := obj["max_iterations"]; ok && raw != nil {
		f, ok := raw.(float64)
		if !ok {
			return nil, errf("max_iterations", "expected a number, got %T", raw)
		}
		maxIter = int(math.Trunc(f))
	}

	return Loop{ID: id, Condition: cond, Body: body, MaxIterations: maxIter}, nil
}

func decodeFinish(obj map[string]any) (Step, error) {
	id, err := requireString(obj, "id")
	if err != nil {
		return nil, err
	}
	summary, _, err := optionalString(obj, "summary")
	if err != nil {
		return nil, err
	}
	return Finish{ID: id, Summary: summary}, nil
}

func requireCondition(obj map[string]any) (Condition, error) {
	raw, ok := obj["condition"]
	if !ok {
		return nil, errf("condition", "missing required field")
	}
	return decodeCondition(raw)
}

func decodeCondition(raw any) (Condition, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errf("condition", "expected an object, got %T", raw)
	}
	typ, err := requireString(obj, "type")
	if err != nil {
		return nil, err
	}

	switch typ {
	case "always":
		return Always{}, nil
	case "has_variable":
		key, err := requireString(obj, "key")
		if err != nil {
			return nil, err
		}
		return HasVariable{Key: key}, nil
	case "not_has_variable":
		key, err := requireString(obj, "key")
		if err != nil {
			return nil, err
		}
		return NotHasVariable{Key: key}, nil
	case "equals":
		key, err := requireString(obj, "key")
		if err != nil {
			return nil, err
		}
		raw, ok := obj["value"]
		if !ok {
			return nil, errf("value", "missing required field")
		}
		// String literals are used verbatim; any other JSON value is
		// normalized to its canonical text, matching how variables compare.
		return Equals{Key: key, Literal: memory.CanonicalText(raw)}, nil
	case "not":
		inner, ok := obj["condition"]
		if !ok {
			return nil, errf("condition", "missing required field")
		}
		cond, err := decodeCondition(inner)
		if err != nil {
			return nil, err
		}
		return Not{Inner: cond}, nil
	default:
		return nil, errf("type", "unknown condition type %q", typ)
	}
}

func optionalSteps(obj map[string]any, field string) ([]Step, error) {
	raw, ok := obj[field]
	if !ok {
		return nil, nil
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, errf(field, "expected an array of steps, got %T", raw)
	}
	return decodeSteps(arr, field)
}

func requireString(obj map[string]any, field string) (string, error) {
	raw, ok := obj[field]
	if !ok {
		return "", errf(field, "missing required field")
	}
	s, ok := raw.(string)
	if !ok {
		return "", errf(field, "expected a string, got %T", raw)
	}
	return s, nil
}

// optionalString returns the field's string value; null and absence both
// report ok=false.
func optionalString(obj map[string]any, field string) (string, bool, error) {
	raw, ok := obj[field]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", false, errf(field, "expected a string, got %T", raw)
	}
	return s, true, nil
}
