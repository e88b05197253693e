package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/meera/yojana/internal/memory"
	"github.com/meera/yojana/internal/plan"
)

// fakeModel satisfies llms.Model with a canned response.
type fakeModel struct {
	response string
	err      error
	messages []llms.MessageContent
}

func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.response}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, _ string, _ ...llms.CallOption) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

const validPlanJSON = `{"plan": [{"type": "finish", "id": "f", "summary": "S"}]}`

func TestParsePlanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bare json", validPlanJSON},
		{"fenced", "Here you go:\n```json\n" + validPlanJSON + "\n```"},
		{"fenced no language", "```\n" + validPlanJSON + "\n```"},
		{"embedded in prose", "Sure! The plan is " + validPlanJSON + " — let me know."},
		{"bare array", `[{"type": "finish", "id": "f", "summary": "S"}]`},
	}
	for _, tt := range tests {
		steps, err := ParsePlanText(tt.input)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if len(steps) != 1 {
			t.Errorf("%s: expected 1 step, got %d", tt.name, len(steps))
			continue
		}
		if f, ok := steps[0].(plan.Finish); !ok || f.Summary != "S" {
			t.Errorf("%s: unexpected step %#v", tt.name, steps[0])
		}
	}
}

func TestParsePlanText_Errors(t *testing.T) {
	for _, input := range []string{
		"",
		"   ",
		"I could not come up with a plan, sorry.",
		`{"plan": [{"type": "teleport", "id": "x"}]}`,
	} {
		if _, err := ParsePlanText(input); err == nil {
			t.Errorf("expected an error for %q", input)
		}
	}
}

func TestLLMPlanner_Plan(t *testing.T) {
	model := &fakeModel{response: "```json\n" + validPlanJSON + "\n```"}
	p := NewLLMPlanner(model, nil)

	mem := memory.New("G")
	mem.Set("hint", "use the door")

	steps, err := p.Plan(context.Background(), "G", mem)
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(steps))
	}

	// The request carries the schema prompt and a state snapshot.
	if len(model.messages) != 2 {
		t.Fatalf("expected system + human messages, got %d", len(model.messages))
	}
	if model.messages[0].Role != schema.ChatMessageTypeSystem {
		t.Error("first message should be the system prompt")
	}
	human := model.messages[1].Parts[0].(llms.TextContent).Text
	if !strings.Contains(human, "Goal: G") || !strings.Contains(human, "hint = use the door") {
		t.Errorf("planning request missing goal or state:\n%s", human)
	}
}

func TestLLMPlanner_ModelErrorIsPlanningError(t *testing.T) {
	model := &fakeModel{err: errors.New("connection refused")}
	p := NewLLMPlanner(model, nil)

	_, err := p.Plan(context.Background(), "G", memory.New("G"))
	if err == nil || !strings.Contains(err.Error(), "planning call") {
		t.Fatalf("expected a planning error, got %v", err)
	}
}

func TestLLMPlanner_UnparseableResponseIsPlanningError(t *testing.T) {
	model := &fakeModel{response: "I'd rather chat about the weather."}
	p := NewLLMPlanner(model, nil)

	_, err := p.Plan(context.Background(), "G", memory.New("G"))
	if err == nil || !strings.Contains(err.Error(), "parseable plan") {
		t.Fatalf("expected a planning error, got %v", err)
	}
}

func TestLLMRunner_Run(t *testing.T) {
	model := &fakeModel{response: "the result"}
	r := NewLLMRunner(model, nil)

	out, err := r.Run(context.Background(), "do the thing")
	if err != nil {
		t.Fatal(err)
	}
	if out != "the result" {
		t.Errorf("out = %q", out)
	}
	// System prompt (embedded default) plus the rendered step prompt.
	if len(model.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(model.messages))
	}
	human := model.messages[1].Parts[0].(llms.TextContent).Text
	if human != "do the thing" {
		t.Errorf("runner must pass the rendered prompt through verbatim, got %q", human)
	}
}
