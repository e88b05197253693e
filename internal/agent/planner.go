package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/meera/yojana/internal/memory"
	"github.com/meera/yojana/internal/observability"
	"github.com/meera/yojana/internal/plan"
)

// Planner asks the external capability for a fresh plan given the goal and
// the current run state.
type Planner interface {
	Plan(ctx context.Context, goal string, mem *memory.Memory) ([]plan.Step, error)
}

// LLMPlanner is the langchaingo-backed Planner. It owns the robustness of
// pulling a JSON plan out of free-form model output; a response with no
// parseable plan is a planning error, never retried here.
type LLMPlanner struct {
	Model   llms.Model
	Prompts *PromptManager
	Logger  *observability.Logger
	RunID   string

	SnapshotLimit int
}

func NewLLMPlanner(model llms.Model, prompts *PromptManager) *LLMPlanner {
	return &LLMPlanner{
		Model:         model,
		Prompts:       prompts,
		SnapshotLimit: DefaultSnapshotLimit,
	}
}

func (p *LLMPlanner) Plan(ctx context.Context, goal string, mem *memory.Memory) ([]plan.Step, error) {
	systemPrompt, err := p.Prompts.GetPlannerPrompt()
	if err != nil {
		return nil, fmt.Errorf("agent: failed to load planner prompt: %w", err)
	}

	limit := p.SnapshotLimit
	if limit <= 0 {
		limit = DefaultSnapshotLimit
	}
	userPrompt := fmt.Sprintf("Goal: %s\n\nCurrent state:\n%s\n\nOutput the next plan.", goal, mem.Snapshot(limit))

	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(userPrompt)},
		},
	}

	resp, err := p.Model.GenerateContent(ctx, messages, llms.WithTemperature(0.3))
	if err != nil {
		return nil, fmt.Errorf("agent: planning call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("agent: planner returned no choices")
	}
	text := resp.Choices[0].Content

	p.Logger.LogLLM(p.RunID, "", userPrompt, text)

	steps, err := ParsePlanText(text)
	if err != nil {
		return nil, fmt.Errorf("agent: planner failed to provide a parseable plan: %w", err)
	}
	return steps, nil
}

var jsonBlockRE = regexp.MustCompile("(?s)```(?:json)?\\s*([\\s\\S]*?)```")

// ParsePlanText extracts a plan from raw model output: the text as-is, the
// contents of a markdown code fence, or the outermost JSON object/array
// slice, in that order.
func ParsePlanText(text string) ([]plan.Step, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("empty planner response")
	}

	candidates := []string{trimmed}
	if m := jsonBlockRE.FindStringSubmatch(trimmed); len(m) > 1 {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if c, ok := outermostJSON(trimmed); ok {
		candidates = append(candidates, c)
	}

	var lastErr error
	for _, c := range candidates {
		steps, err := plan.Decode([]byte(c))
		if err == nil {
			return steps, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// outermostJSON slices from the first '{' or '[' to the matching last
// bracket, salvaging plans embedded in prose.
func outermostJSON(s string) (string, bool) {
	for _, pair := range [][2]rune{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexRune(s, pair[0])
		end := strings.LastIndex(s, string(pair[1]))
		if start >= 0 && end > start {
			return s[start : end+1], true
		}
	}
	return "", false
}
