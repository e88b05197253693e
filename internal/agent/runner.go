package agent

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/meera/yojana/internal/observability"
)

// LLMRunner is the langchaingo-backed StepRunner: one completion per step,
// framed by the worker system prompt.
type LLMRunner struct {
	Model   llms.Model
	Prompts *PromptManager
	Logger  *observability.Logger
	RunID   string
}

func NewLLMRunner(model llms.Model, prompts *PromptManager) *LLMRunner {
	return &LLMRunner{Model: model, Prompts: prompts}
}

func (r *LLMRunner) Run(ctx context.Context, prompt string) (string, error) {
	var messages []llms.MessageContent

	systemPrompt, err := r.Prompts.GetWorkerPrompt()
	if err == nil && systemPrompt != "" {
		messages = append(messages, llms.MessageContent{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  schema.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(prompt)},
	})

	resp, err := r.Model.GenerateContent(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	text := resp.Choices[0].Content

	r.Logger.LogLLM(r.RunID, "", prompt, text)
	return text, nil
}
