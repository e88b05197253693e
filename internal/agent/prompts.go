package agent

import (
	"io/ioutil"
	"log"
	"path/filepath"
	"sort"
	"strings"
)

// defaultPlannerPrompt is used when no prompts directory (or no planner.md)
// is available. It pins the JSON plan schema the decoder understands.
const defaultPlannerPrompt = `You are a planning engine. Given a goal and the current run state, output the next short plan as a single JSON object and nothing else:

{"plan": [ <step>, ... ]}

Step kinds:
- {"type": "action", "id": "<unique id>", "label": "<short label>", "prompt": "<instruction for this step>", "save_as": "<variable name, optional>"}
- {"type": "branch", "id": "...", "condition": <condition>, "if_true": [<steps>], "if_false": [<steps>]}
- {"type": "loop", "id": "...", "condition": <condition>, "body": [<steps>], "max_iterations": <positive int, optional>}
- {"type": "finish", "id": "...", "summary": "<final answer, optional>"}

Condition kinds:
- {"type": "always"}
- {"type": "has_variable", "key": "<name>"}
- {"type": "not_has_variable", "key": "<name>"}
- {"type": "equals", "key": "<name>", "value": "<literal>"}
- {"type": "not", "condition": <condition>}

Use variables set by earlier action steps (via save_as) to drive branches and loops. End the plan with a finish step once the goal is satisfied. Keep plans small; you will be asked to re-plan with the updated state if more work remains.`

// defaultWorkerPrompt frames individual step executions.
const defaultWorkerPrompt = `You are the execution arm of a planning agent. You receive one step of a larger plan, the overall goal and a snapshot of the run state. Carry out exactly the task described in the step and reply with the result text only, no preamble.`

// PromptManager loads system prompts from a directory of markdown files,
// falling back to the embedded defaults when files are missing.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

// GetWorkerPrompt joins every .md file except planner.md, in a fixed order.
func (pm *PromptManager) GetWorkerPrompt() (string, error) {
	if pm == nil || pm.Directory == "" {
		return defaultWorkerPrompt, nil
	}
	files, err := ioutil.ReadDir(pm.Directory)
	if err != nil {
		return defaultWorkerPrompt, nil
	}

	var contents []string

	// Sort files to ensure deterministic prompt order
	order := map[string]int{
		"identity.md":         1,
		"capabilities.md":     2,
		"worker_directive.md": 3,
		"user.md":             4,
	}

	sort.Slice(files, func(i, j int) bool {
		oi, okI := order[files[i].Name()]
		oj, okJ := order[files[j].Name()]
		if okI && okJ {
			return oi < oj
		}
		if okI {
			return true
		}
		if okJ {
			return false
		}
		return files[i].Name() < files[j].Name()
	})

	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".md") && f.Name() != "planner.md" {
			path := filepath.Join(pm.Directory, f.Name())
			data, err := ioutil.ReadFile(path)
			if err != nil {
				log.Printf("Warning: Failed to read prompt file %s: %v", path, err)
				continue
			}
			contents = append(contents, string(data))
		}
	}

	if len(contents) == 0 {
		return defaultWorkerPrompt, nil
	}

	return strings.Join(contents, "\n\n---\n\n"), nil
}

// GetPlannerPrompt reads planner.md, falling back to the embedded schema
// prompt.
func (pm *PromptManager) GetPlannerPrompt() (string, error) {
	if pm == nil || pm.Directory == "" {
		return defaultPlannerPrompt, nil
	}
	path := filepath.Join(pm.Directory, "planner.md")
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return defaultPlannerPrompt, nil
	}
	return string(data), nil
}
