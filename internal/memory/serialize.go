package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Version is the persisted state schema version. Loading any other version
// is a hard error.
const Version = 1

type persistedState struct {
	Version    int             `json:"version"`
	Goal       string          `json:"goal"`
	Status     persistedStatus `json:"status"`
	LastResult *string         `json:"last_result"`
	Iterations int             `json:"iterations"`
	Variables  []persistedVar  `json:"variables"`
}

type persistedStatus struct {
	Type   string `json:"type"`
	Answer string `json:"answer,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type persistedVar struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Serialize encodes the container into its versioned JSON envelope.
// Variables are written as an ordered array, sorted by key for determinism.
func (m *Memory) Serialize() ([]byte, error) {
	keys := make([]string, 0, len(m.Variables))
	for k := range m.Variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vars := make([]persistedVar, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, persistedVar{Key: k, Value: m.Variables[k]})
	}

	var lastResult *string
	if m.LastResult != "" {
		lr := m.LastResult
		lastResult = &lr
	}

	state := persistedState{
		Version:    Version,
		Goal:       m.Goal,
		Status:     persistedStatus{Type: string(m.Status.Kind), Answer: m.Status.Answer, Reason: m.Status.Reason},
		LastResult: lastResult,
		Iterations: m.Iterations,
		Variables:  vars,
	}
	return json.MarshalIndent(state, "", "  ")
}

// Deserialize decodes a versioned envelope back into a Memory. When the
// variables array carries duplicate keys, later entries win.
func Deserialize(data []byte) (*Memory, error) {
	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("memory: malformed state: %w", err)
	}
	if state.Version != Version {
		return nil, fmt.Errorf("memory: unsupported state version %d (want %d)", state.Version, Version)
	}

	var status Status
	switch StatusKind(state.Status.Type) {
	case StatusInProgress:
		status = Status{Kind: StatusInProgress}
	case StatusCompleted:
		status = Status{Kind: StatusCompleted, Answer: state.Status.Answer}
	case StatusFailed:
		status = Status{Kind: StatusFailed, Reason: state.Status.Reason}
	default:
		return nil, fmt.Errorf("memory: unknown status type %q", state.Status.Type)
	}

	m := &Memory{
		Goal:       state.Goal,
		Variables:  make(map[string]any, len(state.Variables)),
		Status:     status,
		Iterations: state.Iterations,
	}
	if state.LastResult != nil {
		m.LastResult = *state.LastResult
	}
	for _, v := range state.Variables {
		m.Variables[v.Key] = v.Value
	}
	return m, nil
}

// SaveFile writes the serialized container to path.
func (m *Memory) SaveFile(path string) error {
	data, err := m.Serialize()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadFile reads a serialized container from path.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("memory: state file not found: %s", path)
		}
		return nil, err
	}
	return Deserialize(data)
}
