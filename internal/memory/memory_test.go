package memory

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	m := New("find the answer")
	if m.Goal != "find the answer" {
		t.Errorf("unexpected goal %q", m.Goal)
	}
	if m.Status.Kind != StatusInProgress {
		t.Errorf("expected in_progress, got %s", m.Status.Kind)
	}
	if len(m.Variables) != 0 || m.LastResult != "" || m.Iterations != 0 {
		t.Error("new memory should be empty")
	}
}

func TestSetGet_LastWriteWins(t *testing.T) {
	m := New("g")
	m.Set("k", "first")
	m.Set("k", "second")
	v, ok := m.Get("k")
	if !ok || v != "second" {
		t.Errorf("expected last write to win, got %v (%v)", v, ok)
	}
	if !m.Has("k") || m.Has("other") {
		t.Error("Has disagrees with Get")
	}
}

func TestComplete_CouplesAnswerAndVariable(t *testing.T) {
	m := New("g")
	m.Complete("42")

	if m.Status.Kind != StatusCompleted || m.Status.Answer != "42" {
		t.Errorf("unexpected status %+v", m.Status)
	}
	if v, _ := m.Get(FinalAnswerKey); v != "42" {
		t.Errorf("final_answer variable not written, got %v", v)
	}
	if m.LastResult != "42" {
		t.Errorf("last result not written, got %q", m.LastResult)
	}
	answer, ok := m.Answer()
	if !ok || answer != "42" {
		t.Errorf("Answer() = %q, %v", answer, ok)
	}
}

func TestAnswer_FallsBackToPreSeededVariable(t *testing.T) {
	m := New("g")
	if _, ok := m.Answer(); ok {
		t.Error("fresh memory should have no answer")
	}

	// Seeding the variable directly, without Complete, is allowed.
	m.Set(FinalAnswerKey, "seeded")
	answer, ok := m.Answer()
	if !ok || answer != "seeded" {
		t.Errorf("Answer() = %q, %v", answer, ok)
	}
	if m.Status.Kind != StatusInProgress {
		t.Error("status should be untouched by the fallback")
	}
}

func TestFail(t *testing.T) {
	m := New("g")
	m.Fail("it broke")
	if m.Status.Kind != StatusFailed || m.Status.Reason != "it broke" {
		t.Errorf("unexpected status %+v", m.Status)
	}
	if _, ok := m.Answer(); ok {
		t.Error("failed run should have no answer")
	}
}

func TestCanonicalText(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{"plain", "plain"},
		{float64(42), "42"},
		{4.5, "4.5"},
		{true, "true"},
		{[]any{float64(1), "a"}, `[1,"a"]`},
		{map[string]any{"b": float64(2)}, `{"b":2}`},
		{nil, "null"},
	}
	for _, tt := range tests {
		if got := CanonicalText(tt.value); got != tt.want {
			t.Errorf("CanonicalText(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestSnapshot_Truncation(t *testing.T) {
	m := New("g")
	m.Set("blob", strings.Repeat("x", 500))
	m.LastResult = strings.Repeat("y", 500)

	full := m.Snapshot(10_000)
	if !strings.Contains(full, "status: in_progress") || !strings.Contains(full, "blob = ") {
		t.Errorf("snapshot missing expected content:\n%s", full)
	}

	capped := m.Snapshot(100)
	if len(capped) != 100 {
		t.Errorf("capped snapshot length %d, want 100", len(capped))
	}
	if !strings.HasSuffix(capped, "...") {
		t.Errorf("capped snapshot should end with ellipsis, got %q", capped[len(capped)-10:])
	}
	// A snapshot under the cap is untouched.
	small := New("g").Snapshot(100)
	if strings.HasSuffix(small, "...") {
		t.Error("small snapshot should not be truncated")
	}
}
