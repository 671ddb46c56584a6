package contextwin

import (
	"fmt"
	"strings"
	"testing"
)

func TestEvict_SystemTurnsAreNeverDropped(t *testing.T) {
	m := NewManager(8, 1000000)
	if _, err := m.Append(RoleSystem, "first system prompt"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := m.Append(RoleSystem, "second system prompt"); err != nil {
		t.Fatalf("append: %v", err)
	}
	for i := 0; i < 40; i++ {
		if _, err := m.Append(RoleUser, fmt.Sprintf("user chatter %d", i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	systems := 0
	for _, turn := range m.Turns() {
		if turn.Role == RoleSystem {
			systems++
		}
	}
	if systems != 2 {
		t.Fatalf("expected both system turns retained, got %d", systems)
	}
}

func TestEvict_TokenCeilingTriggersEviction(t *testing.T) {
	// Roughly 26 tokens per message; ceiling forces eviction well before the
	// turn-count limit does.
	m := NewManager(1000, 200)
	for i := 0; i < 30; i++ {
		if _, err := m.Append(RoleUser, fmt.Sprintf("%02d %s", i, strings.Repeat("abcd ", 20))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if m.TurnCount() >= 30 {
		t.Fatalf("token ceiling never triggered eviction: %d turns", m.TurnCount())
	}
	// The recent window survives regardless of the ceiling.
	if m.TurnCount() < recentKeep {
		t.Fatalf("eviction dropped mandatory recent turns: %d", m.TurnCount())
	}
}

func TestEvict_BoundHolds(t *testing.T) {
	maxTurns := 6
	m := NewManager(maxTurns, 1000000)
	systemCount := 3
	for i := 0; i < systemCount; i++ {
		if _, err := m.Append(RoleSystem, fmt.Sprintf("system directive %d", i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	for i := 0; i < 50; i++ {
		if _, err := m.Append(RoleUser, fmt.Sprintf("user message %d", i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	bound := maxTurns
	if systemCount+recentKeep > bound {
		bound = systemCount + recentKeep
	}
	if m.TurnCount() > bound {
		t.Fatalf("retention bound violated: %d > %d", m.TurnCount(), bound)
	}
}

func TestEvict_SoftViolationWhenMandatoryExceedsMax(t *testing.T) {
	// max_turns smaller than system+recent: the policy keeps the mandatory
	// set anyway and accepts exceeding the limit.
	m := NewManager(3, 1000000)
	for i := 0; i < 2; i++ {
		if _, err := m.Append(RoleSystem, fmt.Sprintf("system %d", i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	for i := 0; i < 20; i++ {
		if _, err := m.Append(RoleUser, fmt.Sprintf("user %d", i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	count := m.TurnCount()
	if count != 2+recentKeep {
		t.Fatalf("expected mandatory %d turns, got %d", 2+recentKeep, count)
	}
}

func TestEvict_KeepsHighestImportanceMiddleTurns(t *testing.T) {
	m := NewManager(7, 1000000)
	if _, err := m.Append(RoleSystem, "assistant setup"); err != nil {
		t.Fatalf("append: %v", err)
	}
	// A code-bearing middle turn outranks plain chatter on rescore.
	if _, err := m.Append(RoleAssistant, "```python\nimportant = helper()\n```"); err != nil {
		t.Fatalf("append: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := m.Append(RoleAssistant, fmt.Sprintf("chatter %d", i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	var hasCode bool
	for _, turn := range m.Turns() {
		if len(turn.CodeBlocks) > 0 {
			hasCode = true
		}
	}
	if !hasCode {
		t.Fatalf("high-importance code turn was evicted before plain chatter")
	}
}
