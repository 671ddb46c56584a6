package contextwin

import (
	"fmt"
	"sort"
)

// Assemble produces a context view that fits the token budget: every system
// turn, the last min(4,N) non-system turns, then the most important remaining
// turns that still fit. Output is in ascending id order. A budget of 0 uses
// the manager's configured ceiling; a negative budget is rejected.
func (m *Manager) Assemble(budgetTokens int) ([]Message, error) {
	if budgetTokens < 0 {
		return nil, fmt.Errorf("negative token budget %d", budgetTokens)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if budgetTokens == 0 {
		budgetTokens = m.maxTokens
	}

	selected := []*Turn{}
	used := 0
	for _, t := range m.turns {
		if t.Role == RoleSystem {
			selected = append(selected, t)
			used += t.TokenEstimate
		}
	}

	regular := []*Turn{}
	for _, t := range m.turns {
		if t.Role != RoleSystem {
			regular = append(regular, t)
		}
	}

	recentCount := recentKeep
	if len(regular) < recentCount {
		recentCount = len(regular)
	}
	recent := regular[len(regular)-recentCount:]
	middle := regular[:len(regular)-recentCount]

	// Recent turns are unconditional, even when they alone bust the budget.
	for _, t := range recent {
		selected = append(selected, t)
		used += t.TokenEstimate
	}

	byImportance := make([]*Turn, len(middle))
	copy(byImportance, middle)
	sort.SliceStable(byImportance, func(i, j int) bool {
		return byImportance[i].Importance > byImportance[j].Importance
	})

	remaining := budgetTokens - used
	for _, t := range byImportance {
		if t.TokenEstimate <= remaining {
			selected = append(selected, t)
			used += t.TokenEstimate
			remaining = budgetTokens - used
		}
		if remaining <= 0 {
			break
		}
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i].ID < selected[j].ID })

	out := make([]Message, 0, len(selected))
	for _, t := range selected {
		out = append(out, Message{Role: t.Role, Content: t.Content})
	}
	return out, nil
}
