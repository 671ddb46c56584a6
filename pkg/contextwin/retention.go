package contextwin

import (
	"sort"
	"time"
)

// rescoreInterval is how long the stored scores may go stale before a
// retention check triggers a rescore-only pass.
const rescoreInterval = 300 * time.Second

// maybeRetain runs after every append. Overflowing either limit triggers a
// full eviction pass; otherwise a stale-score interval triggers rescoring.
// Callers hold m.mu.
func (m *Manager) maybeRetain() {
	if len(m.turns) > m.maxTurns || m.totalTokens() > m.maxTokens {
		m.evict()
		return
	}
	if m.now().Sub(m.lastRetention) > rescoreInterval {
		m.rescoreAll()
		m.lastRetention = m.now()
	}
}

// evict prunes the stored history down to the retention limits. System turns
// and the most recent min(4,N) non-system turns are always kept; the rest
// compete on importance. If the mandatory set alone exceeds maxTurns that is
// an accepted soft violation. Callers hold m.mu.
func (m *Manager) evict() {
	m.rescoreAll()

	kept := []*Turn{}
	keptTokens := 0
	for _, t := range m.turns {
		if t.Role == RoleSystem {
			kept = append(kept, t)
			keptTokens += t.TokenEstimate
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

	for _, t := range recent {
		kept = append(kept, t)
		keptTokens += t.TokenEstimate
	}

	byImportance := make([]*Turn, len(middle))
	copy(byImportance, middle)
	sort.SliceStable(byImportance, func(i, j int) bool {
		return byImportance[i].Importance > byImportance[j].Importance
	})

	for _, t := range byImportance {
		if len(kept) >= m.maxTurns {
			break
		}
		if keptTokens+t.TokenEstimate > m.maxTokens {
			break
		}
		kept = append(kept, t)
		keptTokens += t.TokenEstimate
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].ID < kept[j].ID })
	m.turns = kept
	m.lastRetention = m.now()
}
