package contextwin

import "sort"

const defaultTopK = 5

// Rank scores every stored turn against an ad-hoc query and returns the topK
// best matches in ascending id order. This is a stateless read: no turn,
// score or index is mutated. topK values below 1 default to 5.
func (m *Manager) Rank(query string, topK int) ([]Message, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.turns) == 0 {
		return nil, nil
	}

	qf := Extract(query)
	qKeywords := toSet(qf.Keywords)
	qEntities := toSet(qf.Entities)

	type scored struct {
		turn  *Turn
		score float64
	}
	all := make([]scored, 0, len(m.turns))
	total := len(m.turns)
	for _, t := range m.turns {
		score := 2 * float64(overlap(t.Keywords, qKeywords))
		score += 3 * float64(overlap(t.Entities, qEntities))
		if t.Topic == qf.Topic {
			score += 5
		}
		score += 2 * float64(t.ID) / float64(total)
		all = append(all, scored{turn: t, score: score})
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })
	if topK < len(all) {
		all = all[:topK]
	}

	sort.Slice(all, func(i, j int) bool { return all[i].turn.ID < all[j].turn.ID })

	out := make([]Message, 0, len(all))
	for _, s := range all {
		out = append(out, Message{Role: s.turn.Role, Content: s.turn.Content})
	}
	return out, nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func overlap(values []string, set map[string]struct{}) int {
	n := 0
	for _, v := range values {
		if _, ok := set[v]; ok {
			n++
		}
	}
	return n
}
