package contextwin

import "strings"

// scoreTurn computes the importance of a turn given the conversation's current
// topic and stored turn count. Monotone in every factor; system turns always
// outrank everything else.
func scoreTurn(t *Turn, currentTopic string, turnCount int) float64 {
	if t.Role == RoleSystem {
		return 100
	}

	if turnCount < 1 {
		turnCount = 1
	}
	score := float64(t.ID) / float64(turnCount) * 20

	if len(t.CodeBlocks) > 0 {
		score += 15
	}
	if t.Topic == currentTopic {
		score += 10
	}
	entityScore := float64(len(t.Entities)) * 2
	if entityScore > 10 {
		entityScore = 10
	}
	score += entityScore
	if strings.Contains(t.Content, "?") {
		score += 5
	}
	if t.Role == RoleUser {
		score += 3
	}
	return score
}
