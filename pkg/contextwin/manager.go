// Package contextwin maintains a bounded window of conversational turns under
// a message-count limit and an approximate token budget. It stores turns,
// scores them, and selects among them; calling the model, executing code and
// presenting results all live elsewhere.
package contextwin

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

const (
	defaultMaxTurns  = 20
	defaultMaxTokens = 4000
	recentKeep       = 4
)

// Manager owns the conversation state for a single logical session. Methods
// serialize on an internal mutex; share one manager per session, not across
// sessions.
type Manager struct {
	mu sync.Mutex

	maxTurns  int
	maxTokens int

	turns         []*Turn
	topicIndex    map[string][]int
	codeIndex     map[string]int
	currentTopic  string
	lastRetention time.Time
	nextID        int

	now func() time.Time
}

// NewManager creates a manager with the given retention limits. Non-positive
// limits fall back to 20 turns / 4000 tokens.
func NewManager(maxTurns, maxTokens int) *Manager {
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	now := time.Now
	return &Manager{
		maxTurns:      maxTurns,
		maxTokens:     maxTokens,
		topicIndex:    map[string][]int{},
		codeIndex:     map[string]int{},
		currentTopic:  TopicGeneral,
		lastRetention: now(),
		now:           now,
	}
}

// Append stores a new turn and returns its id. The id counter is monotonic
// and independent of storage length, so ids never collide after eviction.
func (m *Manager) Append(role, content string) (int, error) {
	if role != RoleSystem && role != RoleUser && role != RoleAssistant {
		return 0, fmt.Errorf("unknown role %q: must be system, user or assistant", role)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	feats := Extract(content)
	turn := &Turn{
		ID:            m.nextID,
		Role:          role,
		Content:       content,
		CreatedAt:     m.now(),
		TokenEstimate: feats.TokenEstimate,
		Topic:         feats.Topic,
		Keywords:      feats.Keywords,
		Entities:      feats.Entities,
		CodeBlocks:    feats.CodeBlocks,
	}
	m.nextID++

	for _, block := range feats.CodeBlocks {
		// Later duplicates overwrite earlier entries; collisions are accepted.
		m.codeIndex[Fingerprint(block)] = turn.ID
	}
	m.topicIndex[turn.Topic] = append(m.topicIndex[turn.Topic], turn.ID)
	if role == RoleUser {
		m.currentTopic = turn.Topic
	}

	m.turns = append(m.turns, turn)
	turn.Importance = scoreTurn(turn, m.currentTopic, len(m.turns))

	m.maybeRetain()
	return turn.ID, nil
}

// Clear drops all conversation state. The id counter keeps counting so ids
// stay unique for the lifetime of the manager.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
	m.topicIndex = map[string][]int{}
	m.codeIndex = map[string]int{}
	m.currentTopic = TopicGeneral
	m.lastRetention = m.now()
}

// TurnCount reports how many turns are currently retained.
func (m *Manager) TurnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}

// CurrentTopic is the topic of the most recent user turn.
func (m *Manager) CurrentTopic() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTopic
}

// Turns returns a copy of the retained turns in ascending id order.
func (m *Manager) Turns() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Turn, 0, len(m.turns))
	for _, t := range m.turns {
		out = append(out, *t)
	}
	return out
}

// CodeTurnID reports which retained-or-evicted turn most recently produced
// the code block with the given fingerprint.
func (m *Manager) CodeTurnID(fingerprint string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.codeIndex[fingerprint]
	return id, ok
}

// TopicTurnIDs returns the ids recorded for a topic at insertion time. The
// index is not rewritten on eviction, so ids of dropped turns may remain.
func (m *Manager) TopicTurnIDs(topic string) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.topicIndex[topic]
	out := make([]int, len(ids))
	copy(out, ids)
	return out
}

// Fingerprint derives the stable content identifier used by the code index.
func Fingerprint(code string) string {
	h := sha1.Sum([]byte(code))
	return hex.EncodeToString(h[:])
}

func (m *Manager) totalTokens() int {
	total := 0
	for _, t := range m.turns {
		total += t.TokenEstimate
	}
	return total
}

// rescoreAll recomputes every importance score against the current topic and
// turn count. Idempotent: back-to-back runs with no appends give equal scores.
func (m *Manager) rescoreAll() {
	count := len(m.turns)
	for _, t := range m.turns {
		t.Importance = scoreTurn(t, m.currentTopic, count)
	}
}
