package contextwin

import "time"

// Role values accepted by the manager.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TopicGeneral is assigned when no topic keyword scores above zero.
const TopicGeneral = "general"

// Turn is one stored conversational message with derived features and a
// mutable importance score. Only Importance changes after insertion.
type Turn struct {
	ID            int
	Role          string
	Content       string
	CreatedAt     time.Time
	TokenEstimate int
	Topic         string
	Keywords      []string
	Entities      []string
	CodeBlocks    []string
	Importance    float64
}

// Message is the provider-facing view of a turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Features holds everything the extractor derives from raw text.
type Features struct {
	TokenEstimate int
	Keywords      []string
	Entities      []string
	CodeBlocks    []string
	Topic         string
}
