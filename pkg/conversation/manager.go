// Package conversation keeps the verbatim rolling transcript of a chat
// session together with the code snippets captured from assistant replies.
// The budget-aware context selection lives in pkg/contextwin; this package is
// the plain history the UI layers show and export.
package conversation

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
)

var fencedPythonRegex = regexp.MustCompile("(?s)```python(.*?)```")

// Message is one transcript entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Manager holds the rolling transcript for one session.
type Manager struct {
	mu           sync.Mutex
	maxTurns     int
	messages     []Message
	codeSnippets []string
}

// NewManager creates a transcript manager that retains at most maxTurns
// user/assistant exchanges (two messages per turn).
func NewManager(maxTurns int) *Manager {
	if maxTurns <= 0 {
		maxTurns = 10
	}
	return &Manager{maxTurns: maxTurns}
}

// Add appends a message, capturing any fenced python snippet from assistant
// replies, and trims the transcript to the last maxTurns exchanges.
func (m *Manager) Add(role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, Message{Role: role, Content: content})

	if role == "assistant" {
		if code, ok := extractPython(content); ok {
			m.codeSnippets = append(m.codeSnippets, code)
		}
	}

	if limit := m.maxTurns * 2; len(m.messages) > limit {
		m.messages = append([]Message(nil), m.messages[len(m.messages)-limit:]...)
	}
}

// Messages returns a copy of the transcript.
func (m *Manager) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// CodeSnippets returns every captured snippet in capture order.
func (m *Manager) CodeSnippets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.codeSnippets))
	copy(out, m.codeSnippets)
	return out
}

// LatestCode returns the most recent captured snippet, if any.
func (m *Manager) LatestCode() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.codeSnippets) == 0 {
		return "", false
	}
	return m.codeSnippets[len(m.codeSnippets)-1], true
}

// Clear empties the transcript and the snippet list.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
	m.codeSnippets = nil
}

// ExportToFile writes the transcript as indented JSON.
func (m *Manager) ExportToFile(filename string) error {
	m.mu.Lock()
	data, err := json.MarshalIndent(m.messages, "", "  ")
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// ImportFromFile replaces the transcript with the file's contents and
// rebuilds the snippet list from the imported assistant messages.
func (m *Manager) ImportFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("parse transcript: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = messages
	m.codeSnippets = nil
	for _, msg := range messages {
		if msg.Role != "assistant" {
			continue
		}
		if code, ok := extractPython(msg.Content); ok {
			m.codeSnippets = append(m.codeSnippets, code)
		}
	}
	return nil
}

func extractPython(text string) (string, bool) {
	match := fencedPythonRegex.FindStringSubmatch(text)
	if len(match) < 2 {
		return "", false
	}
	code := strings.TrimSpace(match[1])
	if code == "" {
		return "", false
	}
	return code, true
}
