// Package assistant wires the provider, context window, code tooling, and
// archive into the reply pipeline the channels talk to.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/code"
	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/config"
	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/contextwin"
	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/conversation"
	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/executor"
	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/providers"
	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/store"
)

const systemPrompt = "You are an advanced Python programming assistant. " +
	"Provide working, well-explained Python code. Wrap runnable code in " +
	"```python fences so it can be extracted and executed."

// Provider is the chat-completions surface the assistant depends on.
type Provider interface {
	Chat(ctx context.Context, messages []providers.Message) (string, error)
	ChatStream(ctx context.Context, messages []providers.Message, onDelta func(string)) (string, error)
}

// Session pairs the scored context window with the plain rolling transcript
// for one conversation.
type Session struct {
	Key     string
	Window  *contextwin.Manager
	History *conversation.Manager
}

// Assistant is the reply pipeline shared by all channels.
type Assistant struct {
	cfg         *config.Config
	provider    Provider
	archive     *store.Store
	codeManager *code.Manager
	categorizer *code.Categorizer
	runner      *executor.Executor
	log         zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// New builds the assistant. The archive may be nil when persistence is
// disabled.
func New(cfg *config.Config, provider Provider, archive *store.Store, log zerolog.Logger) (*Assistant, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if provider == nil {
		return nil, fmt.Errorf("nil provider")
	}

	codeManager, err := code.NewManager(cfg.App.SaveFolder)
	if err != nil {
		return nil, fmt.Errorf("init code manager: %w", err)
	}

	return &Assistant{
		cfg:         cfg,
		provider:    provider,
		archive:     archive,
		codeManager: codeManager,
		categorizer: code.NewCategorizer(),
		runner:      executor.New("", time.Duration(cfg.App.CodeExecutionTimeout)*time.Second),
		log:         log,
		sessions:    make(map[string]*Session),
	}, nil
}

// SessionFor returns the session for key, creating it on first use.
func (a *Assistant) SessionFor(key string) *Session {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.sessions[key]; ok {
		return s
	}
	s := &Session{
		Key:     key,
		Window:  contextwin.NewManager(a.cfg.App.MaxContextMessages, a.cfg.App.MaxContextTokens),
		History: conversation.NewManager(a.cfg.App.MaxConversationTurns),
	}
	if _, err := s.Window.Append(contextwin.RoleSystem, systemPrompt); err != nil {
		a.log.Error().Err(err).Msg("seed system prompt")
	}
	a.sessions[key] = s
	return s
}

// Respond runs the full pipeline for one user message. When onDelta is
// non-nil the provider reply streams through it as it arrives.
func (a *Assistant) Respond(ctx context.Context, sessionKey, text string, onDelta func(string)) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty message")
	}
	s := a.SessionFor(sessionKey)

	if _, err := s.Window.Append(contextwin.RoleUser, text); err != nil {
		return "", fmt.Errorf("append user turn: %w", err)
	}
	s.History.Add(contextwin.RoleUser, text)
	a.archiveMessage(ctx, sessionKey, contextwin.RoleUser, text, s.Window.CurrentTopic())

	window, err := s.Window.Assemble(0)
	if err != nil {
		return "", fmt.Errorf("assemble context: %w", err)
	}
	messages := make([]providers.Message, 0, len(window))
	for _, m := range window {
		messages = append(messages, providers.Message{Role: m.Role, Content: m.Content})
	}

	var reply string
	if onDelta != nil {
		reply, err = a.provider.ChatStream(ctx, messages, onDelta)
	} else {
		reply, err = a.provider.Chat(ctx, messages)
	}
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if _, err := s.Window.Append(contextwin.RoleAssistant, reply); err != nil {
		a.log.Error().Err(err).Msg("append assistant turn")
	}
	s.History.Add(contextwin.RoleAssistant, reply)
	a.archiveMessage(ctx, sessionKey, contextwin.RoleAssistant, reply, s.Window.CurrentTopic())

	a.captureCode(ctx, sessionKey, reply)

	a.log.Debug().
		Str("session", sessionKey).
		Str("topic", s.Window.CurrentTopic()).
		Int("window_turns", s.Window.TurnCount()).
		Msg("responded")
	return reply, nil
}

// RecallRelevant returns earlier turns from the session ranked against query.
func (a *Assistant) RecallRelevant(sessionKey, query string, topK int) ([]contextwin.Message, error) {
	return a.SessionFor(sessionKey).Window.Rank(query, topK)
}

// ExecuteCode runs a Python snippet with the configured timeout.
func (a *Assistant) ExecuteCode(ctx context.Context, snippet string) (executor.Result, error) {
	return a.runner.Execute(ctx, snippet)
}

// LatestCode returns the most recent snippet captured for a session.
func (a *Assistant) LatestCode(sessionKey string) (string, bool) {
	return a.SessionFor(sessionKey).History.LatestCode()
}

// SaveLatestCode categorizes and writes the session's latest snippet to disk.
func (a *Assistant) SaveLatestCode(ctx context.Context, sessionKey string) (string, error) {
	snippet, ok := a.LatestCode(sessionKey)
	if !ok {
		return "", fmt.Errorf("no code snippet in session %s", sessionKey)
	}
	category, confidence, _ := a.categorizer.Categorize(snippet)
	path, err := a.codeManager.SaveCode(snippet, category)
	if err != nil {
		return "", err
	}
	a.archiveSnippet(ctx, sessionKey, snippet, category, confidence, path)
	return path, nil
}

// ExportSession writes the session transcript to a JSON file.
func (a *Assistant) ExportSession(sessionKey, path string) error {
	return a.SessionFor(sessionKey).History.ExportToFile(path)
}

// ClearSession drops the session's history and reseeds the system prompt.
func (a *Assistant) ClearSession(sessionKey string) {
	s := a.SessionFor(sessionKey)
	s.Window.Clear()
	s.History.Clear()
	if _, err := s.Window.Append(contextwin.RoleSystem, systemPrompt); err != nil {
		a.log.Error().Err(err).Msg("reseed system prompt")
	}
}

// History returns the session's rolling transcript.
func (a *Assistant) History(sessionKey string) []conversation.Message {
	return a.SessionFor(sessionKey).History.Messages()
}

func (a *Assistant) captureCode(ctx context.Context, sessionKey, reply string) {
	if !a.cfg.App.AutoSaveCode {
		return
	}
	if !a.codeManager.DetectCode(reply) {
		return
	}
	snippet := a.codeManager.ExtractCode(reply)
	if strings.TrimSpace(snippet) == "" {
		return
	}

	category, confidence, _ := a.categorizer.Categorize(snippet)
	path, err := a.codeManager.SaveCode(snippet, category)
	if err != nil {
		a.log.Error().Err(err).Str("category", category).Msg("save extracted code")
		return
	}
	a.log.Info().
		Str("category", category).
		Float64("confidence", confidence).
		Str("path", path).
		Msg("saved code snippet")
	a.archiveSnippet(ctx, sessionKey, snippet, category, confidence, path)
}

func (a *Assistant) archiveMessage(ctx context.Context, sessionKey, role, content, topic string) {
	if a.archive == nil {
		return
	}
	err := a.archive.AppendMessage(ctx, store.Message{
		SessionKey: sessionKey,
		Role:       role,
		Content:    content,
		Topic:      topic,
	})
	if err != nil {
		a.log.Error().Err(err).Str("session", sessionKey).Msg("archive message")
	}
}

func (a *Assistant) archiveSnippet(ctx context.Context, sessionKey, snippet, category string, confidence float64, path string) {
	if a.archive == nil {
		return
	}
	err := a.archive.SaveSnippet(ctx, store.Snippet{
		SessionKey: sessionKey,
		Category:   category,
		Confidence: confidence,
		Code:       snippet,
		Path:       path,
	})
	if err != nil {
		a.log.Error().Err(err).Str("session", sessionKey).Msg("archive snippet")
	}
}
