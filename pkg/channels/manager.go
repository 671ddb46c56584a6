package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/assistant"
	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/bus"
	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/config"
)

// Manager owns the bus-connected channels and the dispatch loop that moves
// messages between them and the assistant.
type Manager struct {
	channels  map[string]Channel
	bus       *bus.MessageBus
	cfg       *config.Config
	assistant *assistant.Assistant
	log       zerolog.Logger
	mu        sync.RWMutex
}

func NewManager(cfg *config.Config, messageBus *bus.MessageBus, a *assistant.Assistant, log zerolog.Logger) (*Manager, error) {
	m := &Manager{
		channels:  make(map[string]Channel),
		bus:       messageBus,
		cfg:       cfg,
		assistant: a,
		log:       log,
	}
	if err := m.initChannels(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) initChannels() error {
	if strings.TrimSpace(m.cfg.Channels.Discord.Token) == "" {
		return fmt.Errorf("channels.discord.token is required")
	}

	discord, err := NewDiscordChannel(m.cfg.Channels.Discord, m.bus, m.log)
	if err != nil {
		return fmt.Errorf("initialize discord channel: %w", err)
	}
	m.channels["discord"] = discord
	m.log.Info().Int("channels", len(m.channels)).Msg("channels initialized")
	return nil
}

// StartAll starts every channel and the dispatch goroutines, then returns.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	channels := make(map[string]Channel, len(m.channels))
	for name, ch := range m.channels {
		channels[name] = ch
	}
	m.mu.RUnlock()

	var started []string
	for name, ch := range channels {
		if err := ch.Start(ctx); err != nil {
			for _, s := range started {
				_ = channels[s].Stop(ctx)
			}
			return fmt.Errorf("start channel %s: %w", name, err)
		}
		started = append(started, name)
		m.log.Info().Str("channel", name).Msg("channel started")
	}

	go m.dispatchInbound(ctx)
	go m.dispatchOutbound(ctx)
	return nil
}

// StopAll stops every running channel.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, ch := range m.channels {
		if !ch.IsRunning() {
			continue
		}
		if err := ch.Stop(ctx); err != nil {
			m.log.Error().Err(err).Str("channel", name).Msg("stop channel")
		}
	}
}

// dispatchInbound feeds user messages through the assistant and queues the
// replies for delivery.
func (m *Manager) dispatchInbound(ctx context.Context) {
	for {
		msg, ok := m.bus.ConsumeInbound(ctx)
		if !ok {
			return
		}

		reply, err := m.assistant.Respond(ctx, msg.SessionKey, msg.Content, nil)
		if err != nil {
			m.log.Error().Err(err).Str("session", msg.SessionKey).Msg("respond")
			reply = fmt.Sprintf("Error: %v", err)
		}

		m.bus.PublishOutbound(bus.OutboundMessage{
			Channel:  msg.Channel,
			ChatID:   msg.ChatID,
			Content:  reply,
			Metadata: msg.Metadata,
		})
	}
}

// dispatchOutbound delivers queued replies to their channels.
func (m *Manager) dispatchOutbound(ctx context.Context) {
	for {
		msg, ok := m.bus.SubscribeOutbound(ctx)
		if !ok {
			return
		}

		m.mu.RLock()
		ch, found := m.channels[msg.Channel]
		m.mu.RUnlock()
		if !found {
			m.log.Warn().Str("channel", msg.Channel).Msg("outbound message for unknown channel")
			continue
		}
		if err := ch.Send(ctx, msg); err != nil {
			m.log.Error().Err(err).Str("channel", msg.Channel).Msg("send reply")
		}
	}
}
