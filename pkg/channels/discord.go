package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/bus"
	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/config"
)

const (
	sendTimeout           = 10 * time.Second
	typingRefreshInterval = 8 * time.Second

	// Discord caps messages at 2000 characters. Splitting at 1500 leaves
	// room to extend a chunk so a code fence is not cut in half.
	discordChunkLimit = 1500
)

// DiscordChannel bridges Discord messages onto the bus.
type DiscordChannel struct {
	*BaseChannel
	session  *discordgo.Session
	log      zerolog.Logger
	typingMu sync.Mutex
	typing   map[string]context.CancelFunc
}

func NewDiscordChannel(cfg config.DiscordConfig, messageBus *bus.MessageBus, log zerolog.Logger) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	return &DiscordChannel{
		BaseChannel: NewBaseChannel("discord", messageBus, cfg.AllowFrom),
		session:     session,
		log:         log,
		typing:      make(map[string]context.CancelFunc),
	}, nil
}

func (c *DiscordChannel) Start(ctx context.Context) error {
	c.session.AddHandler(c.handleMessage)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	c.setRunning(true)

	botUser, err := c.session.User("@me")
	if err != nil {
		return fmt.Errorf("get bot user: %w", err)
	}
	c.log.Info().Str("username", botUser.Username).Str("user_id", botUser.ID).Msg("discord connected")
	return nil
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	c.setRunning(false)
	c.stopAllTyping()
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

func (c *DiscordChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("discord channel not running")
	}
	if msg.ChatID == "" {
		return fmt.Errorf("empty discord channel id")
	}
	defer c.endTyping(msg.ChatID)

	if strings.TrimSpace(msg.Content) == "" {
		return nil
	}
	for _, chunk := range splitMessage(msg.Content, discordChunkLimit) {
		if err := c.sendChunk(ctx, msg.ChatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *DiscordChannel) sendChunk(ctx context.Context, channelID, content string) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.session.ChannelMessageSend(channelID, content)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send discord message: %w", err)
		}
		return nil
	case <-sendCtx.Done():
		return fmt.Errorf("send discord message: %w", sendCtx.Err())
	}
}

// splitMessage breaks long replies into sendable chunks, preferring newline
// boundaries and extending a chunk rather than splitting an open code fence.
func splitMessage(content string, limit int) []string {
	var chunks []string
	for len(content) > 0 {
		if len(content) <= limit {
			chunks = append(chunks, content)
			break
		}

		end := lastIndexWithin(content[:limit], '\n', 200)
		if end <= 0 {
			end = lastIndexWithin(content[:limit], ' ', 100)
		}
		if end <= 0 {
			end = limit
		}

		if open := lastOpenFence(content[:end]); open >= 0 {
			if closing := strings.Index(content[end:], "```"); closing >= 0 && end+closing+3 <= limit+500 {
				end = end + closing + 3
			} else if open > 0 {
				end = open
			}
		}

		chunks = append(chunks, content[:end])
		content = strings.TrimSpace(content[end:])
	}
	return chunks
}

// lastOpenFence returns the position of an unclosed ``` marker, or -1.
func lastOpenFence(text string) int {
	count := 0
	last := -1
	for i := 0; i+2 < len(text); i++ {
		if text[i] == '`' && text[i+1] == '`' && text[i+2] == '`' {
			if count%2 == 0 {
				last = i
			}
			count++
			i += 2
		}
	}
	if count%2 == 1 {
		return last
	}
	return -1
}

// lastIndexWithin finds the last occurrence of sep within the final window
// bytes of s, or -1.
func lastIndexWithin(s string, sep byte, window int) int {
	start := len(s) - window
	if start < 0 {
		start = 0
	}
	for i := len(s) - 1; i >= start; i-- {
		if s[i] == sep {
			return i
		}
	}
	return -1
}

func (c *DiscordChannel) beginTyping(channelID string) {
	if channelID == "" {
		return
	}
	c.typingMu.Lock()
	if _, ok := c.typing[channelID]; ok {
		c.typingMu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.typing[channelID] = cancel
	c.typingMu.Unlock()

	_ = c.session.ChannelTyping(channelID)
	go func() {
		ticker := time.NewTicker(typingRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !c.IsRunning() {
					return
				}
				_ = c.session.ChannelTyping(channelID)
			}
		}
	}()
}

func (c *DiscordChannel) endTyping(channelID string) {
	c.typingMu.Lock()
	defer c.typingMu.Unlock()
	if cancel, ok := c.typing[channelID]; ok {
		cancel()
		delete(c.typing, channelID)
	}
}

func (c *DiscordChannel) stopAllTyping() {
	c.typingMu.Lock()
	defer c.typingMu.Unlock()
	for id, cancel := range c.typing {
		cancel()
		delete(c.typing, id)
	}
}

func (c *DiscordChannel) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Author == nil {
		return
	}
	if m.Author.ID == s.State.User.ID {
		return
	}
	if !c.IsAllowed(m.Author.ID) {
		c.log.Debug().Str("user_id", m.Author.ID).Msg("message rejected by allowlist")
		return
	}
	if strings.TrimSpace(m.Content) == "" {
		return
	}

	c.beginTyping(m.ChannelID)

	c.HandleMessage(m.Author.ID, m.ChannelID, m.Content, map[string]string{
		"message_id": m.ID,
		"username":   m.Author.Username,
		"guild_id":   m.GuildID,
		"is_dm":      fmt.Sprintf("%t", m.GuildID == ""),
	})
}
