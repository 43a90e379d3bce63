package bots

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// discordSender is the subset of *discordgo.Session used to reply.
type discordSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordBot relays Discord messages through the gateway. In guild channels
// only "<prefix>ask <question>" is relayed; in direct messages any text is.
type DiscordBot struct {
	session  *discordgo.Session
	gateway  *Gateway
	greeting string
	prefix   string
	logger   zerolog.Logger

	// mu guards closing so no handler joins wg once drain has started.
	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// NewDiscordBot creates a bot session for token. The connection is opened by
// Run.
func NewDiscordBot(token string, gateway *Gateway, greeting, prefix string, logger zerolog.Logger) (*DiscordBot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	b := &DiscordBot{
		session:  session,
		gateway:  gateway,
		greeting: greeting,
		prefix:   prefix,
		logger:   logger,
	}
	return b, nil
}

// Run opens the gateway connection and blocks until ctx is cancelled.
func (b *DiscordBot) Run(ctx context.Context) error {
	handlerCtx := context.WithoutCancel(ctx)
	b.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		selfID := ""
		if s.State != nil && s.State.User != nil {
			selfID = s.State.User.ID
		}
		b.onMessage(handlerCtx, s, selfID, m)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord connection: %w", err)
	}
	b.logger.Info().Msg("discord bot connected")

	<-ctx.Done()
	err := b.session.Close()
	b.drain()
	b.logger.Info().Msg("discord bot disconnected")
	return err
}

// onMessage handles m unless the bot is shutting down.
func (b *DiscordBot) onMessage(ctx context.Context, sender discordSender, selfID string, m *discordgo.MessageCreate) {
	b.mu.Lock()
	if b.closing {
		b.mu.Unlock()
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()
	defer b.wg.Done()

	b.handleMessage(ctx, sender, selfID, m)
}

// drain stops accepting messages and waits for in-flight ones.
func (b *DiscordBot) drain() {
	b.mu.Lock()
	b.closing = true
	b.mu.Unlock()
	b.wg.Wait()
}

type discordCommand int

const (
	discordIgnore discordCommand = iota
	discordStart
	discordAsk
)

// parse classifies content. For discordAsk the returned string is the
// question, which may be blank.
func (b *DiscordBot) parse(content string, direct bool) (discordCommand, string) {
	content = strings.TrimSpace(content)
	if content == b.prefix+"start" {
		return discordStart, ""
	}
	askCmd := b.prefix + "ask"
	if content == askCmd {
		return discordAsk, ""
	}
	if rest, ok := strings.CutPrefix(content, askCmd); ok && (rest[0] == ' ' || rest[0] == '\n') {
		return discordAsk, strings.TrimSpace(rest)
	}
	if direct {
		return discordAsk, content
	}
	return discordIgnore, ""
}

func (b *DiscordBot) handleMessage(ctx context.Context, sender discordSender, selfID string, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == selfID || m.Author.Bot {
		return
	}

	cmd, question := b.parse(m.Content, m.GuildID == "")
	switch cmd {
	case discordStart:
		if _, err := sender.ChannelMessageSend(m.ChannelID, Greeting(b.greeting, m.Author.Mention())); err != nil {
			b.logger.Error().Err(err).Str("channel_id", m.ChannelID).Msg("sending discord greeting")
		}
		return
	case discordIgnore:
		return
	}

	resp, err := b.gateway.Process(ctx, IncomingMessage{
		Platform:  PlatformDiscord,
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		UserName:  m.Author.Username,
		Text:      question,
		Timestamp: m.Timestamp.String(),
	})
	if err != nil {
		b.logger.Error().Err(err).Str("channel_id", m.ChannelID).Msg("processing discord message")
		return
	}
	if resp == nil {
		return
	}

	for _, part := range SplitMessage(resp.Text, DiscordMaxMessage) {
		if _, err := sender.ChannelMessageSend(m.ChannelID, part); err != nil {
			b.logger.Error().Err(err).
				Str("request_id", resp.RequestID).
				Str("channel_id", m.ChannelID).
				Msg("sending discord reply")
			return
		}
	}
}
