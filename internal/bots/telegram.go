package bots

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// telegramAPI is the subset of *tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	StopReceivingUpdates()
}

// TelegramBot long-polls Telegram and relays text messages through the
// gateway.
type TelegramBot struct {
	api         telegramAPI
	gateway     *Gateway
	greeting    string
	pollTimeout int
	logger      zerolog.Logger

	wg sync.WaitGroup
}

// NewTelegramBot authenticates with the Bot API using token.
func NewTelegramBot(token string, gateway *Gateway, greeting string, pollTimeout int, logger zerolog.Logger) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	logger.Info().Str("username", api.Self.UserName).Msg("authorized on telegram")
	return newTelegramBot(api, gateway, greeting, pollTimeout, logger), nil
}

func newTelegramBot(api telegramAPI, gateway *Gateway, greeting string, pollTimeout int, logger zerolog.Logger) *TelegramBot {
	return &TelegramBot{
		api:         api,
		gateway:     gateway,
		greeting:    greeting,
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

// Run polls for updates until ctx is cancelled or the update channel closes.
// Each update is handled in its own goroutine; Run waits for in-flight
// updates before returning. On cancel, updates the library has already
// fetched are still handled, so shutdown can take up to one poll timeout.
func (b *TelegramBot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)

	// In-flight replies finish even after shutdown starts; the relay timeout
	// bounds them.
	handlerCtx := context.WithoutCancel(ctx)

	b.logger.Info().Msg("telegram polling started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			// Offsets of buffered updates are already acknowledged.
			for update := range updates {
				b.dispatch(handlerCtx, update)
			}
			b.wg.Wait()
			b.logger.Info().Msg("telegram polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.dispatch(handlerCtx, update)
		}
	}
}

func (b *TelegramBot) dispatch(ctx context.Context, update tgbotapi.Update) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.handleUpdate(ctx, update)
	}()
}

func (b *TelegramBot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	if msg.IsCommand() {
		if msg.Command() == "start" {
			b.sendGreeting(msg)
		}
		return
	}

	in := IncomingMessage{
		Platform:  PlatformTelegram,
		ChannelID: strconv.FormatInt(msg.Chat.ID, 10),
		Text:      msg.Text,
		Timestamp: strconv.Itoa(msg.Date),
	}
	if msg.From != nil {
		in.UserID = strconv.FormatInt(msg.From.ID, 10)
		in.UserName = displayName(msg.From)
	}

	resp, err := b.gateway.Process(ctx, in)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("processing telegram message")
		return
	}
	if resp == nil {
		return
	}

	for i, part := range SplitMessage(resp.Text, TelegramMaxMessage) {
		reply := tgbotapi.NewMessage(msg.Chat.ID, part)
		// Groups get the answer threaded to the question.
		if i == 0 && !msg.Chat.IsPrivate() {
			reply.ReplyToMessageID = msg.MessageID
		}
		if _, err := b.api.Send(reply); err != nil {
			b.logger.Error().Err(err).
				Str("request_id", resp.RequestID).
				Int64("chat_id", msg.Chat.ID).
				Msg("sending telegram reply")
			return
		}
	}
}

func (b *TelegramBot) sendGreeting(msg *tgbotapi.Message) {
	mention := "there"
	if msg.From != nil {
		mention = fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, msg.From.ID, html.EscapeString(displayName(msg.From)))
	}

	// The template is plain text; only the mention carries markup.
	text := Greeting(html.EscapeString(b.greeting), mention)
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(reply); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("sending telegram greeting")
	}
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}
