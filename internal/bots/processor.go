package bots

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/flowrelay/internal/audit"
	"github.com/ziadkadry99/flowrelay/internal/relay"
)

// Asker relays one question to the chatflow. *relay.Adapter implements it.
type Asker interface {
	Ask(ctx context.Context, question string) relay.Result
}

// Recorder persists a finished exchange. *audit.Store implements it.
type Recorder interface {
	Record(ctx context.Context, ex audit.Exchange) error
}

// Processor connects incoming bot messages to the Flowise relay.
type Processor struct {
	asker    Asker
	recorder Recorder
	logger   zerolog.Logger
}

// NewProcessor creates a new message processor. recorder may be nil.
func NewProcessor(asker Asker, recorder Recorder, logger zerolog.Logger) *Processor {
	return &Processor{
		asker:    asker,
		recorder: recorder,
		logger:   logger,
	}
}

// HandleMessage relays the message text and replies with whatever the relay
// produced, diagnostics included. It never returns an error.
func (p *Processor) HandleMessage(ctx context.Context, msg IncomingMessage) (*OutgoingMessage, error) {
	res := p.asker.Ask(ctx, msg.Text)

	p.logger.Info().
		Str("request_id", msg.RequestID).
		Str("platform", string(msg.Platform)).
		Str("channel_id", msg.ChannelID).
		Str("outcome", res.Outcome.String()).
		Dur("elapsed", res.Elapsed).
		Msg("relayed question")

	if p.recorder != nil {
		ex := audit.Exchange{
			RequestID:   msg.RequestID,
			Timestamp:   time.Now(),
			Platform:    string(msg.Platform),
			ChannelID:   msg.ChannelID,
			UserID:      msg.UserID,
			Question:    msg.Text,
			Outcome:     res.Outcome.String(),
			StatusCode:  res.StatusCode,
			AnswerChars: utf8.RuneCountInString(res.Text),
			ElapsedMS:   res.Elapsed.Milliseconds(),
		}
		if err := p.recorder.Record(ctx, ex); err != nil {
			p.logger.Warn().Err(err).Str("request_id", msg.RequestID).Msg("recording exchange")
		}
	}

	return &OutgoingMessage{
		ChannelID: msg.ChannelID,
		ThreadID:  msg.ThreadID,
		Text:      res.Text,
		RequestID: msg.RequestID,
	}, nil
}
