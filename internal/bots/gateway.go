package bots

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/flowrelay/internal/relay"
)

// MessageHandler processes incoming messages and produces responses.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg IncomingMessage) (*OutgoingMessage, error)
}

// Gateway is the platform-agnostic bot gateway that routes messages
// to a handler for processing.
type Gateway struct {
	handler MessageHandler
	logger  zerolog.Logger
}

// NewGateway creates a new Gateway with the given message handler.
func NewGateway(handler MessageHandler, logger zerolog.Logger) *Gateway {
	return &Gateway{handler: handler, logger: logger}
}

// Process routes an incoming message through the handler. Messages that are
// blank after trimming are dropped: the result is nil with no error and the
// handler is never called.
func (g *Gateway) Process(ctx context.Context, msg IncomingMessage) (*OutgoingMessage, error) {
	msg.Text = strings.TrimSpace(msg.Text)
	if msg.Text == "" {
		g.logger.Debug().
			Str("platform", string(msg.Platform)).
			Str("channel_id", msg.ChannelID).
			Msg("dropping blank message")
		return nil, nil
	}
	if msg.RequestID == "" {
		msg.RequestID = uuid.NewString()
	}
	ctx = relay.ContextWithRequestID(ctx, msg.RequestID)

	resp, err := g.handler.HandleMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.RequestID == "" {
		resp.RequestID = msg.RequestID
	}
	return resp, nil
}
