package bots

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// slackTimestampWindow bounds how old a signed request may be.
const slackTimestampWindow = 5 * time.Minute

// slackEventTTL is how long a delivered event_id is remembered. Slack
// gives up retrying well within it.
const slackEventTTL = time.Hour

// slackPoster is the subset of *slack.Client used to reply.
type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackHandler handles incoming Slack webhook events. Events are
// acknowledged at once and answered asynchronously with chat.postMessage.
type SlackHandler struct {
	gateway       *Gateway
	poster        slackPoster
	signingSecret string
	logger        zerolog.Logger
	now           func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time

	wg sync.WaitGroup
}

// NewSlackHandler creates a new Slack event handler that replies as the bot
// identified by botToken.
func NewSlackHandler(gateway *Gateway, botToken, signingSecret string, logger zerolog.Logger, opts ...slack.Option) *SlackHandler {
	return &SlackHandler{
		gateway:       gateway,
		poster:        slack.New(botToken, opts...),
		signingSecret: signingSecret,
		logger:        logger,
		now:           time.Now,
		seen:          make(map[string]time.Time),
	}
}

// slackEvent represents the top-level Slack event payload.
type slackEvent struct {
	Type      string          `json:"type"`
	Token     string          `json:"token"`
	Challenge string          `json:"challenge"`
	EventID   string          `json:"event_id"`
	Event     slackInnerEvent `json:"event"`
}

// slackInnerEvent represents the inner event in a Slack event_callback.
type slackInnerEvent struct {
	Type     string `json:"type"`
	User     string `json:"user"`
	Text     string `json:"text"`
	Channel  string `json:"channel"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
	BotID    string `json:"bot_id"`
}

// HandleEvent handles incoming Slack events (HTTP POST).
func (h *SlackHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if h.signingSecret != "" && !h.verifySignature(r, body) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var event slackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "url_verification":
		writeJSON(w, map[string]string{"challenge": event.Challenge})

	case "event_callback":
		w.WriteHeader(http.StatusOK)

		// Skip bot messages to avoid loops.
		if event.Event.BotID != "" || event.Event.Type != "message" {
			return
		}
		// Each event is answered once, however often Slack redelivers it.
		retry := r.Header.Get("X-Slack-Retry-Num")
		if !h.firstDelivery(event.EventID) || (event.EventID == "" && retry != "") {
			h.logger.Debug().
				Str("event_id", event.EventID).
				Str("retry", retry).
				Msg("dropping redelivered slack event")
			return
		}

		threadID := event.Event.ThreadTS
		if threadID == "" {
			threadID = event.Event.TS
		}
		msg := IncomingMessage{
			Platform:  PlatformSlack,
			ChannelID: event.Event.Channel,
			UserID:    event.Event.User,
			Text:      event.Event.Text,
			ThreadID:  threadID,
			Timestamp: event.Event.TS,
		}

		// The reply outlives the webhook request.
		ctx := context.WithoutCancel(r.Context())
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.reply(ctx, msg)
		}()

	default:
		w.WriteHeader(http.StatusOK)
	}
}

// Wait blocks until every accepted event has been answered. Call it after
// the HTTP server has stopped accepting requests.
func (h *SlackHandler) Wait() {
	h.wg.Wait()
}

func (h *SlackHandler) reply(ctx context.Context, msg IncomingMessage) {
	resp, err := h.gateway.Process(ctx, msg)
	if err != nil {
		h.logger.Error().Err(err).Str("channel_id", msg.ChannelID).Msg("processing slack event")
		return
	}
	if resp == nil {
		return
	}

	for _, part := range SplitMessage(slackText(resp.Text), SlackMaxMessage) {
		opts := []slack.MsgOption{slack.MsgOptionText(part, false)}
		if resp.ThreadID != "" {
			opts = append(opts, slack.MsgOptionTS(resp.ThreadID))
		}
		if _, _, err := h.poster.PostMessageContext(ctx, resp.ChannelID, opts...); err != nil {
			h.logger.Error().Err(err).
				Str("request_id", resp.RequestID).
				Str("channel_id", resp.ChannelID).
				Msg("posting slack reply")
			return
		}
	}
}

// firstDelivery records id and reports whether it had not been seen within
// slackEventTTL. Events without an id are always accepted.
func (h *SlackHandler) firstDelivery(id string) bool {
	if id == "" {
		return true
	}
	now := h.now()

	h.mu.Lock()
	defer h.mu.Unlock()
	for seenID, at := range h.seen {
		if now.Sub(at) > slackEventTTL {
			delete(h.seen, seenID)
		}
	}
	if _, ok := h.seen[id]; ok {
		return false
	}
	h.seen[id] = now
	return true
}

// verifySignature checks the v0 HMAC-SHA256 signature and the request age.
func (h *SlackHandler) verifySignature(r *http.Request, body []byte) bool {
	timestamp := r.Header.Get("X-Slack-Request-Timestamp")
	signature := r.Header.Get("X-Slack-Signature")

	if timestamp == "" || signature == "" {
		return false
	}
	if !verifyTimestamp(timestamp, h.now()) {
		return false
	}

	return hmac.Equal([]byte(slackSignature(h.signingSecret, timestamp, body)), []byte(signature))
}

func slackSignature(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:%s", timestamp, body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

// verifyTimestamp checks that the request timestamp is within the window
// around now.
func verifyTimestamp(timestamp string, now time.Time) bool {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	diff := now.Sub(time.Unix(ts, 0))
	if diff < 0 {
		diff = -diff
	}
	return diff <= slackTimestampWindow
}

// slackText adapts answer text to Slack mrkdwn, which has no list syntax.
func slackText(text string) string {
	if !strings.Contains(text, "\n") {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if rest, ok := strings.CutPrefix(line, "- "); ok {
			lines[i] = "• " + rest
		}
	}
	return strings.Join(lines, "\n")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
