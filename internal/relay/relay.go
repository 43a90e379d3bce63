// Package relay forwards user questions to a Flowise prediction endpoint and
// turns whatever comes back into text that can be shown to the user.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single prediction request.
const DefaultTimeout = 30 * time.Second

const predictionPath = "/api/v1/prediction/"

// maxResponseBytes caps how much of a prediction response body is read.
const maxResponseBytes = 1 << 20

// Config is the immutable relay configuration, built once at startup.
type Config struct {
	BaseURL    string
	ChatflowID string
	// APIKey is sent as x-api-key. Empty is valid and means no auth.
	APIKey   string
	Timeout  time.Duration
	Messages Messages
}

// Adapter relays questions to the prediction service. It holds no mutable
// state and is safe for concurrent use.
type Adapter struct {
	cfg      Config
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

// Option customises an Adapter.
type Option func(*Adapter)

// WithHTTPClient replaces the default client. The client's own Timeout is
// left untouched; the per-request deadline still applies.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// WithLogger sets the logger used for failure reports.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// New creates an Adapter for the given configuration.
func New(cfg Config, opts ...Option) *Adapter {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.Messages = cfg.Messages.withDefaults()

	a := &Adapter{
		cfg:      cfg,
		endpoint: cfg.BaseURL + predictionPath + url.PathEscape(cfg.ChatflowID),
		client:   &http.Client{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Endpoint returns the prediction URL requests are posted to.
func (a *Adapter) Endpoint() string { return a.endpoint }

// Timeout returns the per-request deadline.
func (a *Adapter) Timeout() time.Duration { return a.cfg.Timeout }

// Answer relays question and returns the text to show the user. It never
// fails: every error is converted into a diagnostic message.
func (a *Adapter) Answer(ctx context.Context, question string) string {
	return a.Ask(ctx, question).Text
}

// Ask performs exactly one prediction request and classifies the result.
func (a *Adapter) Ask(ctx context.Context, question string) Result {
	start := time.Now()
	res := a.ask(ctx, question)
	res.Elapsed = time.Since(start)
	return res
}

func (a *Adapter) ask(ctx context.Context, question string) Result {
	body, err := a.predict(ctx, question)
	if err != nil {
		return a.failure(ctx, err)
	}

	answer, ok := ExtractAnswer(body)
	if !ok {
		return Result{Outcome: OutcomeEmpty, Text: a.cfg.Messages.EmptyAnswer, StatusCode: http.StatusOK}
	}
	return Result{Outcome: OutcomeAnswered, Text: answer, StatusCode: http.StatusOK}
}

type predictionRequest struct {
	Question string `json:"question"`
}

// predict posts the question and decodes the reply into a generic tree.
func (a *Adapter) predict(ctx context.Context, question string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(predictionRequest{Question: question})
	if err != nil {
		return nil, fmt.Errorf("marshalling prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating prediction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prediction request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading prediction response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decoding prediction response: %w", err)
	}
	if body == nil {
		return nil, errors.New("decoding prediction response: body is not a JSON object")
	}
	return body, nil
}

// failure logs err and maps it to the matching diagnostic.
func (a *Adapter) failure(ctx context.Context, err error) Result {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		a.logger.Error().
			Str("request_id", RequestIDFromContext(ctx)).
			Str("endpoint", a.endpoint).
			Int("status", statusErr.StatusCode).
			Str("body", statusErr.Body).
			Msg("prediction service returned an error status")

		if statusErr.StatusCode == http.StatusUnauthorized {
			return Result{
				Outcome:    OutcomeUnauthorized,
				Text:       a.cfg.Messages.Unauthorized,
				StatusCode: statusErr.StatusCode,
				Err:        err,
			}
		}
		return Result{
			Outcome:    OutcomeServiceError,
			Text:       a.cfg.Messages.serviceError(statusErr.StatusCode, statusErr.Body),
			StatusCode: statusErr.StatusCode,
			Err:        err,
		}
	}

	a.logger.Error().
		Err(err).
		Str("request_id", RequestIDFromContext(ctx)).
		Str("endpoint", a.endpoint).
		Msg("could not reach prediction service")

	return Result{Outcome: OutcomeUnreachable, Text: a.cfg.Messages.Unreachable, Err: err}
}
