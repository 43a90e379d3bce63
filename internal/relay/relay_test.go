package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFlowise serves a fixed status and body for every prediction request
// and captures the last request it saw.
type fakeFlowise struct {
	status int
	body   string

	calls      atomic.Int32
	lastPath   string
	lastHeader http.Header
	lastBody   []byte
}

func (f *fakeFlowise) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	f.lastPath = r.URL.Path
	f.lastHeader = r.Header.Clone()
	f.lastBody, _ = io.ReadAll(r.Body)
	w.WriteHeader(f.status)
	io.WriteString(w, f.body)
}

func newTestAdapter(t *testing.T, status int, body string, opts ...Option) (*Adapter, *fakeFlowise) {
	t.Helper()
	fake := &fakeFlowise{status: status, body: body}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	a := New(Config{
		BaseURL:    srv.URL + "/",
		ChatflowID: "flow-123",
		APIKey:     "secret",
		Timeout:    2 * time.Second,
	}, opts...)
	return a, fake
}

func TestAskSendsPredictionRequest(t *testing.T) {
	a, fake := newTestAdapter(t, http.StatusOK, `{"text":"hi"}`)

	res := a.Ask(context.Background(), "what is in my notes?")
	require.Equal(t, OutcomeAnswered, res.Outcome)

	assert.Equal(t, "/api/v1/prediction/flow-123", fake.lastPath)
	assert.Equal(t, "application/json", fake.lastHeader.Get("Content-Type"))
	assert.Equal(t, "secret", fake.lastHeader.Get("x-api-key"))

	var payload map[string]string
	require.NoError(t, json.Unmarshal(fake.lastBody, &payload))
	assert.Equal(t, map[string]string{"question": "what is in my notes?"}, payload)
}

func TestAskEmptyAPIKeyStillSendsHeader(t *testing.T) {
	fake := &fakeFlowise{status: http.StatusOK, body: `{"text":"ok"}`}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, ChatflowID: "f"})
	assert.Equal(t, "ok", a.Answer(context.Background(), "q"))

	values, present := fake.lastHeader["X-Api-Key"]
	require.True(t, present, "x-api-key header should be sent even when empty")
	assert.Equal(t, []string{""}, values)
}

func TestEndpointTrimsTrailingSlash(t *testing.T) {
	a := New(Config{BaseURL: "http://localhost:3000///", ChatflowID: "abc"})
	assert.Equal(t, "http://localhost:3000/api/v1/prediction/abc", a.Endpoint())
	assert.Equal(t, DefaultTimeout, a.Timeout())
}

func TestAnswerPrecedence(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"data.text wins over everything", `{"data":{"text":"A","answer":"B"},"text":"C","answer":"D","response":"E"}`, "A"},
		{"data.answer before top-level", `{"data":{"answer":"B"},"text":"C"}`, "B"},
		{"top-level text", `{"text":"C","answer":"D","response":"E"}`, "C"},
		{"only answer", `{"answer":"D"}`, "D"},
		{"only response", `{"response":"E"}`, "E"},
		{"empty data.text falls through", `{"data":{"text":""},"answer":"D"}`, "D"},
		{"non-object data ignored", `{"data":"oops","text":"C"}`, "C"},
		{"null data ignored", `{"data":null,"response":"E"}`, "E"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestAdapter(t, http.StatusOK, tt.body)
			res := a.Ask(context.Background(), "q")
			assert.Equal(t, OutcomeAnswered, res.Outcome)
			assert.Equal(t, tt.want, res.Text)
		})
	}
}

func TestAnswerEmptyResponse(t *testing.T) {
	for _, body := range []string{`{}`, `{"foo":"bar"}`, `{"text":""}`, `{"text":42}`, `{"data":{}}`} {
		a, _ := newTestAdapter(t, http.StatusOK, body)
		res := a.Ask(context.Background(), "q")
		assert.Equal(t, OutcomeEmpty, res.Outcome, body)
		assert.Equal(t, DefaultMessages().EmptyAnswer, res.Text, body)
		assert.NoError(t, res.Err)
	}
}

func TestAnswerUnauthorized(t *testing.T) {
	a, _ := newTestAdapter(t, http.StatusUnauthorized, `{"message":"Unauthorized Access"}`)

	res := a.Ask(context.Background(), "q")
	assert.Equal(t, OutcomeUnauthorized, res.Outcome)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Contains(t, res.Text, "API key")
	assert.Contains(t, res.Text, "chatflow ID")
	assert.NotContains(t, res.Text, "Unauthorized Access")
}

func TestAnswerServiceErrorEmbedsStatusAndBody(t *testing.T) {
	a, _ := newTestAdapter(t, http.StatusInternalServerError, "boom")

	res := a.Ask(context.Background(), "q")
	assert.Equal(t, OutcomeServiceError, res.Outcome)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Contains(t, res.Text, "500")
	assert.Contains(t, res.Text, "boom")

	var statusErr *StatusError
	require.ErrorAs(t, res.Err, &statusErr)
	assert.Equal(t, "boom", statusErr.Body)
}

func TestServiceErrorBodyIsBounded(t *testing.T) {
	a, _ := newTestAdapter(t, http.StatusBadGateway, strings.Repeat("x", 2*maxResponseBytes))

	res := a.Ask(context.Background(), "q")
	assert.Equal(t, OutcomeServiceError, res.Outcome)

	var statusErr *StatusError
	require.ErrorAs(t, res.Err, &statusErr)
	assert.Len(t, statusErr.Body, maxResponseBytes)
}

func TestAnswerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	a := New(Config{BaseURL: base, ChatflowID: "f", Timeout: time.Second})

	var res Result
	assert.NotPanics(t, func() { res = a.Ask(context.Background(), "q") })
	assert.Equal(t, OutcomeUnreachable, res.Outcome)
	assert.Equal(t, DefaultMessages().Unreachable, res.Text)
	assert.Error(t, res.Err)
}

func TestAnswerMalformedBodyIsUnreachable(t *testing.T) {
	for _, body := range []string{`not json`, `["a","b"]`, `null`, `"text"`} {
		a, _ := newTestAdapter(t, http.StatusOK, body)
		res := a.Ask(context.Background(), "q")
		assert.Equal(t, OutcomeUnreachable, res.Outcome, body)
	}
}

func TestAnswerTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	a := New(Config{BaseURL: srv.URL, ChatflowID: "f", Timeout: 50 * time.Millisecond})
	res := a.Ask(context.Background(), "q")
	assert.Equal(t, OutcomeUnreachable, res.Outcome)
	assert.Less(t, res.Elapsed, 2*time.Second)
}

func TestAnswerIsIdempotent(t *testing.T) {
	a, fake := newTestAdapter(t, http.StatusOK, `{"data":{"answer":"same"}}`)

	first := a.Answer(context.Background(), "q")
	second := a.Answer(context.Background(), "q")
	assert.Equal(t, "same", first)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 2, fake.calls.Load(), "one request per call, no retries")
}

func TestNoRetryOnFailure(t *testing.T) {
	a, fake := newTestAdapter(t, http.StatusBadGateway, "upstream down")
	a.Answer(context.Background(), "q")
	assert.EqualValues(t, 1, fake.calls.Load())
}

func TestFailureLogging(t *testing.T) {
	var buf bytes.Buffer
	a, _ := newTestAdapter(t, http.StatusInternalServerError, "boom", WithLogger(zerolog.New(&buf)))

	ctx := ContextWithRequestID(context.Background(), "req-1")
	a.Answer(ctx, "q")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.EqualValues(t, 500, entry["status"])
	assert.Equal(t, "boom", entry["body"])
	assert.Equal(t, "req-1", entry["request_id"])
}

func TestNoLoggingOnSuccess(t *testing.T) {
	var buf bytes.Buffer
	a, _ := newTestAdapter(t, http.StatusOK, `{"text":"fine"}`, WithLogger(zerolog.New(&buf)))
	a.Answer(context.Background(), "q")
	assert.Empty(t, buf.String())
}

func TestCustomMessages(t *testing.T) {
	fake := &fakeFlowise{status: http.StatusTeapot, body: "short and stout"}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	a := New(Config{
		BaseURL:    srv.URL,
		ChatflowID: "f",
		Messages:   Messages{ServiceError: "upstream said {status} ({body})"},
	})
	assert.Equal(t, "upstream said 418 (short and stout)", a.Answer(context.Background(), "q"))
}

func TestOutcomeStringRoundTrip(t *testing.T) {
	for o := OutcomeAnswered; o <= OutcomeUnreachable; o++ {
		parsed, ok := ParseOutcome(o.String())
		require.True(t, ok, o.String())
		assert.Equal(t, o, parsed)
	}
	_, ok := ParseOutcome("nope")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Outcome(99).String())
}
