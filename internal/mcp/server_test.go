package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/flowrelay/internal/audit"
	"github.com/ziadkadry99/flowrelay/internal/relay"
)

type mockAsker struct {
	result    relay.Result
	question  string
	requestID string
	calls     int
}

func (m *mockAsker) Ask(ctx context.Context, question string) relay.Result {
	m.calls++
	m.question = question
	m.requestID = relay.RequestIDFromContext(ctx)
	return m.result
}

func (m *mockAsker) Endpoint() string       { return "http://flowise:3000/api/v1/prediction/abc" }
func (m *mockAsker) Timeout() time.Duration { return 30 * time.Second }

type mockHistory struct {
	exchanges []audit.Exchange
	filter    audit.QueryFilter
	err       error
}

func (m *mockHistory) Query(_ context.Context, filter audit.QueryFilter) ([]audit.Exchange, error) {
	m.filter = filter
	return m.exchanges, m.err
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	return text.Text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		tool     mcp.Tool
		wantName string
	}{
		{askChatflowTool, "ask_chatflow"},
		{chatflowInfoTool, "chatflow_info"},
		{recentExchangesTool, "recent_exchanges"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}

	if len(askChatflowTool.InputSchema.Required) != 1 || askChatflowTool.InputSchema.Required[0] != "question" {
		t.Errorf("ask_chatflow required = %v, want [question]", askChatflowTool.InputSchema.Required)
	}
}

func TestNewServer(t *testing.T) {
	srv := NewServer(&mockAsker{}, nil, zerolog.Nop())
	if srv == nil || srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.history != nil {
		t.Error("history should be nil")
	}
}

func TestHandleAskChatflow(t *testing.T) {
	ctx := context.Background()

	t.Run("answered", func(t *testing.T) {
		asker := &mockAsker{result: relay.Result{Outcome: relay.OutcomeAnswered, Text: "You wrote about channels."}}
		srv := NewServer(asker, nil, zerolog.Nop())

		result, err := srv.handleAskChatflow(ctx, callRequest(map[string]any{"question": "  what about Go?  "}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		if got := resultText(t, result); got != "You wrote about channels." {
			t.Errorf("text = %q", got)
		}
		if asker.question != "what about Go?" {
			t.Errorf("question = %q, want trimmed", asker.question)
		}
		if asker.requestID == "" {
			t.Error("expected a request id on the context")
		}
	})

	t.Run("diagnostic is a tool error", func(t *testing.T) {
		asker := &mockAsker{result: relay.Result{Outcome: relay.OutcomeUnreachable, Text: relay.DefaultMessages().Unreachable}}
		srv := NewServer(asker, nil, zerolog.Nop())

		result, err := srv.handleAskChatflow(ctx, callRequest(map[string]any{"question": "q"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected tool error for unreachable outcome")
		}
		if got := resultText(t, result); got != relay.DefaultMessages().Unreachable {
			t.Errorf("text = %q", got)
		}
	})

	t.Run("missing question", func(t *testing.T) {
		asker := &mockAsker{}
		srv := NewServer(asker, nil, zerolog.Nop())

		result, err := srv.handleAskChatflow(ctx, callRequest(map[string]any{}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing question")
		}
		if asker.calls != 0 {
			t.Error("relay should not be called")
		}
	})

	t.Run("blank question", func(t *testing.T) {
		asker := &mockAsker{}
		srv := NewServer(asker, nil, zerolog.Nop())

		result, _ := srv.handleAskChatflow(ctx, callRequest(map[string]any{"question": "   "}))
		if !result.IsError {
			t.Error("expected error for blank question")
		}
		if asker.calls != 0 {
			t.Error("relay should not be called")
		}
	})
}

func TestHandleChatflowInfo(t *testing.T) {
	srv := NewServer(&mockAsker{}, nil, zerolog.Nop())
	result, err := srv.handleChatflowInfo(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Endpoint: http://flowise:3000/api/v1/prediction/abc\nTimeout: 30s"
	if got := resultText(t, result); got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
}

func TestHandleRecentExchanges(t *testing.T) {
	ctx := context.Background()

	t.Run("lists exchanges", func(t *testing.T) {
		history := &mockHistory{exchanges: []audit.Exchange{{
			Timestamp: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
			Platform:  "telegram",
			Question:  "where are my book notes?",
			Outcome:   "answered",
			ElapsedMS: 640,
		}}}
		srv := NewServer(&mockAsker{}, history, zerolog.Nop())

		result, err := srv.handleRecentExchanges(ctx, callRequest(map[string]any{"limit": float64(5), "outcome": "answered"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "1. [2026-05-01 10:00:00] answered via telegram (640 ms)\n   where are my book notes?\n"
		if got := resultText(t, result); got != want {
			t.Errorf("text = %q, want %q", got, want)
		}
		if history.filter.Limit != 5 || history.filter.Outcome != "answered" {
			t.Errorf("filter = %+v", history.filter)
		}
	})

	t.Run("default limit and empty history", func(t *testing.T) {
		history := &mockHistory{}
		srv := NewServer(&mockAsker{}, history, zerolog.Nop())

		result, _ := srv.handleRecentExchanges(ctx, callRequest(nil))
		if got := resultText(t, result); got != "No exchanges recorded yet." {
			t.Errorf("text = %q", got)
		}
		if history.filter.Limit != 10 {
			t.Errorf("limit = %d, want 10", history.filter.Limit)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		srv := NewServer(&mockAsker{}, &mockHistory{err: errors.New("locked")}, zerolog.Nop())
		result, _ := srv.handleRecentExchanges(ctx, callRequest(nil))
		if !result.IsError {
			t.Error("expected tool error")
		}
	})
}
