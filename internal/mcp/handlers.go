package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/flowrelay/internal/audit"
	"github.com/ziadkadry99/flowrelay/internal/relay"
)

// handleAskChatflow relays the question. Diagnostics from the relay are
// returned as tool errors so the client can tell them apart from answers.
func (s *Server) handleAskChatflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return mcp.NewToolResultError("question must not be blank"), nil
	}

	requestID := uuid.NewString()
	res := s.asker.Ask(relay.ContextWithRequestID(ctx, requestID), question)
	s.logger.Info().
		Str("request_id", requestID).
		Str("outcome", res.Outcome.String()).
		Dur("elapsed", res.Elapsed).
		Msg("mcp question relayed")

	if !res.OK() {
		return mcp.NewToolResultError(res.Text), nil
	}
	return mcp.NewToolResultText(res.Text), nil
}

func (s *Server) handleChatflowInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(fmt.Sprintf("Endpoint: %s\nTimeout: %s", s.asker.Endpoint(), s.asker.Timeout())), nil
}

func (s *Server) handleRecentExchanges(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	exchanges, err := s.history.Query(ctx, audit.QueryFilter{
		Outcome: request.GetString("outcome", ""),
		Limit:   limit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing exchanges failed: %v", err)), nil
	}
	if len(exchanges) == 0 {
		return mcp.NewToolResultText("No exchanges recorded yet."), nil
	}

	return mcp.NewToolResultText(formatExchanges(exchanges)), nil
}

func formatExchanges(exchanges []audit.Exchange) string {
	var b strings.Builder
	for i, ex := range exchanges {
		fmt.Fprintf(&b, "%d. [%s] %s via %s (%d ms)\n   %s\n",
			i+1,
			ex.Timestamp.Format("2006-01-02 15:04:05"),
			ex.Outcome,
			ex.Platform,
			ex.ElapsedMS,
			ex.Question,
		)
	}
	return b.String()
}
