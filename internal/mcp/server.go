package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/flowrelay/internal/audit"
	"github.com/ziadkadry99/flowrelay/internal/relay"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Asker relays a question to the chatflow.
type Asker interface {
	Ask(ctx context.Context, question string) relay.Result
	Endpoint() string
	Timeout() time.Duration
}

// History lists recorded exchanges.
type History interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Exchange, error)
}

// Server wraps an MCP server that exposes the chatflow as tools.
type Server struct {
	asker   Asker
	history History
	logger  zerolog.Logger
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server. history may be nil, in which case the
// recent_exchanges tool is not offered.
func NewServer(asker Asker, history History, logger zerolog.Logger) *Server {
	s := &Server{
		asker:   asker,
		history: history,
		logger:  logger,
	}

	s.mcp = server.NewMCPServer(
		"flowrelay",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(askChatflowTool, s.handleAskChatflow)
	s.mcp.AddTool(chatflowInfoTool, s.handleChatflowInfo)
	if s.history != nil {
		s.mcp.AddTool(recentExchangesTool, s.handleRecentExchanges)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
