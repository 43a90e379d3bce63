package mcp

import "github.com/mark3labs/mcp-go/mcp"

var askChatflowTool = mcp.NewTool("ask_chatflow",
	mcp.WithDescription("Ask the configured Flowise chatflow a question about the indexed notes. Returns the chatflow's answer as text."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The question to ask, in natural language"),
	),
)

var chatflowInfoTool = mcp.NewTool("chatflow_info",
	mcp.WithDescription("Show which Flowise prediction endpoint questions are sent to and the request timeout."),
)

var recentExchangesTool = mcp.NewTool("recent_exchanges",
	mcp.WithDescription("List recently relayed questions with their outcome, newest first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of exchanges to return (default 10)"),
	),
	mcp.WithString("outcome",
		mcp.Description("Only return exchanges with this outcome"),
		mcp.Enum("answered", "empty", "unauthorized", "service_error", "unreachable"),
	),
)
