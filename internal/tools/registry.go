package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/dealsight/internal/config"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies, cfg *config.Config) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ping",
		Description: "Test tool - responds with pong or echoes input",
	}, NewPingHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_deals",
		Description: "Find past M&A deals similar to a query, optionally filtered by sector and section",
	}, NewSearchHandler(deps, cfg))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "synthesize_lessons",
		Description: "Answer a question with integration risks, outcomes and lessons drawn from similar past deals",
	}, NewSynthesizeHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stats",
		Description: "Report embedding, generation and database timings since startup",
	}, NewStatsHandler(deps))
}
