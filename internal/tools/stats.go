package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatsInput is empty; stats takes no arguments.
type StatsInput struct{}

// NewStatsHandler creates the stats tool handler, which reports embedding,
// generation and store timings collected since startup.
func NewStatsHandler(deps *Dependencies) mcp.ToolHandlerFor[StatsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (*mcp.CallToolResult, any, error) {
		if deps.Metrics == nil {
			return ErrorResult("Metrics are not enabled", ""), nil, nil
		}
		jsonBytes, _ := json.MarshalIndent(deps.Metrics.Snapshot(), "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}
