package tools

import (
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/dealsight/internal/models"
)

// ErrorResult creates a tool error result with optional recovery hint.
// If hint is non-empty, formats as "{msg}. {hint}".
// Returns IsError=true so LLM can see the error and self-correct.
func ErrorResult(msg, hint string) *mcp.CallToolResult {
	text := msg
	if hint != "" {
		text = msg + ". " + hint
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}

// TextResult creates a success result with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ServiceErrorResult maps a service error onto a tool error with a hint
// matching its kind.
func ServiceErrorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, models.ErrProviderTimeout):
		return ErrorResult(err.Error(), "The provider timed out, retry the call")
	case errors.Is(err, models.ErrCollectionNotFound):
		return ErrorResult(err.Error(), "Run ingest for this collection first")
	case errors.Is(err, models.ErrConfiguration):
		return ErrorResult(err.Error(), "Check the tool arguments")
	case errors.Is(err, models.ErrEmbedding):
		return ErrorResult(err.Error(), "Check the embedding provider connection")
	case errors.Is(err, models.ErrSynthesis):
		return ErrorResult(err.Error(), "Check the language model provider")
	default:
		return ErrorResult(err.Error(), "Database may be unavailable")
	}
}
