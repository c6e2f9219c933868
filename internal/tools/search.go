package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/dealsight/internal/config"
	"github.com/raphaelgruber/dealsight/internal/models"
	"github.com/raphaelgruber/dealsight/internal/service"
)

// maxTopK bounds how many hits a single tool call may request.
const maxTopK = 100

// SearchInput defines the input schema for the search_deals tool.
type SearchInput struct {
	Query        string `json:"query" jsonschema:"required,The search query text"`
	Collection   string `json:"collection,omitempty" jsonschema:"Collection to search, defaults to the configured one"`
	TopK         int    `json:"top_k,omitempty" jsonschema:"Max results 1-100, defaults to the configured top_k"`
	Sector       string `json:"sector,omitempty" jsonschema:"Only return deals in this sector, defaults to the configured sector; use any for no sector filter"`
	DocumentType string `json:"document_type,omitempty" jsonschema:"Only return deals with this section: summary, risks or outcome, defaults to the configured one; use any for no section filter"`
}

// SearchResult is the JSON body returned by search_deals.
type SearchResult struct {
	Hits  []models.SearchHit `json:"hits"`
	Count int                `json:"count"`
}

// NewSearchHandler creates the search_deals tool handler.
// Unset arguments fall back to the configured collection, top_k and filters.
// A filter argument of "any" drops the configured default for that call.
func NewSearchHandler(deps *Dependencies, cfg *config.Config) mcp.ToolHandlerFor[SearchInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.Query == "" {
			return ErrorResult("Query cannot be empty", "Provide a search query"), nil, nil
		}

		topK := input.TopK
		if topK <= 0 {
			topK = cfg.TopK
		}
		if topK > maxTopK {
			return ErrorResult("top_k must be 1-100", "Reduce top_k value"), nil, nil
		}

		opts := service.SearchOptions{
			Query:        input.Query,
			Collection:   firstNonEmpty(input.Collection, cfg.Collection),
			TopK:         topK,
			Sector:       config.FilterValue(input.Sector, cfg.DefaultSector),
			DocumentType: config.FilterValue(input.DocumentType, cfg.DefaultDocumentType),
		}

		hits, err := deps.Search.Search(ctx, opts)
		if err != nil {
			deps.Logger.Error("search failed", "collection", opts.Collection, "error", err)
			return ServiceErrorResult(err), nil, nil
		}

		jsonBytes, _ := json.MarshalIndent(SearchResult{Hits: hits, Count: len(hits)}, "", "  ")

		deps.Logger.Info("search completed", "query", shorten(input.Query, 30), "results", len(hits))
		return TextResult(string(jsonBytes)), nil, nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// shorten cuts s to n runes for log output.
func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
