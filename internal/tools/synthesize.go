package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SynthesizeInput defines the input schema for the synthesize_lessons tool.
type SynthesizeInput struct {
	Query string `json:"query" jsonschema:"required,Question about integration risks, outcomes or lessons across deals"`
}

// NewSynthesizeHandler creates the synthesize_lessons tool handler.
// The answer is followed by the ids of the deals used as evidence.
func NewSynthesizeHandler(deps *Dependencies) mcp.ToolHandlerFor[SynthesizeInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SynthesizeInput) (
		*mcp.CallToolResult, any, error,
	) {
		if strings.TrimSpace(input.Query) == "" {
			return ErrorResult("Query cannot be empty", "Ask a question about past deals"), nil, nil
		}

		st, err := deps.Synthesizer.Run(ctx, input.Query)
		if err != nil {
			deps.Logger.Error("synthesis failed", "query", shorten(input.Query, 30), "error", err)
			return ServiceErrorResult(err), nil, nil
		}

		var b strings.Builder
		b.WriteString(st.Answer)
		if st.HasEvidence() {
			b.WriteString("\n\nEvidence:")
			for _, h := range st.Hits {
				b.WriteString("\n- ")
				b.WriteString(h.ID)
			}
		}

		deps.Logger.Info("synthesis completed", "query", shorten(input.Query, 30), "evidence", len(st.Hits))
		return TextResult(b.String()), nil, nil
	}
}
