package braintools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mkm-lab/athena/internal/memory"
)

// SearchTool handles the memory_search MCP tool.
type SearchTool struct {
	store *memory.Store
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(store *memory.Store) *SearchTool {
	return &SearchTool{store: store}
}

// Definition returns the MCP tool definition for memory_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_search",
		mcp.WithDescription(
			"Search stored memories semantically. Use this to recall user preferences, "+
				"past decisions, and project context before answering.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query — natural language or keywords"),
		),
		mcp.WithString("category",
			mcp.Description("Filter by category: preference, project, conversation, general"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 5, max: 20)"),
		),
	)
}

// Handle processes the memory_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	results, err := t.store.Search(ctx, query, memory.SearchOptions{
		Category: req.GetString("category", ""),
		Limit:    intArg(req, "limit", 5),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No memories found matching your query."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d memories:\n\n", len(results))
	for i, r := range results {
		tags := ""
		if len(r.Tags) > 0 {
			tags = " | tags: " + strings.Join(r.Tags, ", ")
		}
		fmt.Fprintf(&b, "[%d] score %.3f (%s)\n    %s\n    %s%s\n\n",
			i+1, r.Score, r.Category,
			memory.Truncate(r.Content, 300),
			r.CreatedAt, tags,
		)
	}

	return mcp.NewToolResultText(b.String()), nil
}
