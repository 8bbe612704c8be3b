package braintools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mkm-lab/athena/internal/memory"
)

// StoreTool handles the memory_store MCP tool.
type StoreTool struct {
	store *memory.Store
}

// NewStoreTool creates a StoreTool with the given memory store.
func NewStoreTool(store *memory.Store) *StoreTool {
	return &StoreTool{store: store}
}

// Definition returns the MCP tool definition for memory_store.
func (t *StoreTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_store",
		mcp.WithDescription(
			"Store a memory for later semantic recall. Save user preferences, project facts, "+
				"decisions, and anything worth remembering across sessions.",
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The memory content (e.g. 'User prefers Python for data work')"),
		),
		mcp.WithString("category",
			mcp.Description("Category: preference, project, conversation, general (default: general)"),
		),
		mcp.WithArray("tags",
			mcp.Description("Optional tags for the memory"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Optional metadata object"),
		),
	)
}

// Handle processes the memory_store tool call.
func (t *StoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := req.GetString("content", "")
	if content == "" {
		return mcp.NewToolResultError("'content' is required"), nil
	}

	result := t.store.Store(ctx, memory.StoreParams{
		Content:  content,
		Category: req.GetString("category", "general"),
		Tags:     stringSliceArg(req, "tags"),
		Metadata: mapArg(req, "metadata"),
	})
	if !result.Success {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store memory: %s", result.Error)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\nID: %s", result.Message, result.ID)), nil
}
