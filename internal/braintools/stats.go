package braintools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mkm-lab/athena/internal/memory"
)

// StatsTool handles the memory_stats MCP tool.
type StatsTool struct {
	store *memory.Store
}

// NewStatsTool creates a StatsTool.
func NewStatsTool(store *memory.Store) *StatsTool {
	return &StatsTool{store: store}
}

// Definition returns the MCP tool definition for memory_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_stats",
		mcp.WithDescription(
			"Show memory store statistics: total memories, per-category counts, embedding engine.",
		),
	)
}

// Handle processes the memory_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.store.Stats()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading stats: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Memory Statistics\n\n")
	fmt.Fprintf(&b, "- **Total memories**: %d\n", stats.TotalMemories)
	fmt.Fprintf(&b, "- **Embedding engine**: %s\n", stats.Engine)

	if len(stats.ByCategory) > 0 {
		fmt.Fprintf(&b, "\n## By category\n\n")
		categories := make([]string, 0, len(stats.ByCategory))
		for c := range stats.ByCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			fmt.Fprintf(&b, "- %s: %d\n", c, stats.ByCategory[c])
		}
	}

	return mcp.NewToolResultText(b.String()), nil
}
