package braintools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mkm-lab/athena/internal/evolution"
)

// ListRulesTool handles the list_rules MCP tool.
type ListRulesTool struct {
	engine *evolution.Engine
}

// NewListRulesTool creates a ListRulesTool.
func NewListRulesTool(engine *evolution.Engine) *ListRulesTool {
	return &ListRulesTool{engine: engine}
}

// Definition returns the MCP tool definition for list_rules.
func (t *ListRulesTool) Definition() mcp.Tool {
	return mcp.NewTool("list_rules",
		mcp.WithDescription(
			"List the standing rules Athena has synthesized from recurring mistakes, "+
				"oldest first. Consult these before starting work.",
		),
		mcp.WithString("category",
			mcp.Description("Filter rules by category (default: all)"),
		),
	)
}

// Handle processes the list_rules tool call.
func (t *ListRulesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := req.GetString("category", "")

	rules, err := t.engine.ListRules(category)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading rules: %v", err)), nil
	}

	if len(rules) == 0 {
		if category != "" {
			return mcp.NewToolResultText(fmt.Sprintf("No rules in category %q yet.", category)), nil
		}
		return mcp.NewToolResultText("No rules yet — Athena learns them from tracked mistakes."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Standing Rules (%d)\n\n", len(rules))
	for i, r := range rules {
		fmt.Fprintf(&b, "## %d. %s\n", i+1, r.RuleID)
		fmt.Fprintf(&b, "%s\n", r.RuleText)
		fmt.Fprintf(&b, "_created %s from %d occurrences_\n\n",
			r.CreatedAt.Format("2006-01-02"), r.SourceOccurrenceCount)
	}

	return mcp.NewToolResultText(b.String()), nil
}
