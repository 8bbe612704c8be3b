package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the athena-status MCP prompt.
// It instructs the AI to report what Athena has learned so far.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("athena-status",
		mcp.WithPromptDescription(
			"Show what Athena has learned: memory counts, synthesized rules, "+
				"and the current personalization profile.",
		),
	)
}

// Handle processes the athena-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Athena Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please give me an overview of Athena's learned state.\n\n" +
						"1. Run `memory_stats` and report the totals\n" +
						"2. Run `list_rules` and summarize each standing rule in one line\n" +
						"3. Run `profile_get` and describe my preferences and style\n" +
						"4. Present everything in a compact, readable summary",
				),
			},
		},
	}, nil
}
