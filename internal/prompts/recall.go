// Package prompts implements MCP prompt handlers for Athena.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// RecallPrompt handles the athena-recall MCP prompt.
// It guides the AI to pull relevant memories, rules, and profile data
// before starting on a task.
type RecallPrompt struct{}

// NewRecallPrompt creates a RecallPrompt.
func NewRecallPrompt() *RecallPrompt {
	return &RecallPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *RecallPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("athena-recall",
		mcp.WithPromptDescription(
			"Recall everything Athena knows that is relevant to a topic: "+
				"stored memories, standing rules, and the user's preferences.",
		),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What you're about to work on"),
		),
	)
}

// Handle processes the athena-recall prompt request.
func (p *RecallPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := "the current task"
	if args := req.Params.Arguments; args != nil {
		if t, ok := args["topic"]; ok && t != "" {
			topic = t
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Recall context for: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Before we start on '%s', please recall what you know:\n\n"+
						"1. Run `memory_search` with a query about '%s'\n"+
						"2. Run `list_rules` and note any standing rules that apply\n"+
						"3. Run `profile_get` to refresh my preferences\n"+
						"4. Summarize what's relevant in a few bullet points, then proceed",
					topic, topic,
				)),
			},
		},
	}, nil
}
