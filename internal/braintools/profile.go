package braintools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mkm-lab/athena/internal/personalization"
)

// ProfileGetTool handles the profile_get MCP tool.
type ProfileGetTool struct {
	engine *personalization.Engine
}

// NewProfileGetTool creates a ProfileGetTool.
func NewProfileGetTool(engine *personalization.Engine) *ProfileGetTool {
	return &ProfileGetTool{engine: engine}
}

// Definition returns the MCP tool definition for profile_get.
func (t *ProfileGetTool) Definition() mcp.Tool {
	return mcp.NewTool("profile_get",
		mcp.WithDescription(
			"Get the user's personalization profile: learned preferences, "+
				"style metrics, and constitution.",
		),
		mcp.WithString("user_id",
			mcp.Description("User identifier (default: 'default')"),
		),
	)
}

// Handle processes the profile_get tool call.
func (t *ProfileGetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profile, err := t.engine.GetProfile(req.GetString("user_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading profile: %v", err)), nil
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding profile: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ─── PreferenceSetTool ───────────────────────────────────────────────────────

// PreferenceSetTool handles the preference_set MCP tool.
type PreferenceSetTool struct {
	engine *personalization.Engine
}

// NewPreferenceSetTool creates a PreferenceSetTool.
func NewPreferenceSetTool(engine *personalization.Engine) *PreferenceSetTool {
	return &PreferenceSetTool{engine: engine}
}

// Definition returns the MCP tool definition for preference_set.
func (t *PreferenceSetTool) Definition() mcp.Tool {
	return mcp.NewTool("preference_set",
		mcp.WithDescription(
			"Record an explicit user preference (e.g. 'language': 'Go'). "+
				"Overwrites any previous value for the same key.",
		),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Preference name"),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("Preference value"),
		),
		mcp.WithString("user_id",
			mcp.Description("User identifier (default: 'default')"),
		),
	)
}

// Handle processes the preference_set tool call.
func (t *PreferenceSetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := req.GetString("key", "")
	if key == "" {
		return mcp.NewToolResultError("'key' is required"), nil
	}
	value := req.GetString("value", "")
	if value == "" {
		return mcp.NewToolResultError("'value' is required"), nil
	}

	if err := t.engine.UpdatePreference(key, value, req.GetString("user_id", "")); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("saving preference: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Preference saved: %s = %s", key, value)), nil
}

// ─── StyleLearnTool ──────────────────────────────────────────────────────────

// StyleLearnTool handles the style_learn MCP tool.
type StyleLearnTool struct {
	engine *personalization.Engine
}

// NewStyleLearnTool creates a StyleLearnTool.
func NewStyleLearnTool(engine *personalization.Engine) *StyleLearnTool {
	return &StyleLearnTool{engine: engine}
}

// Definition returns the MCP tool definition for style_learn.
func (t *StyleLearnTool) Definition() mcp.Tool {
	return mcp.NewTool("style_learn",
		mcp.WithDescription(
			"Feed observed style metrics (numbers, e.g. message_length, formality) "+
				"into the profile. Values are blended with history, not overwritten.",
		),
		mcp.WithObject("style",
			mcp.Required(),
			mcp.Description("Map of style metric name to numeric value"),
		),
		mcp.WithString("user_id",
			mcp.Description("User identifier (default: 'default')"),
		),
	)
}

// Handle processes the style_learn tool call.
func (t *StyleLearnTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := mapArg(req, "style")
	if len(raw) == 0 {
		return mcp.NewToolResultError("'style' is required and must contain numeric values"), nil
	}

	style := make(map[string]float64, len(raw))
	for key, v := range raw {
		f, ok := v.(float64)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("style value for %q is not numeric", key)), nil
		}
		style[key] = f
	}

	if err := t.engine.LearnStyle(style, req.GetString("user_id", "")); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("learning style: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Learned %d style metrics.", len(style))), nil
}
