// Package resources implements MCP resource handlers for Athena.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (athena://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mkm-lab/athena/internal/evolution"
	"github.com/mkm-lab/athena/internal/personalization"
)

// Handler manages Athena resource endpoints.
type Handler struct {
	evolution       *evolution.Engine
	personalization *personalization.Engine
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(evo *evolution.Engine, pers *personalization.Engine) *Handler {
	return &Handler{evolution: evo, personalization: pers}
}

// RulesResource returns the MCP resource definition for standing rules.
func (h *Handler) RulesResource() mcp.Resource {
	return mcp.NewResource(
		"athena://evolution/rules",
		"Athena Standing Rules",
		mcp.WithResourceDescription("Rules synthesized from recurring mistakes, as JSON"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleRules returns all synthesized rules as JSON.
func (h *Handler) HandleRules(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	rules, err := h.evolution.ListRules("")
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling rules: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// ProfileResource returns the MCP resource definition for the user profile.
func (h *Handler) ProfileResource() mcp.Resource {
	return mcp.NewResource(
		"athena://personalization/profile",
		"Athena User Profile",
		mcp.WithResourceDescription("Learned preferences, style metrics, and constitution for the default user"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleProfile returns the default user's profile as JSON.
func (h *Handler) HandleProfile(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	profile, err := h.personalization.GetProfile(personalization.DefaultUserID)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling profile: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
